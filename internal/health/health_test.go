package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type stubOutboxSource struct {
	stats    domain.OutboxStats
	statsErr error
}

func (s *stubOutboxSource) PullPending(context.Context, int) ([]domain.OutboxMessage, error) {
	return nil, nil
}

func (s *stubOutboxSource) Stats(context.Context) (domain.OutboxStats, error) {
	return s.stats, s.statsErr
}

func (s *stubOutboxSource) MarkSent(context.Context, string) error   { return nil }
func (s *stubOutboxSource) MarkFailed(context.Context, string) error { return nil }

func TestHealthHandler(t *testing.T) {
	handler := NewHandler("v1.0.0")

	handler.RegisterChecker("postgres", NewPingChecker("postgres", func(context.Context) error {
		return nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", response.Status)
	}

	if response.Version != "v1.0.0" {
		t.Errorf("expected version v1.0.0, got %s", response.Version)
	}

	if len(response.Checks) != 1 {
		t.Errorf("expected 1 check, got %d", len(response.Checks))
	}
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	handler := NewHandler("v1.0.0")

	handler.RegisterChecker("postgres", NewPingChecker("postgres", func(context.Context) error {
		return errors.New("connection refused")
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %s", response.Status)
	}
}

func TestHealthHandler_DegradedKeepsStatusOK(t *testing.T) {
	handler := NewHandler("v1.0.0")

	handler.RegisterChecker("outbox", NewOutboxChecker(&stubOutboxSource{
		stats: domain.OutboxStats{PendingCount: 500, OldestPendingAt: time.Now()},
	}, 100))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for degraded, got %d", w.Code)
	}

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != StatusDegraded {
		t.Errorf("expected status degraded, got %s", response.Status)
	}
}

func TestLivenessHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	w := httptest.NewRecorder()

	LivenessHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %s", w.Body.String())
	}
}

func TestReadinessHandler(t *testing.T) {
	handler := NewHandler("v1.0.0")

	handler.RegisterChecker("postgres", NewPingChecker("postgres", func(context.Context) error {
		return nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	handler.ReadinessHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "ready" {
		t.Errorf("expected body 'ready', got %s", w.Body.String())
	}
}

func TestReadinessHandler_NotReady(t *testing.T) {
	handler := NewHandler("v1.0.0")

	handler.RegisterChecker("postgres", NewPingChecker("postgres", func(context.Context) error {
		return errors.New("not ready")
	}))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	handler.ReadinessHandler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	if w.Body.String() != "not ready" {
		t.Errorf("expected body 'not ready', got %s", w.Body.String())
	}
}

func TestReadinessHandler_DegradedStillReady(t *testing.T) {
	handler := NewHandler("v1.0.0")

	handler.RegisterChecker("outbox", NewOutboxChecker(&stubOutboxSource{
		stats: domain.OutboxStats{PendingCount: 500},
	}, 100))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	handler.ReadinessHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected degraded service to stay ready, got %d", w.Code)
	}
}

func TestPingChecker(t *testing.T) {
	checker := NewPingChecker("postgres", func(context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	check := checker.Check(context.Background())

	if check.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", check.Status)
	}

	if check.DurationMs < 10 {
		t.Errorf("expected duration >= 10ms, got %dms", check.DurationMs)
	}
}

func TestPingChecker_Error(t *testing.T) {
	checker := NewPingChecker("postgres", func(context.Context) error {
		return errors.New("dial timeout")
	})

	check := checker.Check(context.Background())

	if check.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %s", check.Status)
	}

	if check.Message != "dial timeout" {
		t.Errorf("expected message 'dial timeout', got %s", check.Message)
	}
}

func TestOutboxChecker(t *testing.T) {
	tests := []struct {
		name   string
		source *stubOutboxSource
		want   Status
	}{
		{
			name:   "empty backlog",
			source: &stubOutboxSource{},
			want:   StatusHealthy,
		},
		{
			name:   "backlog below threshold",
			source: &stubOutboxSource{stats: domain.OutboxStats{PendingCount: 100}},
			want:   StatusHealthy,
		},
		{
			name:   "backlog above threshold",
			source: &stubOutboxSource{stats: domain.OutboxStats{PendingCount: 101}},
			want:   StatusDegraded,
		},
		{
			name:   "stats failure",
			source: &stubOutboxSource{statsErr: errors.New("store closed")},
			want:   StatusUnhealthy,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checker := NewOutboxChecker(tc.source, 100)
			check := checker.Check(context.Background())
			if check.Status != tc.want {
				t.Errorf("expected status %s, got %s", tc.want, check.Status)
			}
		})
	}
}
