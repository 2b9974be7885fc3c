package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// Status представляет статус компонента
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check представляет результат проверки компонента
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response представляет ответ health check
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker интерфейс для проверки здоровья компонента
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler обрабатывает health check запросы
type Handler struct {
	mu           sync.RWMutex
	checkers     map[string]Checker
	version      string
	startTime    time.Time
	checkTimeout time.Duration
}

// NewHandler создаёт новый health handler
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:     make(map[string]Checker),
		version:      version,
		startTime:    time.Now(),
		checkTimeout: 3 * time.Second,
	}
}

// RegisterChecker регистрирует проверку компонента
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

func (h *Handler) snapshotCheckers() map[string]Checker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	checkers := make(map[string]Checker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	return checkers
}

func (h *Handler) runChecks(ctx context.Context) (map[string]Check, Status) {
	checks := make(map[string]Check)
	overallStatus := StatusHealthy

	for name, checker := range h.snapshotCheckers() {
		checkCtx, cancel := context.WithTimeout(ctx, h.checkTimeout)
		check := checker.Check(checkCtx)
		cancel()
		checks[name] = check

		if check.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
		} else if check.Status == StatusDegraded && overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	return checks, overallStatus
}

// ServeHTTP обрабатывает HTTP запрос
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks, overallStatus := h.runChecks(r.Context())

	response := Response{
		Status:        overallStatus,
		Timestamp:     time.Now(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler простой liveness probe (всегда возвращает 200)
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler проверяет готовность к обработке запросов.
// Degraded не блокирует готовность, только unhealthy.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	_, overallStatus := h.runChecks(r.Context())

	if overallStatus == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// PingChecker проверяет доступность компонента через функцию ping
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker создаёт проверку доступности
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

// Check выполняет проверку
func (c *PingChecker) Check(ctx context.Context) Check {
	start := time.Now()
	err := c.ping(ctx)
	duration := time.Since(start)

	if err != nil {
		return Check{
			Name:       c.name,
			Status:     StatusUnhealthy,
			Message:    err.Error(),
			DurationMs: duration.Milliseconds(),
		}
	}

	return Check{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: duration.Milliseconds(),
	}
}

// OutboxChecker следит за размером очереди исходящих сообщений.
// Очередь больше degradedAfter записей помечается как degraded:
// сервис работает, но публикация событий отстаёт.
type OutboxChecker struct {
	source        domain.OutboxSource
	degradedAfter int
}

// NewOutboxChecker создаёт проверку очереди исходящих сообщений
func NewOutboxChecker(source domain.OutboxSource, degradedAfter int) *OutboxChecker {
	if degradedAfter <= 0 {
		degradedAfter = 100
	}
	return &OutboxChecker{source: source, degradedAfter: degradedAfter}
}

// Check выполняет проверку
func (c *OutboxChecker) Check(ctx context.Context) Check {
	start := time.Now()
	stats, err := c.source.Stats(ctx)
	duration := time.Since(start)

	if err != nil {
		return Check{
			Name:       "outbox",
			Status:     StatusUnhealthy,
			Message:    err.Error(),
			DurationMs: duration.Milliseconds(),
		}
	}

	if stats.PendingCount > c.degradedAfter {
		return Check{
			Name:       "outbox",
			Status:     StatusDegraded,
			Message:    fmt.Sprintf("%d pending messages", stats.PendingCount),
			DurationMs: duration.Milliseconds(),
		}
	}

	return Check{
		Name:       "outbox",
		Status:     StatusHealthy,
		DurationMs: duration.Milliseconds(),
	}
}
