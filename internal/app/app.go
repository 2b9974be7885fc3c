package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/marketplace/internal/health"
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
	"github.com/vladislavdragonenkov/marketplace/internal/service/order"
	"github.com/vladislavdragonenkov/marketplace/internal/service/outbox"
	"github.com/vladislavdragonenkov/marketplace/internal/version"
)

// App собирает зависимости сервиса заказов: хранилище, workflow-сервис,
// outbox-воркер и служебный HTTP-сервер. Транспортный слой (HTTP API,
// аутентификация) живёт снаружи и получает сервис через Service().
type App struct {
	cfg      Config
	logger   *log.Entry
	storage  *storageHandle
	service  *order.Service
	producer *kafka.Producer
	worker   *outbox.Worker
	health   *healthcheck.Handler
}

// New инициализирует все зависимости согласно конфигурации.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.WithField("component", "app")

	storage, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	orderService := order.NewService(storage.store,
		order.WithLogger(log.WithField("component", "order-service")),
		order.WithMetrics(metrics.NewOrderMetrics()),
	)

	// Ошибка подключения к Kafka не фатальна: сервис продолжает копить
	// события в outbox, публикация начнётся после перезапуска с брокером.
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)

	var worker *outbox.Worker
	if producer != nil {
		worker = outbox.NewWorker(
			storage.source,
			kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents),
			outbox.WithLogger(log.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		)
	} else {
		logger.Info("kafka brokers not configured, outbox worker disabled")
	}

	v, _, _ := version.Info()
	healthHandler := healthcheck.NewHandler(v)
	healthHandler.RegisterChecker("storage", healthcheck.NewPingChecker("storage", storage.ping))
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxChecker(storage.source, 100))

	return &App{
		cfg:      cfg,
		logger:   logger,
		storage:  storage,
		service:  orderService,
		producer: producer,
		worker:   worker,
		health:   healthHandler,
	}, nil
}

// Service возвращает workflow-сервис заказов для встраивания в транспорт.
func (a *App) Service() *order.Service {
	return a.service
}

// Health возвращает обработчик health check запросов.
func (a *App) Health() *healthcheck.Handler {
	return a.health
}

// Run запускает outbox-воркер и служебный HTTP-сервер и блокируется
// до отмены контекста или ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	workerDone := make(chan struct{})
	if a.worker != nil {
		go func() {
			defer close(workerDone)
			a.worker.Run(workerCtx)
		}()
	} else {
		close(workerDone)
	}

	srv := a.startHTTPServer()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("служебный HTTP-сервер слушает %s", a.cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("получен сигнал остановки")
		runErr = ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	cancelWorker()
	<-workerDone
	shutdownHTTP(srv, a.logger)
	a.Close()
	return runErr
}

// Close освобождает ресурсы приложения.
func (a *App) Close() {
	closeKafka(a.producer, a.logger)
	if err := a.storage.close(); err != nil {
		a.logger.WithError(err).Warn("failed to close storage")
	}
}

// Run собирает приложение и блокируется до завершения. Удобная обёртка
// для cmd/order-service.
func Run(ctx context.Context, cfg Config) error {
	a, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// startHTTPServer поднимает /metrics и health-эндпоинты.
func (a *App) startHTTPServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", a.health)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", a.health.ReadinessHandler)

	return &http.Server{Addr: a.cfg.HTTPAddr, Handler: mux}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http server shutdown with error")
	}
}
