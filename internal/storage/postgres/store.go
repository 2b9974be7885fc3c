package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// Store оборачивает пул SQL-подключений к PostgreSQL и отвечает за границы
// unit of work: одно соединение на единицу работы, ровно один commit или rollback.
//
// Пул конструируется явно на старте процесса и передаётся зависимостям;
// глобального состояния пакет не держит. Блокирующие вызовы драйвера
// ограничены размером пула (SetMaxOpenConns) и блокируют только goroutine
// вызывающей стороны.
type Store struct {
	db     *sql.DB
	logger *log.Entry
}

// PoolConfig задаёт внешние параметры пула; нулевые значения заменяются умолчаниями.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Open открывает подключение к PostgreSQL и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*Store, error) {
	return OpenWithConfig(ctx, dsn, PoolConfig{})
}

// OpenWithConfig открывает подключение с явной конфигурацией пула.
func OpenWithConfig(ctx context.Context, dsn string, cfg PoolConfig) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime <= 0 {
		cfg.ConnMaxIdleTime = defaultConnMaxIdleTime
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{
		db:     db,
		logger: log.WithField("component", "postgres-store"),
	}, nil
}

// DB возвращает raw SQL DB, когда нужен низкоуровневый доступ.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WithinTx выполняет fn в рамках одного соединения и одной транзакции.
//
// Соединение берётся из пула ровно на время единицы работы и освобождается
// на любом пути выхода. Commit происходит только при нормальном завершении fn;
// ошибка или panic приводят к rollback, при этом исходная ошибка не маскируется:
// сбой самого rollback только логируется. Начатый statement не прерывается
// на середине — отмена объемлющего контекста проявится на границе следующего вызова.
func (s *Store) WithinTx(ctx context.Context, fn func(uow domain.UnitOfWork) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return domain.Wrap(domain.KindGeneric, "acquire connection", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return domain.Wrap(domain.KindGeneric, "begin transaction", err)
	}

	completed := false
	defer func() {
		// Путь panic: откатываем и пробрасываем панику дальше.
		if !completed {
			_ = tx.Rollback()
		}
	}()

	uow := &unitOfWork{tx: tx, logger: s.logger}
	if err := fn(uow); err != nil {
		completed = true
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}

	completed = true
	if err := tx.Commit(); err != nil {
		return domain.Wrap(domain.KindGeneric, "commit unit of work", err)
	}
	return nil
}

// unitOfWork привязывает репозитории к одной открытой транзакции.
type unitOfWork struct {
	tx     *sql.Tx
	logger *log.Entry
}

func (u *unitOfWork) Orders() domain.OrderRepository {
	return &orderRepository{q: u.tx, logger: u.logger.WithField("repository", "orders")}
}

func (u *unitOfWork) Timeline() domain.TimelineRepository {
	return &timelineRepository{q: u.tx}
}

func (u *unitOfWork) Outbox() domain.OutboxRepository {
	return &outboxRepository{q: u.tx}
}

var _ domain.Store = (*Store)(nil)
