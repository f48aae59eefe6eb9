package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fyrsmithlabs/newsletter/internal/config"
	"github.com/fyrsmithlabs/newsletter/internal/task"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// WriteOperation is a statement run by Store.Execute.
type WriteOperation func(db *gorm.DB) error

// Store is the subscription store over a gorm connection pool.
type Store struct {
	db      *gorm.DB
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker
}

type options struct {
	logger          *zap.Logger
	backoff         backoff.BackOff
	breakerFailures uint32
	breakerTimeout  time.Duration
}

func defaultOptions() options {
	return options{
		logger:          zap.NewNop(),
		backoff:         defaultBackOff(),
		breakerFailures: 5,
		breakerTimeout:  30 * time.Second,
	}
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger for connection lifecycle messages.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBackOff sets the retry policy for the initial connection.
func WithBackOff(b backoff.BackOff) Option {
	return func(o *options) { o.backoff = b }
}

// WithBreaker opens the write circuit after failures consecutive connection
// errors and probes again after timeout.
func WithBreaker(failures uint32, timeout time.Duration) Option {
	return func(o *options) {
		o.breakerFailures = failures
		o.breakerTimeout = timeout
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// Open connects to the database named by s, retrying while the server is
// unreachable.
func Open(ctx context.Context, s config.DatabaseSettings, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	db, err := connect(ctx, s.ConnectionString(), o)
	if err != nil {
		return nil, err
	}
	if err := configurePool(db, s); err != nil {
		return nil, wrap("configure pool", err)
	}
	o.logger.Info("connected to postgres",
		zap.String("host", s.Host),
		zap.Uint16("port", s.Port),
		zap.String("database", s.DatabaseName))
	return newStore(db, o), nil
}

// NewStore wraps an open gorm handle.
func NewStore(db *gorm.DB, opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newStore(db, o)
}

func newStore(db *gorm.DB, o options) *Store {
	return &Store{db: db, logger: o.logger, breaker: newBreaker(o)}
}

// newBreaker trips only on connection errors; duplicates and bad queries
// say nothing about the server's health.
func newBreaker(o options) *gobreaker.CircuitBreaker {
	logger := o.logger
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "postgres",
		MaxRequests: 1,
		Timeout:     o.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.breakerFailures
		},
		IsSuccessful: func(err error) bool {
			return !errors.Is(err, ErrConnection)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
}

func connect(ctx context.Context, dsn config.Secret[string], o options) (*gorm.DB, error) {
	var db *gorm.DB
	operation := func() error {
		conn, err := gorm.Open(postgres.Open(dsn.ExposeSecret()), &gorm.Config{
			TranslateError: true,
			Logger:         newQueryLogger(),
		})
		if err != nil {
			err = wrap("connect", err)
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		db = conn
		return nil
	}
	notify := func(err error, next time.Duration) {
		o.logger.Warn("postgres not reachable, retrying",
			zap.Error(err),
			zap.Duration("retry_in", next))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(o.backoff, ctx), notify); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return nil, wrap("connect", err)
	}
	return db, nil
}

func configurePool(db *gorm.DB, s config.DatabaseSettings) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(s.MaxOpenConns)
	sqlDB.SetMaxIdleConns(s.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(s.ConnMaxLifetime.Duration())
	return nil
}

// DB returns the underlying gorm handle.
func (s *Store) DB() *gorm.DB { return s.db }

// Ping checks that the pool can reach the server.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrap("ping", err)
	}
	return wrap("ping", sqlDB.PingContext(ctx))
}

// Close closes the pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrap("close", err)
	}
	return wrap("close", sqlDB.Close())
}

// Execute runs op bound to ctx and classifies its error. While the circuit
// is open op is not run and the error is an ErrConnection.
func (s *Store) Execute(ctx context.Context, op WriteOperation) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, wrap("execute", op(s.db.WithContext(ctx)))
	})
	return wrap("execute", err)
}

// InsertSubscription stores sub.
func (s *Store) InsertSubscription(ctx context.Context, sub *Subscription) error {
	err := s.Execute(ctx, func(db *gorm.DB) error {
		return db.Create(sub).Error
	})
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// InsertSubscriptionTask returns a task that stores sub off the executor's
// workers.
func (s *Store) InsertSubscriptionTask(sub *Subscription) task.Task {
	return task.Offload(func(ctx context.Context) error {
		return s.InsertSubscription(ctx, sub)
	})
}

// Migrate creates or updates the subscriptions table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Subscription{}); err != nil {
		return wrap("migrate", err)
	}
	return nil
}
