package storage

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fyrsmithlabs/newsletter/internal/config"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func unreachableSettings() config.DatabaseSettings {
	return config.DatabaseSettings{
		Username:        "postgres",
		Password:        config.NewSecret("password"),
		Host:            "127.0.0.1",
		Port:            1,
		DatabaseName:    "newsletter",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: config.Duration(time.Minute),
	}
}

func TestOpen_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	retries := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1)
	_, err := Open(ctx, unreachableSettings(), WithBackOff(retries))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.NotContains(t, err.Error(), "password")
}

func TestNewSubscription(t *testing.T) {
	a := NewSubscription("ursula_le_guin@gmail.com", "le guin")
	b := NewSubscription("ursula_le_guin@gmail.com", "le guin")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "subscriptions", a.TableName())
	assert.WithinDuration(t, time.Now(), a.SubscribedAt, time.Minute)
	assert.Equal(t, time.UTC, a.SubscribedAt.Location())
}

// lazyStore returns a store whose pool never dials until a statement runs.
func lazyStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	dsn := unreachableSettings().ConnectionString().ExposeSecret()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	s := NewStore(db, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestExecute_BreakerOpensOnConnectionErrors(t *testing.T) {
	s := lazyStore(t, WithBreaker(2, time.Hour))
	calls := 0
	failing := func(*gorm.DB) error {
		calls++
		return driver.ErrBadConn
	}

	for range 2 {
		err := s.Execute(context.Background(), failing)
		assert.ErrorIs(t, err, ErrConnection)
	}
	assert.Equal(t, 2, calls)

	err := s.Execute(context.Background(), failing)
	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls, "open circuit must not run the operation")
}

func TestExecute_QueryErrorsDoNotTrip(t *testing.T) {
	s := lazyStore(t, WithBreaker(1, time.Hour))
	calls := 0
	duplicate := func(*gorm.DB) error {
		calls++
		return gorm.ErrDuplicatedKey
	}

	for range 3 {
		err := s.Execute(context.Background(), duplicate)
		assert.ErrorIs(t, err, ErrDuplicate)
	}
	assert.Equal(t, 3, calls)
}
