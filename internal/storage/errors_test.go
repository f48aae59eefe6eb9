package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"gorm duplicate", gorm.ErrDuplicatedKey, ErrDuplicate},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrDuplicate},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), ErrDuplicate},
		{"connection failure", &pgconn.PgError{Code: "08006"}, ErrConnection},
		{"auth failure", &pgconn.PgError{Code: "28P01"}, ErrConnection},
		{"too many connections", &pgconn.PgError{Code: "53300"}, ErrConnection},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, ErrConnection},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, ErrQuery},
		{"not null", &pgconn.PgError{Code: "23502"}, ErrQuery},
		{"bad conn", driver.ErrBadConn, ErrConnection},
		{"deadline", context.DeadlineExceeded, ErrConnection},
		{"breaker open", gobreaker.ErrOpenState, ErrConnection},
		{"breaker probing", gobreaker.ErrTooManyRequests, ErrConnection},
		{"other", errors.New("syntax"), ErrQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.NoError(t, wrap("op", nil))

	cause := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	err := wrap("insert", cause)

	var pe *PersistenceError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, "insert", pe.Op)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NotErrorIs(t, err, ErrQuery)

	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr, "driver error stays reachable")
	assert.Contains(t, err.Error(), "duplicate key value")

	assert.Same(t, err, wrap("outer", err), "already classified errors are not re-wrapped")
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(wrap("connect", &pgconn.PgError{Code: "57P03"})))
	assert.False(t, retryable(wrap("connect", &pgconn.PgError{Code: "28P01"})))
	assert.False(t, retryable(wrap("connect", errors.New("bad dsn"))))
}
