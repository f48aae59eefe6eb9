package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate key violation")

	// ErrConnection is returned when the database cannot be reached.
	ErrConnection = errors.New("database connection failed")

	// ErrQuery is returned for every other statement failure.
	ErrQuery = errors.New("query failed")
)

// PersistenceError is a classified database failure.
type PersistenceError struct {
	Op   string
	Kind error
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the classification and the driver error.
func (e *PersistenceError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// wrap classifies err for op. A nil err stays nil.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyCode(pgErr.Code)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return ErrConnection
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrConnection
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return ErrConnection
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrConnection
	}
	return ErrQuery
}

// classifyCode maps SQLSTATE codes.
func classifyCode(code string) error {
	switch {
	case code == "23505": // unique_violation
		return ErrDuplicate
	case len(code) == 5 && code[:2] == "08": // connection_exception class
		return ErrConnection
	case len(code) == 5 && code[:2] == "28": // invalid_authorization_specification class
		return ErrConnection
	case code == "53300", // too_many_connections
		code == "57P01", // admin_shutdown
		code == "57P02", // crash_shutdown
		code == "57P03": // cannot_connect_now
		return ErrConnection
	default:
		return ErrQuery
	}
}

// retryable reports whether connecting again may help.
func retryable(err error) bool {
	return errors.Is(err, ErrConnection) && !isAuthFailure(err)
}

func isAuthFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "28"
}
