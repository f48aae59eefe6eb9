package storage

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/newsletter/internal/config"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// EnsureDatabase creates the logical database named by s when it does not
// exist yet. It connects through the server-only connection string.
func EnsureDatabase(ctx context.Context, s config.DatabaseSettings, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	db, err := connect(ctx, s.ConnectionStringWithoutDB(), o)
	if err != nil {
		return err
	}
	server := &Store{db: db, logger: o.logger}
	defer server.Close()

	var exists bool
	err = db.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = ?)", s.DatabaseName).
		Scan(&exists).Error
	if err != nil {
		return wrap("lookup database", err)
	}
	if exists {
		return nil
	}

	stmt := fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{s.DatabaseName}.Sanitize())
	if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return wrap("create database", err)
	}
	o.logger.Info("created database", zap.String("database", s.DatabaseName))
	return nil
}
