// Package storage persists subscriptions in Postgres through gorm.
//
// Database errors never reach callers raw: every failure is returned as a
// *PersistenceError classified as ErrDuplicate, ErrConnection or ErrQuery,
// with the driver error kept for logging.
package storage
