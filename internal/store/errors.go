package store

import "errors"

var (
	ErrNotFound         = errors.New("key not found in backing store")
	ErrInvalidKey       = errors.New("invalid key")
	ErrEmptyTable       = errors.New("postgres table name is empty")
	ErrRedisNotReady    = errors.New("redis did not become ready within the given time period")
	ErrPostgresNotReady = errors.New("postgres did not become ready within the given time period")
)
