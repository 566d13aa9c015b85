package database

import "errors"

var (
	ErrInvalidConfig    = errors.New("invalid database config")
	ErrRecordNotFound   = errors.New("record not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrConnectionFailed = errors.New("database connection failed")
)
