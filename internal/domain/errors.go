// Package domain contains domain errors shared across the broker.
package domain

import "errors"

// Credential errors surfaced when a connection is rejected.
var (
	ErrInvalidAccessKey = errors.New("access key is invalid")
	ErrInvalidAppKey    = errors.New("application key is invalid")
)
