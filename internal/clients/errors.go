package clients

import "errors"

var (
	ErrNotFound      = errors.New("client not found")
	ErrInvalidInput  = errors.New("invalid client")
	ErrTaxIDTaken    = errors.New("tax id already registered")
	ErrNotConfigured = errors.New("clients service not configured")
)
