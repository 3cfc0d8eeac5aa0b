package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid exec context")

	ErrMalformedJob          = errors.New("malformed job payload")
	ErrInvalidTransition     = errors.New("invalid message status transition")
	ErrUnsupportedProvider   = errors.New("unsupported llm provider")
	ErrProviderNotConfigured = errors.New("llm provider not configured")
)
