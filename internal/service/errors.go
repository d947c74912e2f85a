// Package service provides business logic for the company corpus platform.
package service

import "errors"

var (
	// ErrSessionNotFound indicates the session does not exist for the tenant.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTurnInProgress indicates the session already has an active turn.
	ErrTurnInProgress = errors.New("a turn is already in progress for this session")
	// ErrInvalidQuery indicates the question or mode failed validation.
	ErrInvalidQuery = errors.New("invalid query")

	// Stage errors wrap the failing collaborator's error so callers can
	// tell which stage of a turn failed. errors.Is reaches both the stage
	// and the underlying cause.
	ErrRetrievalFailed = errors.New("retrieval stage failed")
	ErrPromptFailed    = errors.New("prompt stage failed")
	ErrModelFailed     = errors.New("model stage failed")
)
