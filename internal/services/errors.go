package services

import "errors"

// Service errors
var (
	// operation errors
	ErrOperationNotFound   = errors.New("operation not found")
	ErrOperationRunning    = errors.New("operation already running")
	ErrOperationNotRunning = errors.New("operation not running")
)
