package service

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrNoScorer      = errors.New("no scorer configured")
	ErrBatchTooLarge = errors.New("batch too large")
	ErrEmptyBatch    = errors.New("batch is empty")
)

// BatchItemError reports which batch input failed and why.
type BatchItemError struct {
	Index int
	Err   error
}

func (e *BatchItemError) Error() string {
	return fmt.Sprintf("inputs[%d]: %v", e.Index, e.Err)
}

func (e *BatchItemError) Unwrap() error { return e.Err }
