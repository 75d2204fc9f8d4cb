package port

import (
	"errors"
	"fmt"
)

// Sentinel errors used across ports.
var (
	ErrNotFound            = errors.New("not found")
	ErrCandidateNotFound   = fmt.Errorf("candidate %w", ErrNotFound)
	ErrJobNotFound         = fmt.Errorf("job %w", ErrNotFound)
	ErrRequirementNotFound = fmt.Errorf("requirement %w", ErrNotFound)
	ErrRunNotFound         = fmt.Errorf("run %w", ErrNotFound)

	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	ErrMalformedVector     = errors.New("malformed vector")
	ErrInvalidInput        = errors.New("invalid input")
	ErrBackfillRunning     = errors.New("embedding backfill already running")
)
