package jobs

import (
	"errors"

	"github.com/nordclean/fieldjobs/internal/store"
)

// Service-level sentinels. NotFound, transition, and conflict errors are the
// store's own sentinels so errors.Is works across layers.
var (
	ErrNotFound           = store.ErrNotFound
	ErrInvalidTransition  = store.ErrInvalidTransition
	ErrSchedulingConflict = store.ErrSchedulingConflict

	// ErrValidation covers malformed input rejected before touching the store.
	ErrValidation = errors.New("invalid input")
)
