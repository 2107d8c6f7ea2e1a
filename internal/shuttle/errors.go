package shuttle

import "errors"

// Error kinds surfaced by the registry, ledger, cache, and catalog. Callers
// branch on them with errors.Is; the message text is not part of the contract.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidID     = errors.New("invalid server id")
	ErrInvalidValue  = errors.New("invalid value")
	ErrDisabled      = errors.New("server is disabled")
	ErrUsage         = errors.New("usage error")
	ErrTimeout       = errors.New("timed out")

	// ErrCacheMiss is advisory: no remote listing has been cached yet.
	ErrCacheMiss = errors.New("no cached listing")
)

// Process exit codes, one per outcome class.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitUsage         = 2
	ExitNotFound      = 3
	ExitAlreadyExists = 4
	ExitInvalidInput  = 5
	ExitDisabled      = 6
	ExitTimeout       = 7
)

// ExitCode maps an error to the exit code wrappers and scripts branch on.
// A cache miss is not a failure and maps to ExitOK.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrCacheMiss):
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrAlreadyExists):
		return ExitAlreadyExists
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidValue):
		return ExitInvalidInput
	case errors.Is(err, ErrDisabled):
		return ExitDisabled
	case errors.Is(err, ErrTimeout):
		return ExitTimeout
	default:
		return ExitFailure
	}
}
