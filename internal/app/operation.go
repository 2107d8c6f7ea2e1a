package app

import (
	"fmt"
	"time"

	"sync-shuttle/internal/config"
	"sync-shuttle/internal/shuttle"
)

// TransferRequest is one push, pull, or share handed to the executor.
// Share targets either one server or, with Global set, every peer.
type TransferRequest struct {
	Operation string
	ServerID  string
	Global    bool
	Source    string
}

// NewTransferRequest creates a request for the given operation kind.
func NewTransferRequest(operation, serverID, source string, global bool) *TransferRequest {
	return &TransferRequest{
		Operation: operation,
		ServerID:  serverID,
		Global:    global,
		Source:    source,
	}
}

// Validate checks that the argument combination makes sense for the
// operation. It does not consult the registry.
func (r *TransferRequest) Validate() error {
	switch r.Operation {
	case shuttle.OperationPush:
		if r.ServerID == "" || r.Source == "" {
			return fmt.Errorf("%w: push requires --server and --source", shuttle.ErrUsage)
		}
	case shuttle.OperationPull:
		if r.ServerID == "" {
			return fmt.Errorf("%w: pull requires --server", shuttle.ErrUsage)
		}
		if r.Source != "" {
			return fmt.Errorf("%w: pull does not take --source", shuttle.ErrUsage)
		}
	case shuttle.OperationShare:
		if r.Source == "" {
			return fmt.Errorf("%w: share requires --source", shuttle.ErrUsage)
		}
		if r.Global == (r.ServerID != "") {
			return fmt.Errorf("%w: share requires exactly one of --global or --server", shuttle.ErrUsage)
		}
	default:
		return fmt.Errorf("%w: unknown operation %q", shuttle.ErrUsage, r.Operation)
	}
	if r.Global && r.Operation != shuttle.OperationShare {
		return fmt.Errorf("%w: --global is only valid for share", shuttle.ErrUsage)
	}
	if r.ServerID != "" {
		return shuttle.ValidateID(r.ServerID)
	}
	return nil
}

// Args renders the executor command line.
func (r *TransferRequest) Args() []string {
	args := []string{r.Operation}
	if r.Global {
		args = append(args, "--global")
	} else {
		args = append(args, "--server", r.ServerID)
	}
	if r.Source != "" {
		args = append(args, "--source", r.Source)
	}
	return args
}

// Timeout returns the configured bound for this operation.
func (r *TransferRequest) Timeout(cfg config.ExecutorConfig) time.Duration {
	switch r.Operation {
	case shuttle.OperationPush:
		return cfg.PushTimeout
	case shuttle.OperationPull:
		return cfg.PullTimeout
	default:
		return cfg.ShareTimeout
	}
}
