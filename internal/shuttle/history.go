package shuttle

import (
	"context"
	"fmt"
)

// History serves operation history from the ledger and its index.
type History struct {
	log    OperationLog
	index  OperationIndex
	clock  Clock
	logger Logger
}

// NewHistory creates a History. index may be nil, in which case only
// Recent is available.
func NewHistory(log OperationLog, index OperationIndex, clock Clock, logger Logger) *History {
	return &History{log: log, index: index, clock: clock, logger: logger}
}

// Recent returns the last limit ledger records, most recent first.
func (h *History) Recent(limit int) (*LedgerResult, error) {
	res, err := h.log.Recent(limit)
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return res, nil
}

// Reindex imports any ledger records the index has not seen.
func (h *History) Reindex(ctx context.Context) (ImportResult, error) {
	if h.index == nil {
		return ImportResult{}, fmt.Errorf("no operation index configured")
	}
	all, err := h.log.All()
	if err != nil {
		return ImportResult{}, fmt.Errorf("reading ledger: %w", err)
	}
	res, err := h.index.Import(ctx, all.Records, all.Skipped, h.clock.Now())
	if err != nil {
		return ImportResult{}, fmt.Errorf("importing ledger: %w", err)
	}
	h.logger.Info("indexed ledger", "added", res.Added, "existing", res.Existing, "no_uuid", res.NoUUID, "malformed", res.Malformed)
	return res, nil
}

// Query refreshes the index and returns the matching records.
func (h *History) Query(ctx context.Context, filter OperationFilter) ([]OperationRecord, error) {
	if _, err := h.Reindex(ctx); err != nil {
		return nil, err
	}
	recs, err := h.index.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	return recs, nil
}

// Activity refreshes the index and returns per-server aggregates.
func (h *History) Activity(ctx context.Context) ([]ServerActivity, error) {
	if _, err := h.Reindex(ctx); err != nil {
		return nil, err
	}
	stats, err := h.index.Activity(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregating index: %w", err)
	}
	return stats, nil
}

// IndexStatus reports the state of the index without refreshing it.
func (h *History) IndexStatus(ctx context.Context) (IndexStatus, error) {
	if h.index == nil {
		return IndexStatus{}, fmt.Errorf("no operation index configured")
	}
	st, err := h.index.Status(ctx)
	if err != nil {
		return IndexStatus{}, fmt.Errorf("reading index status: %w", err)
	}
	return st, nil
}
