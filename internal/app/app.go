package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"sync-shuttle/internal/config"
	"sync-shuttle/internal/database"
	"sync-shuttle/internal/executor"
	shuttlefs "sync-shuttle/internal/fs"
	"sync-shuttle/internal/ledger"
	"sync-shuttle/internal/registry"
	"sync-shuttle/internal/remotecache"
	"sync-shuttle/internal/shuttle"
)

// ShuttleApp is the application layer between the CLI and the shuttle
// services. It builds every component from the resolved path layout and
// settings, and owns the log file and the ledger index handle.
type ShuttleApp struct {
	paths    map[string]string
	settings *config.Settings
	registry *registry.Registry
	ledger   *ledger.Ledger
	catalog  *shuttle.Catalog
	runner   *executor.Runner
	logger   shuttle.Logger
	clock    shuttle.Clock
	index    *database.SQLiteIndex
	logFile  *os.File
}

// NewShuttleApp creates a fully wired ShuttleApp for the layout in paths
// (see Layout). command names the CLI command being run and is logged.
// The caller must call Close when done.
func NewShuttleApp(paths map[string]string, command string, verbose bool) (*ShuttleApp, error) {
	settings, err := config.ReadSettingsFile(paths["settings_path"])
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	runID := shuttle.UUIDGenerator{}.New()
	l, logFile, err := newLogger(paths["log_path"], runID, verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: l}
	logger.Debug("starting", "command", command, "base_dir", paths["base_dir"])

	reg := registry.New(paths["servers_path"], logger)
	store := remotecache.NewStore(paths["cache_dir"])
	fsmgr := shuttlefs.NewOSFilesystemManager(settings.Catalog.Ignore, logger)
	catalog := shuttle.NewCatalog(
		shuttle.CatalogPaths{Inbox: paths["inbox_dir"], Outbox: paths["outbox_dir"]},
		settings.Catalog.MaxDepth, fsmgr, store, reg, logger,
	)

	env := []string{
		EnvHome + "=" + paths["base_dir"],
		EnvConfigDir + "=" + paths["config_dir"],
	}
	runner := executor.NewRunner(resolveScript(settings.Executor.Script, paths["base_dir"]), env, logger)

	return &ShuttleApp{
		paths:    paths,
		settings: settings,
		registry: reg,
		ledger:   ledger.New(paths["ledger_path"], shuttle.UUIDGenerator{}, logger),
		catalog:  catalog,
		runner:   runner,
		logger:   logger,
		clock:    shuttle.RealClock{},
		logFile:  logFile,
	}, nil
}

// resolveScript prefers a bare script name found in baseDir; anything else
// is left for PATH lookup.
func resolveScript(script, baseDir string) string {
	if filepath.IsAbs(script) || filepath.Base(script) != script {
		return script
	}
	candidate := filepath.Join(baseDir, script)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return script
}

// InitReport says what Init created.
type InitReport struct {
	RegistryCreated bool
	SettingsCreated bool
}

// Init creates the directory layout, an empty registry, and a default
// settings file. Existing files are left untouched.
func Init(paths map[string]string) (*InitReport, error) {
	for _, key := range layoutDirs {
		if err := os.MkdirAll(paths[key], 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", paths[key], err)
		}
	}

	report := &InitReport{}
	created, err := registry.New(paths["servers_path"], shuttle.NewNopLogger()).Init()
	if err != nil {
		return nil, fmt.Errorf("creating registry: %w", err)
	}
	report.RegistryCreated = created

	if _, err := os.Stat(paths["settings_path"]); errors.Is(err, fs.ErrNotExist) {
		if err := config.InitSettings(paths["settings_path"]); err != nil {
			return nil, fmt.Errorf("creating settings: %w", err)
		}
		report.SettingsCreated = true
	} else if err != nil {
		return nil, fmt.Errorf("checking settings: %w", err)
	}
	return report, nil
}

// Paths returns the resolved layout.
func (a *ShuttleApp) Paths() map[string]string { return a.paths }

// Settings returns the loaded settings.
func (a *ShuttleApp) Settings() *config.Settings { return a.settings }

// Registry returns the server registry.
func (a *ShuttleApp) Registry() *registry.Registry { return a.registry }

// Catalog returns the file catalog.
func (a *ShuttleApp) Catalog() *shuttle.Catalog { return a.catalog }

// History returns a History backed by the ledger. The index is opened on
// first use when withIndex is set; plain recent listings never touch it.
func (a *ShuttleApp) History(withIndex bool) (*shuttle.History, error) {
	if !withIndex {
		return shuttle.NewHistory(a.ledger, nil, a.clock, a.logger), nil
	}
	if a.index == nil {
		idx, err := database.NewIndex(a.settings.Index.Type, a.paths["index_path"])
		if err != nil {
			return nil, fmt.Errorf("opening ledger index: %w", err)
		}
		a.index = idx
	}
	return shuttle.NewHistory(a.ledger, a.index, a.clock, a.logger), nil
}

// HistoryLimit returns limit, or the configured default when limit is unset.
func (a *ShuttleApp) HistoryLimit(limit int) int {
	if limit < 0 {
		return a.settings.History.Limit
	}
	return limit
}

// Transfer runs req through the external executor. Server targets must
// exist and be enabled.
func (a *ShuttleApp) Transfer(ctx context.Context, req *TransferRequest) (*executor.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ServerID != "" {
		if _, err := a.registry.RequireEnabled(req.ServerID); err != nil {
			return nil, err
		}
	}
	if req.Source != "" {
		abs, err := filepath.Abs(req.Source)
		if err != nil {
			return nil, fmt.Errorf("resolving source: %w", err)
		}
		req.Source = abs
	}

	start := a.clock.Now()
	res, err := a.runner.Run(ctx, req.Timeout(a.settings.Executor), req.Args()...)
	if errors.Is(err, shuttle.ErrTimeout) {
		a.recordKilled(req, start)
	}
	if err != nil {
		return res, fmt.Errorf("%s: %w", req.Operation, err)
	}
	a.logger.Info("transfer complete", "operation", req.Operation, "server", req.ServerID, "global", req.Global)
	return res, nil
}

// recordKilled appends a failure for a run the executor could not record
// itself because it was killed.
func (a *ShuttleApp) recordKilled(req *TransferRequest, start time.Time) {
	rec, err := a.ledger.Append(shuttle.OperationRecord{
		Operation:      req.Operation,
		ServerID:       req.ServerID,
		SourcePath:     req.Source,
		TimestampStart: start.UTC().Format(time.RFC3339),
		TimestampEnd:   a.clock.Now().UTC().Format(time.RFC3339),
		Status:         shuttle.StatusFailure,
	})
	if err != nil {
		a.logger.Warn("recording timed out transfer", "operation", req.Operation, "error", err)
		return
	}
	a.logger.Info("recorded timed out transfer", "uuid", rec.UUID, "operation", req.Operation)
}

// Close closes the ledger index and the log file.
func (a *ShuttleApp) Close() error {
	var firstErr error
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			firstErr = fmt.Errorf("closing ledger index: %w", err)
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
