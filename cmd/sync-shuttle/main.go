package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sync-shuttle/internal/app"
	"sync-shuttle/internal/config"
	"sync-shuttle/internal/executor"
	"sync-shuttle/internal/registry"
	"sync-shuttle/internal/shuttle"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	}
	os.Exit(shuttle.ExitCode(err))
}

// resolvePaths applies --base-dir and --config-dir over the environment defaults.
func resolvePaths(cmd *cobra.Command) (map[string]string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	baseDir, _ := cmd.Flags().GetString("base-dir")
	configDir, _ := cmd.Flags().GetString("config-dir")
	if baseDir == "" && configDir == "" {
		return defaults, nil
	}
	if baseDir == "" {
		baseDir = defaults["base_dir"]
	}
	if configDir == "" {
		configDir = os.Getenv(app.EnvConfigDir)
	}
	return app.Layout(baseDir, configDir), nil
}

// newApp resolves paths and creates a ShuttleApp. The caller must defer a.Close().
// command identifies the CLI command being run (e.g. "config set", "push").
func newApp(cmd *cobra.Command, command string) (*app.ShuttleApp, error) {
	paths, err := resolvePaths(cmd)
	if err != nil {
		return nil, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := app.NewShuttleApp(paths, command, verbose)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// usageArgs classifies argument-count failures as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", shuttle.ErrUsage, err)
		}
		return nil
	}
}

// requireSubcommand is the RunE of command groups: reaching it means no
// subcommand was named.
func requireSubcommand(cmd *cobra.Command, args []string) error {
	var names []string
	for _, c := range cmd.Commands() {
		if c.IsAvailableCommand() {
			names = append(names, c.Name())
		}
	}
	return fmt.Errorf("%w: %s needs a subcommand (one of: %s)", shuttle.ErrUsage, cmd.CommandPath(), strings.Join(names, ", "))
}

var rootCmd = &cobra.Command{
	Use:           "sync-shuttle",
	Short:         "Move files between machines through a managed inbox and outbox",
	Args:          usageArgs(cobra.NoArgs),
	RunE:          requireSubcommand,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the shuttle directory layout and configuration",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := resolvePaths(cmd)
		if err != nil {
			return err
		}

		report, err := app.Init(paths)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}

		fmt.Printf("Base Dir: %s\n", paths["base_dir"])
		if report.RegistryCreated {
			fmt.Printf("Created server registry at %s\n", paths["servers_path"])
		} else {
			fmt.Printf("Server registry exists at %s\n", paths["servers_path"])
		}
		if report.SettingsCreated {
			fmt.Printf("Created settings at %s\n", paths["settings_path"])
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the server registry",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  requireSubcommand,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List server ids",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "config list")
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.Registry().List()
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var configListDetailCmd = &cobra.Command{
	Use:   "list-detail",
	Short: "List servers as status|id|user|host|port|name",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "config list-detail")
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.Registry().ListDetail()
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("NO_SERVERS")
			return nil
		}
		for _, s := range summaries {
			fmt.Println(s.String())
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get SERVER_ID",
	Short: "Print an enabled server as shell variable assignments",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "config get")
		if err != nil {
			return err
		}
		defer a.Close()

		env, err := a.Registry().ShellEnv(args[0])
		if err != nil {
			return err
		}
		for _, v := range env {
			fmt.Println(v.String())
		}
		return nil
	},
}

var configGetFieldCmd = &cobra.Command{
	Use:   "get-field SERVER_ID FIELD",
	Short: "Print one stored field of a server",
	Args:  usageArgs(cobra.ExactArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "config get-field")
		if err != nil {
			return err
		}
		defer a.Close()

		value, err := a.Registry().GetField(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set SERVER_ID FIELD VALUE",
	Short: "Set one field of a server",
	Long: fmt.Sprintf(`Set one field of a server. The value is checked against the field's type.

Fields: %s`, strings.Join(registry.Fields(), ", ")),
	Args: usageArgs(cobra.ExactArgs(3)),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "config set")
		if err != nil {
			return err
		}
		defer a.Close()

		value, err := a.Registry().SetField(args[0], args[1], args[2])
		if err != nil {
			if errors.Is(err, shuttle.ErrNotFound) {
				return fmt.Errorf("%w\nUse 'add %s' to create it first", err, args[0])
			}
			return err
		}
		fmt.Printf("Set %s.%s = %v\n", args[0], args[1], value)
		return nil
	},
}

var configAddCmd = &cobra.Command{
	Use:   "add SERVER_ID",
	Short: "Add a server with default settings (disabled)",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "config add")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Registry().Add(args[0]); err != nil {
			return err
		}
		fmt.Printf("Added server: %s\n", args[0])
		fmt.Printf("Configure with: sync-shuttle config set %s host <ip>\n", args[0])
		return nil
	},
}

var configRemoveCmd = &cobra.Command{
	Use:   "remove SERVER_ID",
	Short: "Remove a server",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "config remove")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Registry().Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed server: %s\n", args[0])
		return nil
	},
}

var configExportCmd = &cobra.Command{
	Use:   "export-json [SERVER_ID]",
	Short: "Export resolved server profiles",
	Args:  usageArgs(cobra.MaximumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format, formatJSON, formatYAML); err != nil {
			return err
		}

		a, err := newApp(cmd, "config export-json")
		if err != nil {
			return err
		}
		defer a.Close()

		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		profiles, err := a.Registry().Export(id)
		if err != nil {
			return err
		}
		return writeStructured(os.Stdout, format, profiles)
	},
}

var configSettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Print the effective application settings",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "config settings")
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("# %s\n", a.Paths()["settings_path"])
		m := &config.Manager{}
		return m.Write(os.Stdout, a.Settings())
	},
}

// files command
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Browse the inbox, the outbox, and cached remote listings",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  requireSubcommand,
}

// printEntries filters entries by --search and prints them in --format.
func printEntries(cmd *cobra.Command, entries []shuttle.FileEntry) error {
	format, _ := cmd.Flags().GetString("format")
	pattern, _ := cmd.Flags().GetString("search")
	entries = shuttle.Search(entries, pattern)

	if format != formatTable {
		return writeStructured(os.Stdout, format, entries)
	}

	human, _ := stdoutTerminal()
	now := time.Now()
	t := &table{header: []string{"LOCATION", "SIZE", "MODIFIED", "SOURCE", "PATH"}}
	for _, e := range entries {
		if human {
			t.add(string(e.Location), shuttle.HumanSize(e.Size), shuttle.RelativeAge(e.Modified, now), e.Source, e.Path)
			continue
		}
		modified := ""
		if !e.Modified.IsZero() {
			modified = e.Modified.UTC().Format(time.RFC3339)
		}
		t.add(string(e.Location), fmt.Sprintf("%d", e.Size), modified, e.Source, e.Path)
	}
	t.write(os.Stdout)
	return nil
}

func listLocal(command string, list func(*shuttle.Catalog) ([]shuttle.FileEntry, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format, formatTable, formatJSON, formatYAML); err != nil {
			return err
		}

		a, err := newApp(cmd, command)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := list(a.Catalog())
		if err != nil {
			return err
		}
		return printEntries(cmd, entries)
	}
}

var filesInboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List files received from other machines",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  listLocal("files inbox", (*shuttle.Catalog).ListInbox),
}

var filesOutboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "List files queued for other machines",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  listLocal("files outbox", (*shuttle.Catalog).ListOutbox),
}

var filesRemoteCmd = &cobra.Command{
	Use:   "remote SERVER_ID",
	Short: "List the cached remote listing of a server",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format, formatTable, formatJSON, formatYAML); err != nil {
			return err
		}
		if err := shuttle.ValidateID(args[0]); err != nil {
			return err
		}

		a, err := newApp(cmd, "files remote")
		if err != nil {
			return err
		}
		defer a.Close()

		listing, err := a.Catalog().ListRemote(args[0])
		if errors.Is(err, shuttle.ErrCacheMiss) {
			fmt.Fprintf(os.Stderr, "No cached listing for %s. Refresh with: sync-shuttle pull --server %s\n", args[0], args[0])
			return nil
		}
		if err != nil {
			return err
		}
		if !listing.OK {
			fmt.Fprintf(os.Stderr, "Last refresh of %s failed: %s\n", args[0], listing.Status)
		}
		return printEntries(cmd, listing.Entries)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a quick overview of servers, inbox, and outbox",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "stats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Catalog().Stats()
		if err != nil {
			return err
		}

		servers, enabled := 0, 0
		summaries, err := a.Registry().ListDetail()
		if err != nil && !errors.Is(err, shuttle.ErrNotFound) {
			return err
		}
		for _, s := range summaries {
			servers++
			if s.Status == "enabled" {
				enabled++
			}
		}

		fmt.Printf("Servers: %d (%d enabled)\n", servers, enabled)
		fmt.Printf("Inbox:   %d\n", stats.Inbox)
		fmt.Printf("Outbox:  %d\n", stats.Outbox)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View sync operation history",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")
		serverID, _ := cmd.Flags().GetString("server")
		status, _ := cmd.Flags().GetString("status")
		operation, _ := cmd.Flags().GetString("operation")
		if err := checkFormat(format, formatTable, formatJSON, formatYAML); err != nil {
			return err
		}

		a, err := newApp(cmd, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		limit = a.HistoryLimit(limit)
		filtered := serverID != "" || status != "" || operation != ""

		h, err := a.History(filtered)
		if err != nil {
			return err
		}

		var records []shuttle.OperationRecord
		skipped := 0
		if filtered {
			records, err = h.Query(cmd.Context(), shuttle.OperationFilter{
				ServerID:  serverID,
				Status:    strings.ToUpper(status),
				Operation: strings.ToLower(operation),
				Limit:     limit,
			})
			if err != nil {
				return err
			}
		} else {
			res, err := h.Recent(limit)
			if err != nil {
				return err
			}
			records, skipped = res.Records, res.Skipped
		}

		if format != formatTable {
			return writeStructured(os.Stdout, format, records)
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No sync operations recorded.")
			return nil
		}

		human, _ := stdoutTerminal()
		now := time.Now()
		t := &table{header: []string{"WHEN", "OPERATION", "SERVER", "STATUS", "SIZE", "TOOK", "SOURCE"}}
		for _, r := range records {
			took, hasTook := r.Duration()
			if human {
				when := r.TimestampStart
				if ts, ok := r.StartTime(); ok {
					when = shuttle.RelativeAge(ts, now)
				}
				tookText := "?"
				if hasTook {
					tookText = took.Round(time.Second).String()
				}
				t.add(when, r.Operation, r.ServerID, r.Status, shuttle.HumanSize(r.BytesTransferred), tookText, r.SourcePath)
				continue
			}
			tookText := ""
			if hasTook {
				tookText = fmt.Sprintf("%d", int64(took.Seconds()))
			}
			t.add(r.TimestampStart, r.Operation, r.ServerID, r.Status, fmt.Sprintf("%d", r.BytesTransferred), tookText, r.SourcePath)
		}
		t.write(os.Stdout)
		if skipped > 0 {
			fmt.Fprintf(os.Stderr, "Skipped %d malformed ledger line(s).\n", skipped)
		}
		return nil
	},
}

var historyIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Import new ledger records into the history index",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "history index")
		if err != nil {
			return err
		}
		defer a.Close()

		h, err := a.History(true)
		if err != nil {
			return err
		}
		before, err := h.IndexStatus(cmd.Context())
		if err != nil {
			return err
		}
		res, err := h.Reindex(cmd.Context())
		if err != nil {
			return err
		}

		previous := "never"
		if !before.LastRun.IsZero() {
			previous = before.LastRun.Format(time.RFC3339)
		}
		schema := "current"
		if !before.UpToDate {
			schema = fmt.Sprintf("latest is v%d", before.LatestVersion)
		}

		fmt.Printf("Added:     %d\n", res.Added)
		fmt.Printf("Existing:  %d\n", res.Existing)
		fmt.Printf("No UUID:   %d\n", res.NoUUID)
		fmt.Printf("Malformed: %d\n", res.Malformed)
		fmt.Printf("Previous:  %s\n", previous)
		fmt.Printf("Schema:    v%d (%s)\n", before.SchemaVersion, schema)
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-server transfer totals",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format, formatTable, formatJSON, formatYAML); err != nil {
			return err
		}

		a, err := newApp(cmd, "history stats")
		if err != nil {
			return err
		}
		defer a.Close()

		h, err := a.History(true)
		if err != nil {
			return err
		}
		activity, err := h.Activity(cmd.Context())
		if err != nil {
			return err
		}

		if format != formatTable {
			return writeStructured(os.Stdout, format, activity)
		}

		human, _ := stdoutTerminal()
		now := time.Now()
		t := &table{header: []string{"SERVER", "TOTAL", "OK", "FAILED", "BYTES", "LAST"}}
		for _, s := range activity {
			bytes := fmt.Sprintf("%d", s.Bytes)
			last := s.LastActivity
			if human {
				bytes = shuttle.HumanSize(s.Bytes)
				if ts, ok := shuttle.ParseTimestamp(s.LastActivity); ok {
					last = shuttle.RelativeAge(ts, now)
				}
			}
			t.add(s.ServerID, fmt.Sprintf("%d", s.Total), fmt.Sprintf("%d", s.Succeeded), fmt.Sprintf("%d", s.Failed), bytes, last)
		}
		t.write(os.Stdout)
		return nil
	},
}

// transfer commands
func runTransfer(operation string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		serverID, _ := cmd.Flags().GetString("server")
		source, _ := cmd.Flags().GetString("source")
		global := false
		if cmd.Flags().Lookup("global") != nil {
			global, _ = cmd.Flags().GetBool("global")
		}

		req := app.NewTransferRequest(operation, serverID, source, global)
		if err := req.Validate(); err != nil {
			return err
		}

		a, err := newApp(cmd, operation)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Transfer(cmd.Context(), req)
		if res != nil && res.Stdout != "" {
			fmt.Print(res.Stdout)
		}
		if err != nil {
			var exitErr *executor.ExitError
			if errors.As(err, &exitErr) {
				return fmt.Errorf("%s failed: %w", operation, err)
			}
			return err
		}

		target := serverID
		if global {
			target = "all servers"
		}
		fmt.Printf("%s complete: %s (%s)\n", operation, target, res.Elapsed.Truncate(time.Millisecond))
		return nil
	}
}

var pushCmd = &cobra.Command{
	Use:   "push --server SERVER_ID --source PATH",
	Short: "Send a file or directory to a server",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runTransfer(shuttle.OperationPush),
}

var pullCmd = &cobra.Command{
	Use:   "pull --server SERVER_ID",
	Short: "Fetch files from a server and refresh its listing",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runTransfer(shuttle.OperationPull),
}

var shareCmd = &cobra.Command{
	Use:   "share (--global | --server SERVER_ID) --source PATH",
	Short: "Offer a file to one server or to every server",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runTransfer(shuttle.OperationShare),
}

func init() {
	rootCmd.PersistentFlags().String("base-dir", "", "Base directory (default $SYNC_SHUTTLE_HOME or ~/.sync-shuttle)")
	rootCmd.PersistentFlags().String("config-dir", "", "Configuration directory (default $SYNC_SHUTTLE_CONFIG_DIR or <base>/config)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Mirror debug logging to stderr")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", shuttle.ErrUsage, err)
	})

	// config subcommands
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configListDetailCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configGetFieldCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configRemoveCmd)
	configCmd.AddCommand(configExportCmd)
	configExportCmd.Flags().String("format", formatJSON, "Output format: json or yaml")
	configCmd.AddCommand(configSettingsCmd)

	// files subcommands
	filesCmd.PersistentFlags().StringP("search", "s", "", "Filter by name (case-insensitive, * matches any run of characters)")
	filesCmd.PersistentFlags().String("format", formatTable, "Output format: table, json, or yaml")
	filesCmd.AddCommand(filesInboxCmd)
	filesCmd.AddCommand(filesOutboxCmd)
	filesCmd.AddCommand(filesRemoteCmd)

	// history subcommands
	historyCmd.Flags().IntP("limit", "n", -1, "Maximum number of operations to show (default from settings)")
	historyCmd.Flags().String("server", "", "Only operations for this server")
	historyCmd.Flags().String("status", "", "Only operations with this status (e.g. SUCCESS, FAILURE)")
	historyCmd.Flags().String("operation", "", "Only operations of this kind (push, pull, share)")
	historyCmd.Flags().String("format", formatTable, "Output format: table, json, or yaml")
	historyCmd.AddCommand(historyIndexCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyStatsCmd.Flags().String("format", formatTable, "Output format: table, json, or yaml")

	// transfer commands
	pushCmd.Flags().String("server", "", "Target server id")
	pushCmd.Flags().String("source", "", "Local file or directory to send")
	pullCmd.Flags().String("server", "", "Source server id")
	shareCmd.Flags().String("server", "", "Target server id")
	shareCmd.Flags().String("source", "", "Local file or directory to share")
	shareCmd.Flags().Bool("global", false, "Share with every server")

	// root commands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(shareCmd)
}
