package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// options holds the CLI flags shared by the one-shot, TUI and service modes.
type options struct {
	path       string
	threads    int
	minSizeStr string
	limit      int
	staleDays  int
	excludes   []string
	noProgress bool

	jsonOut bool
	tuiMode bool

	service    bool
	host       string
	port       int
	taskTTLSec int
	verbose    bool
}

// newRootCmd creates the surf command.
func newRootCmd() *cobra.Command {
	opts := &options{
		path:    ".",
		threads: runtime.NumCPU(),
	}

	cmd := &cobra.Command{
		Use:   "surf",
		Short: "Analyze disk usage",
		Long: `Scans a directory tree in parallel and reports where the space went:
largest files, per-extension totals and stale files.

Default mode prints a one-shot report. --tui opens an interactive browser
with safe (trash-based) deletion; --service starts a local JSON-RPC service
that multiplexes concurrent scans.`,
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			switch {
			case opts.service:
				return runService(opts)
			case opts.tuiMode:
				if opts.jsonOut {
					return fmt.Errorf("--json cannot be used together with --tui")
				}
				return runTUI(opts)
			default:
				return runOneShot(opts)
			}
		},
	}

	// Bind flags to options
	cmd.Flags().StringVarP(&opts.path, "path", "p", opts.path, "Directory to scan")
	cmd.Flags().IntVarP(&opts.threads, "threads", "t", opts.threads, "Number of scan threads")
	cmd.Flags().StringVarP(&opts.minSizeStr, "min-size", "m", "", "Minimum file size (e.g., 100, 1K, 10M, 1G)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Number of top files to report")
	cmd.Flags().IntVar(&opts.staleDays, "stale-days", -1, "Report files not modified for this many days")
	cmd.Flags().StringSliceVarP(&opts.excludes, "exclude", "e", nil, "Glob patterns to exclude (matched against full paths)")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Emit machine-readable JSON on stdout")
	cmd.Flags().BoolVar(&opts.tuiMode, "tui", false, "Open the interactive browser")
	cmd.Flags().BoolVarP(&opts.service, "service", "s", false, "Run the JSON-RPC service")
	cmd.Flags().StringVar(&opts.host, "host", "127.0.0.1", "Service listen host")
	cmd.Flags().IntVar(&opts.port, "port", 1234, "Service listen port")
	cmd.Flags().IntVar(&opts.taskTTLSec, "task-ttl-seconds", 3600, "Retention of finished tasks in the service")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose service logging")

	return cmd
}
