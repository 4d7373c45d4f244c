package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds the command-line flags.
type RootOptions struct {
	ConfigPath    string
	ItemsInMemory int
	Dedupe        bool
	Dir           string
	Workers       int
	Verbose       bool
}

// NewRootCommand creates the pushsort command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pushsort [file]",
		Short: "Sort lines with an external merge sort",
		Long: `Sort the lines of a file, or stdin when no file or "-" is given.

Lines are sorted in batches of --items-in-memory. Every full batch is written
as a sorted run to a session directory under --dir, and all runs are merged
into the output. The session directory is removed on exit.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	flags.IntVarP(&opts.ItemsInMemory, "items-in-memory", "n", 0, "lines per sorted run (overrides config)")
	flags.BoolVarP(&opts.Dedupe, "dedupe", "u", false, "output each distinct line once")
	flags.StringVar(&opts.Dir, "dir", "", "parent directory for spilled runs (overrides config)")
	flags.IntVar(&opts.Workers, "workers", 0, "concurrent file operations (overrides config)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log sorter activity to stderr")

	return cmd
}

// applyFlags overrides cfg with the flags that were set.
func applyFlags(cmd *cobra.Command, opts *RootOptions, cfg *Config) {
	flags := cmd.Flags()
	if flags.Changed("items-in-memory") {
		cfg.Sorter.ItemsInMemory = opts.ItemsInMemory
	}
	if flags.Changed("dedupe") {
		cfg.Sorter.Deduplicate = opts.Dedupe
	}
	if flags.Changed("dir") {
		cfg.Storage.Dir = opts.Dir
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
}
