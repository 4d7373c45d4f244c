package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zoobzio/pushz"
	"github.com/zoobzio/pushz/storage"
	"github.com/zoobzio/pushz/storage/fs"
)

func runSort(cmd *cobra.Command, opts *RootOptions, args []string) error {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, &cfg)

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	loop := pushz.NewEventloop().WithWorkers(cfg.Workers).WithLogger(logger)
	runs, err := fs.New[string](loop, storage.JSON[string]{}, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := runs.Close(); err != nil {
			logger.Warn("failed to remove runs", "dir", runs.Dir(), "error", err)
		}
	}()
	runs.WithLogger(logger)

	sorter := pushz.NewSorterWithConfig[string, string](runs, identity, strings.Compare, cfg.Sorter).WithLogger(logger)

	lines, scanErr := scanLines(in)
	out := bufio.NewWriter(cmd.OutOrStdout())
	var done *pushz.Promise[struct{}]
	loop.Post(func() {
		pushz.StreamTo(pushz.OfChannel(loop, lines), sorter.Input())
		done = pushz.StreamTo(sorter.Output(), pushz.ForEach(func(line string) {
			out.WriteString(line)
			out.WriteByte('\n')
		}))
	})
	loop.Run()

	if err := done.Err(); err != nil {
		return fmt.Errorf("sort failed: %w", err)
	}
	if err := <-scanErr; err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	logger.Debug("sorted", "runs", len(sorter.Runs()))
	return out.Flush()
}

// scanLines reads r on its own goroutine. The error channel receives once
// after lines is closed.
func scanLines(r io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string, 256)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), storage.MaxFrameSize)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
		errc <- scanner.Err()
	}()
	return lines, errc
}

func identity(s string) string {
	return s
}
