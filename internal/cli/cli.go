// Package cli wires the weaver library to the terminal. It selects the
// output mode (interactive TUI, progress bar, or plain logs), drives
// watch mode, and prints the final report.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/voiceweave/voice-weaver/internal/cli/hooks"
	"github.com/voiceweave/voice-weaver/internal/cli/ui"
	"github.com/voiceweave/voice-weaver/pkg/weaver"
)

// maxReportListEntries bounds the skip and error listings in the text
// report; the JSON report always carries everything.
const maxReportListEntries = 10

// Run executes the reconstruction with validated options. In watch mode
// it keeps re-running until the context is cancelled.
func Run(ctx context.Context, opts weaver.Options, logger *slog.Logger) error {
	if opts.WatchMode {
		return runWatch(ctx, opts, logger)
	}

	report, err := runOnce(ctx, opts, logger)
	printReport(os.Stdout, report, opts.ReportFormat)
	return err
}

// runWatch performs an initial run, then re-runs on every debounced batch
// of input changes. Run failures are logged, not fatal; the user fixes the
// input and saves to retrigger.
func runWatch(ctx context.Context, opts weaver.Options, logger *slog.Logger) error {
	// The TUI takes over the terminal between runs; watch mode sticks to
	// the streaming output paths.
	opts.TuiEnabled = false

	report, err := runOnce(ctx, opts, logger)
	printReport(os.Stdout, report, opts.ReportFormat)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logger.Error("Run failed", slog.Any("error", err))
	}

	watcher, err := NewArchiveWatcher(opts.Logger, opts.InputPath, opts.OutputPath, opts.WatchDebounce)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Watch(); err != nil {
		return fmt.Errorf("failed to watch input tree '%s': %w", opts.InputPath, err)
	}

	logger.Info("Watching for changes",
		slog.String("path", opts.InputPath),
		slog.Duration("debounce", opts.WatchDebounce))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watch mode stopped")
			return nil
		case <-watcher.Runs():
			logger.Info("Input changed, re-running")
			report, err := runOnce(ctx, opts, logger)
			printReport(os.Stdout, report, opts.ReportFormat)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("Run failed", slog.Any("error", err))
			}
		}
	}
}

// runOnce performs a single reconstruction in the appropriate output mode.
func runOnce(ctx context.Context, opts weaver.Options, logger *slog.Logger) (weaver.Report, error) {
	interactive := term.IsTerminal(int(os.Stderr.Fd()))

	switch {
	case opts.TuiEnabled && interactive:
		return runWithTUI(ctx, opts, logger)
	case !opts.Verbose && interactive:
		return runWithProgressBar(ctx, opts, logger)
	default:
		opts.EventHooks = hooks.NewCLIHooks(logger, false, opts.Verbose, nil, nil)
		return weaver.Reconstruct(ctx, opts)
	}
}

// teaProgramAdapter bridges *tea.Program's Send(tea.Msg) to the
// hooks.TUIProgram interface, whose Send takes interface{}.
type teaProgramAdapter struct{ p *tea.Program }

func (a teaProgramAdapter) Send(msg interface{}) { a.p.Send(msg) }

// runWithTUI runs the engine in a goroutine while the Bubble Tea program
// owns the terminal. The program exits on RunCompleteMsg or when the user
// quits; a user quit cancels the in-flight run.
func runWithTUI(ctx context.Context, opts weaver.Options, logger *slog.Logger) (weaver.Report, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(opts.AppVersion)
	program := tea.NewProgram(&model, tea.WithOutput(os.Stderr), tea.WithContext(runCtx))

	opts.EventHooks = hooks.NewCLIHooks(logger, true, false, teaProgramAdapter{program}, nil)

	type runResult struct {
		report weaver.Report
		err    error
	}
	resultCh := make(chan runResult, 1)
	go func() {
		report, err := weaver.Reconstruct(runCtx, opts)
		resultCh <- runResult{report: report, err: err}
	}()

	if _, tuiErr := program.Run(); tuiErr != nil && !errors.Is(tuiErr, tea.ErrProgramKilled) {
		logger.Warn("Terminal UI exited with error", slog.Any("error", tuiErr))
	}

	// The UI is gone: either the run completed or the user quit. Cancel so
	// an in-flight run stops promptly, then collect the result.
	cancel()
	res := <-resultCh
	return res.report, res.err
}

// runWithProgressBar runs the engine behind an indeterminate spinner bar
// on stderr, counting fragments as they reach a final state.
func runWithProgressBar(ctx context.Context, opts weaver.Options, logger *slog.Logger) (weaver.Report, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Starting..."),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	opts.EventHooks = hooks.NewCLIHooks(logger, false, false, nil, &barProgress{bar: bar})
	return weaver.Reconstruct(ctx, opts)
}

// barProgress adapts *progressbar.ProgressBar to the hooks.ProgressBar
// interface (Describe returns no error there).
type barProgress struct {
	bar *progressbar.ProgressBar
}

func (b *barProgress) Add(num int) error { return b.bar.Add(num) }

func (b *barProgress) Describe(description string) error {
	b.bar.Describe(description)
	return nil
}

func (b *barProgress) Close() error { return b.bar.Close() }

// printReport writes the final report to w in the configured format. A
// zero report (engine setup failed before a run started) prints nothing.
func printReport(w io.Writer, report weaver.Report, format weaver.ReportFormat) {
	if report.Summary.SchemaVersion == "" {
		return
	}

	if format == weaver.ReportFormatJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode report: %v\n", err)
			return
		}
		fmt.Fprintln(w, string(data))
		return
	}

	s := report.Summary
	fmt.Fprintf(w, "\nReconstruction finished in %.2fs\n", s.DurationSeconds)
	fmt.Fprintf(w, "  Conversations: %d written, %d messages\n", s.ConversationsWritten, s.MessageCount)
	fmt.Fprintf(w, "  Fragments:     %d parsed, %d skipped of %d discovered\n",
		s.FragmentsParsed, s.FragmentsSkipped, s.FragmentsDiscovered)
	if s.PoolScanSkipped {
		fmt.Fprintf(w, "  Attachments:   no references, pool scan skipped\n")
	} else {
		fmt.Fprintf(w, "  Attachments:   %d of %d references resolved, %d copied\n",
			s.ResolvedCount, s.ReferenceCount, s.AttachmentsCopied)
		fmt.Fprintf(w, "  Pool scan:     %d files indexed, cache %s\n", s.PoolFilesIndexed, s.CacheStatus)
	}
	if s.UnresolvedCount > 0 {
		fmt.Fprintf(w, "  Unresolved:    %d reference(s)\n", s.UnresolvedCount)
		for i, u := range report.Unresolved {
			if i == maxReportListEntries {
				fmt.Fprintf(w, "    ... and %d more\n", len(report.Unresolved)-maxReportListEntries)
				break
			}
			fmt.Fprintf(w, "    %s\n", u.Token)
		}
	}
	if s.RenderFailures > 0 {
		fmt.Fprintf(w, "  Render:        %d conversation(s) written as placeholders\n", s.RenderFailures)
	}
	if len(report.SkippedFragments) > 0 {
		fmt.Fprintf(w, "  Skipped fragments:\n")
		for i, sk := range report.SkippedFragments {
			if i == maxReportListEntries {
				fmt.Fprintf(w, "    ... and %d more\n", len(report.SkippedFragments)-maxReportListEntries)
				break
			}
			fmt.Fprintf(w, "    %s (%s)\n", sk.Path, sk.Reason)
		}
	}
	if s.ErrorCount > 0 {
		fmt.Fprintf(w, "  Errors:\n")
		for i, e := range report.Errors {
			if i == maxReportListEntries {
				fmt.Fprintf(w, "    ... and %d more\n", len(report.Errors)-maxReportListEntries)
				break
			}
			if e.Path != "" {
				fmt.Fprintf(w, "    %s: %s\n", e.Path, e.Error)
			} else {
				fmt.Fprintf(w, "    %s\n", e.Error)
			}
		}
	}
	if s.FatalErrorOccurred {
		fmt.Fprintf(w, "  Run halted by a fatal error; output is incomplete.\n")
	}
}
