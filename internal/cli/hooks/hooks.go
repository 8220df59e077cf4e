package hooks

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/voiceweave/voice-weaver/pkg/weaver"
)

// --- TUI Message Structs ---

// FragmentDiscoveredMsg signals that the discovery walk found a fragment.
type FragmentDiscoveredMsg struct{ Path string }

// FragmentStatusUpdateMsg signals a change in a fragment's processing
// status.
type FragmentStatusUpdateMsg struct {
	Path     string
	Status   weaver.Status
	Message  string
	Duration time.Duration
}

// PhaseMsg signals that the run entered a new pipeline stage.
type PhaseMsg struct{ Phase weaver.Phase }

// RunCompleteMsg signals the completion of the entire run.
type RunCompleteMsg struct{ Report weaver.Report }

// --- UI Interfaces ---

// TUIProgram is the part of a Bubble Tea program the hooks need.
type TUIProgram interface {
	Send(msg interface{})
}

// ProgressBar is the part of a progress bar the hooks need.
type ProgressBar interface {
	Add(num int) error
	Describe(description string) error
	Close() error
}

// NoOpTUIProgram provides a default null implementation.
type NoOpTUIProgram struct{}

func (n *NoOpTUIProgram) Send(msg interface{}) {}

// NoOpProgressBar provides a default null implementation.
type NoOpProgressBar struct{}

func (n *NoOpProgressBar) Add(num int) error                 { return nil }
func (n *NoOpProgressBar) Describe(description string) error { return nil }
func (n *NoOpProgressBar) Close() error                      { return nil }

// --- Hook Implementation ---

// CLIHooks implements weaver.Hooks, bridging library events to the CLI's
// output layer: the TUI when active, the structured logger in verbose mode,
// or a progress bar on a plain terminal.
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram
	progressBar    ProgressBar
	barActive      bool
	mu             sync.Mutex
}

// NewCLIHooks creates hooks for the selected output mode. tuiProg and
// progBar may be nil; no-op implementations are substituted.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram, progBar ProgressBar) weaver.Hooks {
	barActive := progBar != nil
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	if progBar == nil {
		progBar = &NoOpProgressBar{}
	}
	return &CLIHooks{
		logger:         logger,
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
		progressBar:    progBar,
		barActive:      barActive,
	}
}

// OnFragmentDiscovered handles discovery events. Hook errors are ignored by
// the library, so this always returns nil.
func (h *CLIHooks) OnFragmentDiscovered(path string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FragmentDiscoveredMsg{Path: path})
	} else if h.verboseEnabled {
		h.logger.Debug("Fragment discovered", slog.String("path", path))
	}
	return nil
}

// OnFragmentStatusUpdate handles per-fragment state changes. Safe for
// concurrent calls from the worker pool.
func (h *CLIHooks) OnFragmentStatusUpdate(path string, status weaver.Status, message string, duration time.Duration) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FragmentStatusUpdateMsg{
			Path:     path,
			Status:   status,
			Message:  message,
			Duration: duration,
		})
		return nil
	}

	if h.verboseEnabled {
		level := slog.LevelDebug
		logMsg := "Fragment status updated"
		attrs := []any{
			slog.String("path", path),
			slog.String("status", string(status)),
		}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		if message != "" {
			key := "message"
			if status == weaver.StatusFailed {
				key = "error"
			}
			attrs = append(attrs, slog.String(key, message))
		}
		switch status {
		case weaver.StatusSuccess, weaver.StatusSkipped:
			level = slog.LevelInfo
		case weaver.StatusFailed:
			level = slog.LevelError
			logMsg = "Fragment processing failed"
		}
		h.logger.Log(nil, level, logMsg, attrs...)
		return nil
	}

	if h.barActive {
		h.mu.Lock()
		final := status == weaver.StatusSuccess ||
			status == weaver.StatusFailed ||
			status == weaver.StatusSkipped
		if final {
			_ = h.progressBar.Add(1)
		}
		h.mu.Unlock()
	}

	// Failures stay visible in every mode.
	if status == weaver.StatusFailed {
		h.logger.Error("Fragment processing failed",
			slog.String("path", path),
			slog.String("error", message))
	}
	return nil
}

// phaseDescriptions maps pipeline stages to progress bar text.
var phaseDescriptions = map[weaver.Phase]string{
	weaver.PhaseDiscover: "discovering fragments",
	weaver.PhaseParse:    "parsing fragments",
	weaver.PhaseScan:     "scanning attachment pool",
	weaver.PhaseResolve:  "resolving references",
	weaver.PhaseAssemble: "assembling conversations",
	weaver.PhaseRender:   "rendering documents",
}

// OnPhase handles stage transitions.
func (h *CLIHooks) OnPhase(phase weaver.Phase) error {
	switch {
	case h.tuiEnabled:
		h.tuiProgram.Send(PhaseMsg{Phase: phase})
	case h.barActive:
		if desc, ok := phaseDescriptions[phase]; ok {
			h.mu.Lock()
			_ = h.progressBar.Describe(desc)
			h.mu.Unlock()
		}
	case h.verboseEnabled:
		h.logger.Info("Entering phase", slog.String("phase", string(phase)))
	}
	return nil
}

// OnRunComplete forwards the final report to the TUI or tears down the
// progress bar. Printing the summary is the CLI layer's job.
func (h *CLIHooks) OnRunComplete(report weaver.Report) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
		return nil
	}
	if h.barActive {
		h.mu.Lock()
		_ = h.progressBar.Close()
		h.mu.Unlock()
		// Keep the shell prompt off the bar's line.
		fmt.Fprintln(os.Stderr)
	}
	return nil
}
