// Package weaver reconstructs browsable conversation documents from
// exported voice and messaging archives. An archive arrives as thousands of
// per-conversation HTML fragments commingled with an attachment pool of
// image, audio, video, and contact files; the weaver parses the fragments,
// resolves their attachment references against a lazily built pool index,
// groups messages into conversations, and renders one document per
// conversation plus a summary index.
//
// The package is UI-agnostic. Progress is observable through the Hooks
// interface, and all collaborators (parser, alias resolver, renderer, scan
// cache) are replaceable through Options.
package weaver

import (
	"context"
	"fmt"
)

// Reconstruct runs a complete reconstruction with the given options and
// returns the final report. The report is populated even when the run
// fails, so callers can surface partial results. The context cancels the
// run at the next fragment boundary.
func Reconstruct(ctx context.Context, opts Options) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	engine, err := NewEngine(ctx, opts)
	if err != nil {
		return Report{}, fmt.Errorf("engine setup failed: %w", err)
	}
	return engine.Run()
}
