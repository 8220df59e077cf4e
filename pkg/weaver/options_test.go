package weaver_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceweave/voice-weaver/internal/testutil"
	"github.com/voiceweave/voice-weaver/pkg/weaver"
)

// TestNoOpHooks verifies that the NoOpHooks implementation runs without
// panicking and returns nil from every callback.
func TestNoOpHooks(t *testing.T) {
	hooks := &weaver.NoOpHooks{}
	require.NotNil(t, hooks)

	assert.NotPanics(t, func() {
		assert.NoError(t, hooks.OnFragmentDiscovered("Calls/some.html"))
		assert.NoError(t, hooks.OnFragmentStatusUpdate("Calls/some.html", weaver.StatusSuccess, "", 10*time.Millisecond))
		assert.NoError(t, hooks.OnPhase(weaver.PhaseParse))
		assert.NoError(t, hooks.OnRunComplete(weaver.Report{}))
	})
}

// TestNoOpScanCache verifies the disabled-cache stand-in: it never
// validates, holds nothing, and persists nothing.
func TestNoOpScanCache(t *testing.T) {
	cache := &weaver.NoOpScanCache{}

	assert.NoError(t, cache.Load("/nonexistent/path"))
	assert.False(t, cache.Validate("any-fingerprint", 5), "a disabled cache never stands in for a scan")
	assert.Nil(t, cache.Entries())
	assert.NotPanics(t, func() {
		cache.Replace(map[string]string{"a.jpg": "Calls/a.jpg"}, "fp")
	})
	assert.False(t, cache.Validate("fp", 1), "Replace on the no-op cache stores nothing")
	assert.NoError(t, cache.Persist("/nonexistent/path"))
}

// TestOptionsInterfaceAssignment verifies that mock implementations can be
// assigned to the interface fields in the Options struct.
func TestOptionsInterfaceAssignment(t *testing.T) {
	opts := weaver.Options{}

	opts.EventHooks = &weaver.NoOpHooks{}
	opts.ScanCache = &testutil.MockScanCache{}
	opts.AliasResolver = &testutil.MockAliasResolver{}
	opts.FragmentParser = &testutil.MockParser{}
	opts.EncodingHandler = &testutil.MockEncodingHandler{}
	opts.Renderer = &testutil.MockRenderer{}
	opts.MediaTyper = &testutil.MockDetector{}
	opts.Logger = slog.NewJSONHandler(io.Discard, nil)

	assert.NotNil(t, opts.EventHooks)
	assert.NotNil(t, opts.ScanCache)
	assert.NotNil(t, opts.AliasResolver)
	assert.NotNil(t, opts.FragmentParser)
	assert.NotNil(t, opts.EncodingHandler)
	assert.NotNil(t, opts.Renderer)
	assert.NotNil(t, opts.MediaTyper)
	assert.NotNil(t, opts.Logger)
}
