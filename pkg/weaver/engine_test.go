package weaver_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voiceweave/voice-weaver/internal/testutil"
	"github.com/voiceweave/voice-weaver/pkg/weaver"
	"github.com/voiceweave/voice-weaver/pkg/weaver/alias"
)

// --- Archive Fixtures ---

const engineTextThreadHTML = `<html><body>
<div class="hChatLog hfeed">
  <div class="message">
    <abbr class="dt" title="2024-01-15T18:32:45.000Z">Jan 15</abbr>:
    <cite class="sender vcard"><a class="tel" href="tel:+15551234567"><span class="fn">Alice Smith</span></a></cite>:
    <q>Check this out</q>
    <div><img src="Alice Smith - Text - 2024-01-15T18_32_45Z-1-1" alt="Image MMS" /></div>
  </div>
  <div class="message">
    <abbr class="dt" title="2024-01-15T18:33:10.000Z">Jan 15</abbr>:
    <cite class="sender vcard"><a class="tel" href="tel:"><abbr class="fn" title="">Me</abbr></a></cite>:
    <q>Nice</q>
  </div>
</div>
</body></html>`

const enginePlacedCallHTML = `<html><body>
<div class="haudio">
  <span class="fn">Placed call to</span>
  <div class="contributor vcard">
    <a class="tel" href="tel:+15559876543"><span class="fn">Bob Jones</span></a>
  </div>
  <abbr class="published" title="2024-03-10T22:05:00.000Z">Mar 10</abbr>
  <abbr class="duration" title="PT2M15S">(00:02:15)</abbr>
</div>
</body></html>`

const engineVoicemailHTML = `<html><body>
<div class="haudio">
  <span class="fn">Voicemail from</span>
  <div class="contributor vcard">
    <a class="tel" href="tel:+15559876543"><span class="fn">Bob Jones</span></a>
  </div>
  <abbr class="published" title="2024-03-11T17:00:00.000Z">Mar 11</abbr>
  <abbr class="duration" title="PT45S">(00:00:45)</abbr>
  <span class="full-text">Hey, call me back when you get a chance.</span>
  <audio controls="controls" src="Bob Jones - Voicemail - 2024-03-11T17_00_00Z.mp3"></audio>
</div>
</body></html>`

const engineEmptyBodyHTML = `<html><body></body></html>`

// engineArchive writes a three-fragment archive: an MMS thread whose image
// sits next to it in the pool, a placed call, and a voicemail with its
// recording.
func engineArchive(t *testing.T) string {
	t.Helper()
	input := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(input, "Calls", "Alice Smith - Text - 2024-01-15T18_32_45Z.html"), engineTextThreadHTML)
	testutil.CreateDummyFile(t, filepath.Join(input, "Calls", "Alice Smith - Text - 2024-01-15T18_32_45Z-1-1.jpg"), "jpeg-bytes")
	testutil.CreateDummyFile(t, filepath.Join(input, "Calls", "Bob Jones - Placed - 2024-03-10T22_05_00Z.html"), enginePlacedCallHTML)
	testutil.CreateDummyFile(t, filepath.Join(input, "Calls", "Bob Jones - Voicemail - 2024-03-11T17_00_00Z.html"), engineVoicemailHTML)
	testutil.CreateDummyFile(t, filepath.Join(input, "Calls", "Bob Jones - Voicemail - 2024-03-11T17_00_00Z.mp3"), "mp3-bytes")
	return input
}

func engineOptions(t *testing.T, input string) weaver.Options {
	t.Helper()
	return weaver.Options{
		InputPath:       input,
		OutputPath:      t.TempDir(),
		AppVersion:      "test",
		Concurrency:     2,
		CacheEnabled:    true,
		CopyAttachments: true,
		DocumentFormat:  weaver.DocumentFormatMarkdown,
		Logger:          slog.NewTextHandler(io.Discard, nil),
		AliasResolver:   alias.NewStatic(map[string]string{"+15551234567": "Alice Smith"}),
	}
}

// --- Full Run ---

func TestReconstruct_FullArchive(t *testing.T) {
	opts := engineOptions(t, engineArchive(t))

	report, err := weaver.Reconstruct(context.Background(), opts)
	require.NoError(t, err)

	s := report.Summary
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, weaver.ReportSchemaVersion, s.SchemaVersion)
	assert.Equal(t, 3, s.FragmentsDiscovered)
	assert.Equal(t, 3, s.FragmentsParsed)
	assert.Equal(t, 0, s.FragmentsSkipped)
	assert.Equal(t, 4, s.MessageCount)
	assert.Equal(t, 2, s.ConversationCount)
	assert.Equal(t, 2, s.ConversationsWritten)
	assert.Equal(t, 0, s.EmptyConversations)
	assert.Equal(t, 2, s.ReferenceCount)
	assert.Equal(t, 2, s.ResolvedCount)
	assert.Equal(t, 0, s.UnresolvedCount)
	assert.Equal(t, 2, s.AttachmentsCopied)
	assert.Equal(t, 0, s.AttachmentCopyFailures)
	assert.Equal(t, 2, s.PoolFilesIndexed)
	assert.False(t, s.PoolScanSkipped)
	assert.Equal(t, weaver.CacheStatusMiss, s.CacheStatus)
	assert.Equal(t, 0, s.ErrorCount)
	assert.False(t, s.FatalErrorOccurred)
	assert.Equal(t, 2, s.Concurrency)
	assert.True(t, s.CacheEnabled)
	assert.Equal(t, map[string]int{
		weaver.StrategyExact:        1,
		weaver.StrategyOriginPrefix: 1,
	}, s.ResolutionBreakdown)

	require.Len(t, report.Conversations, 2)
	bob, alice := report.Conversations[0], report.Conversations[1]
	assert.Equal(t, "+15559876543", bob.ID, "identifiers without an alias fall back to the raw number")
	assert.Equal(t, 1, bob.CallCount)
	assert.Equal(t, 1, bob.VoicemailCount)
	assert.Equal(t, 1, bob.AttachmentCount)
	assert.Equal(t, "Alice Smith", alice.ID)
	assert.Equal(t, 2, alice.SMSCount)
	assert.Equal(t, 1, alice.AttachmentCount)

	out := opts.OutputPath
	aliceDoc := readOutput(t, out, "Alice Smith.md")
	assert.Contains(t, aliceDoc, "# Alice Smith")
	assert.Contains(t, aliceDoc, "Check this out")
	assert.Contains(t, aliceDoc, "](attachments/Alice Smith - Text - 2024-01-15T18_32_45Z-1-1.jpg)")

	bobDoc := readOutput(t, out, "+15559876543.md")
	assert.Contains(t, bobDoc, "Placed call (2m15s)")
	assert.Contains(t, bobDoc, "Hey, call me back when you get a chance.")
	assert.Contains(t, bobDoc, "](attachments/Bob Jones - Voicemail - 2024-03-11T17_00_00Z.mp3)")

	assert.FileExists(t, filepath.Join(out, "index.md"))
	copied, err := os.ReadFile(filepath.Join(out, weaver.AttachmentsDirName, "Alice Smith - Text - 2024-01-15T18_32_45Z-1-1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(copied))
	assert.FileExists(t, filepath.Join(out, weaver.CacheFileName))
}

// --- Cache Behavior Across Runs ---

func TestReconstruct_SecondRunHitsCache(t *testing.T) {
	opts := engineOptions(t, engineArchive(t))

	first, err := weaver.Reconstruct(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, weaver.CacheStatusMiss, first.Summary.CacheStatus)

	second, err := weaver.Reconstruct(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, weaver.CacheStatusHit, second.Summary.CacheStatus)
	assert.Equal(t, 2, second.Summary.PoolFilesIndexed)
	assert.Equal(t, 2, second.Summary.ResolvedCount, "the cached index must resolve like a fresh scan")

	refresh := opts
	refresh.IgnoreCacheRead = true
	third, err := weaver.Reconstruct(context.Background(), refresh)
	require.NoError(t, err)
	assert.Equal(t, weaver.CacheStatusMiss, third.Summary.CacheStatus)
}

func TestReconstruct_NoReferencesSkipsPoolScan(t *testing.T) {
	// A call fragment carries no attachment references, so the pool is
	// never consulted.
	callOnlyArchive := func(t *testing.T) string {
		input := t.TempDir()
		testutil.CreateDummyFile(t, filepath.Join(input, "Calls", "Bob Jones - Placed - 2024-03-10T22_05_00Z.html"), enginePlacedCallHTML)
		return input
	}

	t.Run("Cache enabled", func(t *testing.T) {
		opts := engineOptions(t, callOnlyArchive(t))

		report, err := weaver.Reconstruct(context.Background(), opts)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Summary.FragmentsParsed)
		assert.True(t, report.Summary.PoolScanSkipped)
		assert.Equal(t, weaver.CacheStatusSkipped, report.Summary.CacheStatus)
		assert.Equal(t, 0, report.Summary.PoolFilesIndexed)
		assert.NoFileExists(t, filepath.Join(opts.OutputPath, weaver.CacheFileName), "nothing was scanned, so nothing is persisted")
		assert.NoDirExists(t, filepath.Join(opts.OutputPath, weaver.AttachmentsDirName))
	})

	t.Run("Cache disabled", func(t *testing.T) {
		opts := engineOptions(t, callOnlyArchive(t))
		opts.CacheEnabled = false

		report, err := weaver.Reconstruct(context.Background(), opts)
		require.NoError(t, err)

		assert.True(t, report.Summary.PoolScanSkipped)
		assert.Equal(t, weaver.CacheStatusDisabled, report.Summary.CacheStatus)
	})
}

// --- Fragment-Level Failures ---

func TestReconstruct_SkipsMalformedFragments(t *testing.T) {
	input := engineArchive(t)
	testutil.CreateDummyFile(t, filepath.Join(input, "Calls", "odd - Unknown - stamp.html"), "<html></html>")
	testutil.CreateDummyFile(t, filepath.Join(input, "Calls", "Nobody - Text - 2024-01-01T00_00_00Z.html"), engineEmptyBodyHTML)
	opts := engineOptions(t, input)

	report, err := weaver.Reconstruct(context.Background(), opts)
	require.NoError(t, err, "continue mode never fails the run for fragment errors")

	s := report.Summary
	assert.Equal(t, 5, s.FragmentsDiscovered)
	assert.Equal(t, 3, s.FragmentsParsed)
	assert.Equal(t, 2, s.FragmentsSkipped)
	assert.Equal(t, 2, s.WarningCount)
	assert.False(t, s.FatalErrorOccurred)

	require.Len(t, report.SkippedFragments, 2)
	reasons := map[string]string{}
	for _, sk := range report.SkippedFragments {
		reasons[filepath.Base(sk.Path)] = sk.Reason
	}
	assert.Equal(t, weaver.SkipReasonEmptyFragment, reasons["Nobody - Text - 2024-01-01T00_00_00Z.html"])
	assert.Equal(t, weaver.SkipReasonParseError, reasons["odd - Unknown - stamp.html"])
}

func TestReconstruct_StopModePromotesFragmentErrors(t *testing.T) {
	input := engineArchive(t)
	testutil.CreateDummyFile(t, filepath.Join(input, "Calls", "odd - Unknown - stamp.html"), "<html></html>")
	opts := engineOptions(t, input)
	opts.OnErrorMode = weaver.OnErrorStop

	report, err := weaver.Reconstruct(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, weaver.ErrProcessingStopped)

	assert.True(t, report.Summary.FatalErrorOccurred)
	require.NotEmpty(t, report.Errors)
	fatal := false
	for _, e := range report.Errors {
		fatal = fatal || e.IsFatal
	}
	assert.True(t, fatal, "the promoting error must be recorded as fatal")
}

func TestReconstruct_UnresolvedReferencesSurviveMerged(t *testing.T) {
	input := t.TempDir()
	shared := `<html><body><div class="hChatLog hfeed">
<div class="message">
  <abbr class="dt" title="2024-01-15T18:32:45.000Z">Jan 15</abbr>
  <cite class="sender vcard"><a class="tel" href="tel:%s"><span class="fn">%s</span></a></cite>
  <q>photo attached</q>
  <div><img src="shared.jpg" alt="Image MMS" /></div>
</div>
</div></body></html>`
	testutil.CreateDummyFile(t, filepath.Join(input, "Calls", "Ann - Text - 2024-01-15T18_32_45Z.html"),
		fmt.Sprintf(shared, "+15550000001", "Ann"))
	testutil.CreateDummyFile(t, filepath.Join(input, "Calls", "Ben - Text - 2024-01-15T18_32_45Z.html"),
		fmt.Sprintf(shared, "+15550000002", "Ben"))
	opts := engineOptions(t, input)

	report, err := weaver.Reconstruct(context.Background(), opts)
	require.NoError(t, err)

	s := report.Summary
	assert.Equal(t, 1, s.ReferenceCount, "the same token in two fragments merges into one reference")
	assert.Equal(t, 0, s.ResolvedCount)
	assert.Equal(t, 1, s.UnresolvedCount)
	assert.Equal(t, 0, s.AttachmentsCopied)
	assert.False(t, s.PoolScanSkipped)
	assert.Equal(t, weaver.CacheStatusMiss, s.CacheStatus)

	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, "shared.jpg", report.Unresolved[0].Token)
	assert.Equal(t, []string{
		filepath.Join("Calls", "Ann - Text - 2024-01-15T18_32_45Z.html"),
		filepath.Join("Calls", "Ben - Text - 2024-01-15T18_32_45Z.html"),
	}, report.Unresolved[0].Origins, "origins are sorted and deduplicated")

	assert.NoDirExists(t, filepath.Join(opts.OutputPath, weaver.AttachmentsDirName))

	doc := readOutput(t, opts.OutputPath, "+15550000001.md")
	assert.Contains(t, doc, "attachment not found: shared.jpg", "messages with unresolved references still render")
}

func TestReconstruct_AttachmentCopyFailureIsNonFatal(t *testing.T) {
	input := engineArchive(t)
	opts := engineOptions(t, input)
	// A directory squatting on the destination name makes this one copy
	// fail while the other proceeds.
	testutil.CreateDummyDir(t, filepath.Join(opts.OutputPath, weaver.AttachmentsDirName, "Bob Jones - Voicemail - 2024-03-11T17_00_00Z.mp3"))

	report, err := weaver.Reconstruct(context.Background(), opts)
	require.NoError(t, err)

	s := report.Summary
	assert.Equal(t, 1, s.AttachmentsCopied)
	assert.Equal(t, 1, s.AttachmentCopyFailures)
	assert.False(t, s.FatalErrorOccurred)
	require.NotEmpty(t, report.Errors)
	assert.False(t, report.Errors[0].IsFatal)
	assert.Contains(t, report.Errors[0].Error, "failed to copy attachment")
}

// --- Hooks ---

func TestReconstruct_HookLifecycle(t *testing.T) {
	opts := engineOptions(t, engineArchive(t))

	hooks := new(testutil.MockHooks)
	hooks.On("OnFragmentDiscovered", mock.Anything).Return(nil)
	hooks.On("OnFragmentStatusUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	hooks.On("OnPhase", mock.Anything).Return(nil)
	hooks.On("OnRunComplete", mock.Anything).Return(nil)
	opts.EventHooks = hooks

	_, err := weaver.Reconstruct(context.Background(), opts)
	require.NoError(t, err)

	hooks.AssertNumberOfCalls(t, "OnRunComplete", 1)
	hooks.AssertNumberOfCalls(t, "OnFragmentDiscovered", 3)
	// Each fragment reports processing and then a terminal status.
	hooks.AssertNumberOfCalls(t, "OnFragmentStatusUpdate", 6)
	for _, phase := range []weaver.Phase{
		weaver.PhaseDiscover, weaver.PhaseParse, weaver.PhaseScan,
		weaver.PhaseResolve, weaver.PhaseAssemble, weaver.PhaseRender,
	} {
		hooks.AssertCalled(t, "OnPhase", phase)
	}
}

func TestReconstruct_HookErrorsAreIgnored(t *testing.T) {
	opts := engineOptions(t, engineArchive(t))

	hooks := new(testutil.MockHooks)
	hookErr := errors.New("ui went away")
	hooks.On("OnFragmentDiscovered", mock.Anything).Return(hookErr)
	hooks.On("OnFragmentStatusUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(hookErr)
	hooks.On("OnPhase", mock.Anything).Return(hookErr)
	hooks.On("OnRunComplete", mock.Anything).Return(hookErr)
	opts.EventHooks = hooks

	report, err := weaver.Reconstruct(context.Background(), opts)
	require.NoError(t, err, "hook failures must never affect the run outcome")
	assert.Equal(t, 2, report.Summary.ConversationsWritten)
	assert.Equal(t, 0, report.Summary.ErrorCount)
}

// --- Setup Validation ---

func TestReconstruct_ValidationErrors(t *testing.T) {
	valid := func(t *testing.T) weaver.Options { return engineOptions(t, engineArchive(t)) }

	tests := []struct {
		name   string
		mutate func(t *testing.T, opts *weaver.Options)
	}{
		{
			name:   "Missing logger",
			mutate: func(t *testing.T, opts *weaver.Options) { opts.Logger = nil },
		},
		{
			name:   "Missing input path",
			mutate: func(t *testing.T, opts *weaver.Options) { opts.InputPath = "" },
		},
		{
			name: "Input path is a file",
			mutate: func(t *testing.T, opts *weaver.Options) {
				file := filepath.Join(t.TempDir(), "file.html")
				testutil.CreateDummyFile(t, file, "x")
				opts.InputPath = file
			},
		},
		{
			name:   "Missing output path",
			mutate: func(t *testing.T, opts *weaver.Options) { opts.OutputPath = "" },
		},
		{
			name: "Unreadable template file",
			mutate: func(t *testing.T, opts *weaver.Options) {
				opts.TemplatePath = filepath.Join(t.TempDir(), "missing.tmpl")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := valid(t)
			tc.mutate(t, &opts)

			_, err := weaver.Reconstruct(context.Background(), opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, weaver.ErrConfigValidation)
			assert.Contains(t, err.Error(), "engine setup failed")
		})
	}
}

