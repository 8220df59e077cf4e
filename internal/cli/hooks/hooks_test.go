package hooks

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voiceweave/voice-weaver/pkg/weaver"
)

// --- Mock Implementations ---

type MockTUIProgram struct {
	mock.Mock
}

func (m *MockTUIProgram) Send(msg interface{}) {
	m.Called(msg)
}

type MockProgressBar struct {
	mock.Mock
}

func (m *MockProgressBar) Add(num int) error {
	args := m.Called(num)
	return args.Error(0)
}

func (m *MockProgressBar) Describe(description string) error {
	args := m.Called(description)
	return args.Error(0)
}

func (m *MockProgressBar) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Test Suite ---

func TestCLIHooks_OnFragmentDiscovered(t *testing.T) {
	testPath := "Calls/Alice Smith - Text - 2024-01-15T18_32_45Z.html"

	t.Run("TUI Enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockTUI.On("Send", mock.AnythingOfType("FragmentDiscoveredMsg")).Run(func(args mock.Arguments) {
			msg := args.Get(0).(FragmentDiscoveredMsg)
			assert.Equal(t, testPath, msg.Path)
		}).Once()

		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, true, false, mockTUI, nil)
		require.NoError(t, h.OnFragmentDiscovered(testPath))
		mockTUI.AssertExpectations(t)
		assert.Empty(t, logBuf.String())
	})

	t.Run("Verbose Enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, false, true, mockTUI, nil)
		require.NoError(t, h.OnFragmentDiscovered(testPath))

		mockTUI.AssertNotCalled(t, "Send", mock.Anything)
		logOutput := logBuf.String()
		assert.Contains(t, logOutput, `"level":"DEBUG"`)
		assert.Contains(t, logOutput, `"msg":"Fragment discovered"`)
		assert.Contains(t, logOutput, `"path":"`+testPath+`"`)
	})

	t.Run("Neither TUI nor Verbose", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, false, false, mockTUI, nil)
		require.NoError(t, h.OnFragmentDiscovered(testPath))

		mockTUI.AssertNotCalled(t, "Send", mock.Anything)
		assert.Empty(t, logBuf.String())
	})
}

func TestCLIHooks_OnFragmentStatusUpdate(t *testing.T) {
	testPath := "Calls/Bob Jones - Placed - 2024-03-10T22_05_00Z.html"
	testDuration := 50 * time.Millisecond

	t.Run("TUI Enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockTUI.On("Send", mock.MatchedBy(func(msg FragmentStatusUpdateMsg) bool {
			return msg.Path == testPath &&
				msg.Status == weaver.StatusProcessing &&
				msg.Message == "" &&
				msg.Duration == 0
		})).Once()

		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, true, false, mockTUI, nil)
		require.NoError(t, h.OnFragmentStatusUpdate(testPath, weaver.StatusProcessing, "", 0))
		mockTUI.AssertExpectations(t)
		assert.Empty(t, logBuf.String())
	})

	t.Run("Verbose Enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, false, true, mockTUI, nil)

		testCases := []struct {
			status        weaver.Status
			message       string
			expectedLevel string
			expectedMsg   string
			checkKey      string
		}{
			{weaver.StatusProcessing, "starting", "DEBUG", "Fragment status updated", "message"},
			{weaver.StatusSuccess, "ok", "INFO", "Fragment status updated", "message"},
			{weaver.StatusSkipped, "empty_fragment", "INFO", "Fragment status updated", "message"},
			{weaver.StatusFailed, "parse exploded", "ERROR", "Fragment processing failed", "error"},
		}

		for _, tc := range testCases {
			logBuf.Reset()
			require.NoError(t, h.OnFragmentStatusUpdate(testPath, tc.status, tc.message, testDuration))
			logOutput := logBuf.String()

			// slog's JSON handler serializes durations as nanoseconds.
			assert.Contains(t, logOutput, fmt.Sprintf(`"duration":%d`, testDuration.Nanoseconds()))
			assert.Contains(t, logOutput, `"level":"`+tc.expectedLevel+`"`)
			assert.Contains(t, logOutput, `"msg":"`+tc.expectedMsg+`"`)
			assert.Contains(t, logOutput, `"path":"`+testPath+`"`)
			assert.Contains(t, logOutput, `"status":"`+string(tc.status)+`"`)
			assert.Contains(t, logOutput, `"`+tc.checkKey+`":"`+tc.message+`"`)
		}
		mockTUI.AssertNotCalled(t, "Send", mock.Anything)
	})

	t.Run("Progress Bar Enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockProgress := new(MockProgressBar)
		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelError}))
		h := NewCLIHooks(logger, false, false, mockTUI, mockProgress)

		// Only terminal statuses advance the bar; processing does not.
		mockProgress.On("Add", 1).Return(nil).Times(3)

		require.NoError(t, h.OnFragmentStatusUpdate(testPath, weaver.StatusProcessing, "", 0))
		assert.Empty(t, logBuf.String())

		require.NoError(t, h.OnFragmentStatusUpdate(testPath, weaver.StatusSuccess, "", testDuration))
		assert.Empty(t, logBuf.String())

		require.NoError(t, h.OnFragmentStatusUpdate(testPath, weaver.StatusSkipped, "empty_fragment", 0))
		assert.Empty(t, logBuf.String())

		failMsg := "unreadable fragment"
		require.NoError(t, h.OnFragmentStatusUpdate(testPath, weaver.StatusFailed, failMsg, testDuration))
		logOutput := logBuf.String()
		assert.Contains(t, logOutput, `"level":"ERROR"`)
		assert.Contains(t, logOutput, `"msg":"Fragment processing failed"`)
		assert.Contains(t, logOutput, `"path":"`+testPath+`"`)
		assert.Contains(t, logOutput, `"error":"`+failMsg+`"`)

		mockTUI.AssertNotCalled(t, "Send", mock.Anything)
		mockProgress.AssertExpectations(t)
	})

	t.Run("Standard Log Mode", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockProgress := new(MockProgressBar)
		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))
		h := NewCLIHooks(logger, false, false, mockTUI, nil)

		require.NoError(t, h.OnFragmentStatusUpdate(testPath, weaver.StatusProcessing, "", 0))
		require.NoError(t, h.OnFragmentStatusUpdate(testPath, weaver.StatusSuccess, "", testDuration))
		require.NoError(t, h.OnFragmentStatusUpdate(testPath, weaver.StatusSkipped, "empty_fragment", 0))
		assert.Empty(t, logBuf.String())

		// Failures stay visible even without a bar or verbose logging.
		failMsg := "unreadable fragment"
		require.NoError(t, h.OnFragmentStatusUpdate(testPath, weaver.StatusFailed, failMsg, testDuration))
		logOutput := logBuf.String()
		assert.Contains(t, logOutput, `"level":"ERROR"`)
		assert.Contains(t, logOutput, `"msg":"Fragment processing failed"`)
		assert.Contains(t, logOutput, `"error":"`+failMsg+`"`)

		mockTUI.AssertNotCalled(t, "Send", mock.Anything)
		mockProgress.AssertNotCalled(t, "Add", mock.Anything)
	})
}

func TestCLIHooks_OnPhase(t *testing.T) {
	t.Run("TUI Enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockTUI.On("Send", mock.MatchedBy(func(msg PhaseMsg) bool {
			return msg.Phase == weaver.PhaseParse
		})).Once()

		h := NewCLIHooks(slog.New(slog.NewTextHandler(io.Discard, nil)), true, false, mockTUI, nil)
		require.NoError(t, h.OnPhase(weaver.PhaseParse))
		mockTUI.AssertExpectations(t)
	})

	t.Run("Progress Bar Enabled", func(t *testing.T) {
		mockProgress := new(MockProgressBar)
		mockProgress.On("Describe", "parsing fragments").Return(nil).Once()
		mockProgress.On("Describe", "rendering documents").Return(nil).Once()

		h := NewCLIHooks(slog.New(slog.NewTextHandler(io.Discard, nil)), false, false, nil, mockProgress)
		require.NoError(t, h.OnPhase(weaver.PhaseParse))
		require.NoError(t, h.OnPhase(weaver.PhaseRender))
		require.NoError(t, h.OnPhase(weaver.Phase("mystery")))
		mockProgress.AssertExpectations(t)
		mockProgress.AssertNumberOfCalls(t, "Describe", 2)
	})

	t.Run("Verbose Enabled", func(t *testing.T) {
		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, false, true, nil, nil)
		require.NoError(t, h.OnPhase(weaver.PhaseScan))

		logOutput := logBuf.String()
		assert.Contains(t, logOutput, `"msg":"Entering phase"`)
		assert.Contains(t, logOutput, `"phase":"scan-pool"`)
	})

	t.Run("Standard Log Mode", func(t *testing.T) {
		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, false, false, nil, nil)
		require.NoError(t, h.OnPhase(weaver.PhaseScan))
		assert.Empty(t, logBuf.String())
	})
}

func TestCLIHooks_OnRunComplete(t *testing.T) {
	finalReport := weaver.Report{
		Summary: weaver.ReportSummary{ConversationsWritten: 7},
	}

	t.Run("TUI Enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockTUI.On("Send", mock.MatchedBy(func(msg RunCompleteMsg) bool {
			return msg.Report.Summary.ConversationsWritten == 7
		})).Once()
		mockProgress := new(MockProgressBar)

		h := NewCLIHooks(slog.New(slog.NewTextHandler(io.Discard, nil)), true, false, mockTUI, mockProgress)
		require.NoError(t, h.OnRunComplete(finalReport))
		mockTUI.AssertExpectations(t)
		mockProgress.AssertNotCalled(t, "Close")
	})

	t.Run("Progress Bar Enabled", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockProgress := new(MockProgressBar)
		mockProgress.On("Close").Return(nil).Once()

		oldStderr := os.Stderr
		r, w, err := os.Pipe()
		require.NoError(t, err)
		os.Stderr = w

		h := NewCLIHooks(slog.New(slog.NewTextHandler(io.Discard, nil)), false, false, mockTUI, mockProgress)
		runErr := h.OnRunComplete(finalReport)

		w.Close()
		_, _ = io.ReadAll(r)
		os.Stderr = oldStderr

		require.NoError(t, runErr)
		mockTUI.AssertNotCalled(t, "Send", mock.Anything)
		mockProgress.AssertExpectations(t)
	})

	t.Run("Standard Log Mode", func(t *testing.T) {
		mockTUI := new(MockTUIProgram)
		mockProgress := new(MockProgressBar)
		logBuf := &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewCLIHooks(logger, false, false, mockTUI, nil)

		require.NoError(t, h.OnRunComplete(finalReport))
		mockTUI.AssertNotCalled(t, "Send", mock.Anything)
		mockProgress.AssertNotCalled(t, "Close")
		assert.Empty(t, logBuf.String())
	})
}
