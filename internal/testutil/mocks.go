// Package testutil provides mock implementations for interfaces defined in
// the voice-weaver core library (pkg/weaver and subpackages). These mocks
// facilitate unit testing by isolating components.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/voiceweave/voice-weaver/pkg/weaver"
	"github.com/voiceweave/voice-weaver/pkg/weaver/fragment"
	"github.com/voiceweave/voice-weaver/pkg/weaver/mediatype"
	"github.com/voiceweave/voice-weaver/pkg/weaver/render"
)

// MockHooks provides a mock implementation of the weaver.Hooks interface.
// Configure expectations using testify/mock methods (e.g.,
// .On("OnFragmentStatusUpdate", ...).Return(...)).
// IMPORTANT: If test logic adds state to this mock (e.g., recording calls),
// the test itself MUST ensure thread-safety for concurrent hook invocations.
// See weaver.Hooks for the interface contract.
type MockHooks struct {
	mock.Mock
}

// OnFragmentDiscovered mocks the OnFragmentDiscovered method.
func (m *MockHooks) OnFragmentDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// OnFragmentStatusUpdate mocks the OnFragmentStatusUpdate method.
func (m *MockHooks) OnFragmentStatusUpdate(path string, status weaver.Status, message string, duration time.Duration) error {
	args := m.Called(path, status, message, duration)
	return args.Error(0)
}

// OnPhase mocks the OnPhase method.
func (m *MockHooks) OnPhase(phase weaver.Phase) error {
	args := m.Called(phase)
	return args.Error(0)
}

// OnRunComplete mocks the OnRunComplete method.
func (m *MockHooks) OnRunComplete(report weaver.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

// MockScanCache provides a mock implementation of the weaver.ScanCacheManager
// interface. Configure expectations using testify/mock methods (e.g.,
// .On("Validate", ...).Return(...)). See weaver.ScanCacheManager for the
// interface contract.
type MockScanCache struct {
	mock.Mock
}

// Load mocks the Load method.
func (m *MockScanCache) Load(cacheFilePath string) error {
	args := m.Called(cacheFilePath)
	return args.Error(0)
}

// Validate mocks the Validate method.
func (m *MockScanCache) Validate(fingerprint string, requestedCount int) bool {
	args := m.Called(fingerprint, requestedCount)
	valid, _ := args.Get(0).(bool)
	return valid
}

// Entries mocks the Entries method.
func (m *MockScanCache) Entries() map[string]string {
	args := m.Called()
	entries, _ := args.Get(0).(map[string]string)
	return entries
}

// Replace mocks the Replace method.
func (m *MockScanCache) Replace(entries map[string]string, fingerprint string) {
	m.Called(entries, fingerprint)
}

// Persist mocks the Persist method.
func (m *MockScanCache) Persist(cacheFilePath string) error {
	args := m.Called(cacheFilePath)
	return args.Error(0)
}

// MockAliasResolver provides a mock implementation of the alias.Resolver
// interface. Configure expectations using testify/mock methods (e.g.,
// .On("Resolve", ...).Return(...)). See alias.Resolver for the interface
// contract, including the requirement to never return an empty string for a
// non-empty identifier.
type MockAliasResolver struct {
	mock.Mock
}

// Resolve mocks the Resolve method.
func (m *MockAliasResolver) Resolve(identifier string) string {
	args := m.Called(identifier)
	name, _ := args.Get(0).(string)
	return name
}

// MockParser provides a mock implementation of the fragment.Parser interface.
// Configure expectations using testify/mock methods (e.g.,
// .On("Parse", ...).Return(...)). See fragment.Parser for the interface
// contract.
type MockParser struct {
	mock.Mock
}

// Parse mocks the Parse method.
func (m *MockParser) Parse(id string, content []byte) (*fragment.Fragment, error) {
	args := m.Called(id, content)
	frag, _ := args.Get(0).(*fragment.Fragment)
	return frag, args.Error(1)
}

// MockEncodingHandler provides a mock implementation of the encoding.Handler
// interface. Configure expectations using testify/mock methods (e.g.,
// .On("DetectAndDecode", ...).Return(...)). See encoding.Handler for the
// interface contract.
type MockEncodingHandler struct {
	mock.Mock
}

// DetectAndDecode mocks the DetectAndDecode method.
func (m *MockEncodingHandler) DetectAndDecode(content []byte) (decoded []byte, encodingName string, certain bool, err error) {
	args := m.Called(content)
	decoded, _ = args.Get(0).([]byte)
	encodingName, _ = args.Get(1).(string)
	certain, _ = args.Get(2).(bool)
	err = args.Error(3)
	return
}

// MockRenderer provides a mock implementation of the render.Renderer
// interface. Configure expectations using testify/mock methods (e.g.,
// .On("Conversation", ...).Return(...)). See render.Renderer for the
// interface contract.
type MockRenderer struct {
	mock.Mock
}

// Conversation mocks the Conversation method.
func (m *MockRenderer) Conversation(w io.Writer, doc *render.ConversationDoc) error {
	args := m.Called(w, doc)
	return args.Error(0)
}

// Index mocks the Index method.
func (m *MockRenderer) Index(w io.Writer, doc *render.IndexDoc) error {
	args := m.Called(w, doc)
	return args.Error(0)
}

// MockDetector provides a mock implementation of the mediatype.Detector
// interface. Configure expectations using testify/mock methods (e.g.,
// .On("Detect", ...).Return(...)). See mediatype.Detector for the interface
// contract.
type MockDetector struct {
	mock.Mock
}

// Detect mocks the Detect method.
func (m *MockDetector) Detect(filename string) mediatype.Info {
	args := m.Called(filename)
	info, _ := args.Get(0).(mediatype.Info)
	return info
}

// MockLoggerHandler provides a mock implementation for slog.Handler.
// Generally, using slog.NewTextHandler with a bytes.Buffer is preferred for
// testing log output. Use this full mock only if complex handler interaction
// logic needs verification. See slog.Handler for the interface contract.
type MockLoggerHandler struct {
	mock.Mock
}

// Enabled mocks the Enabled method.
func (m *MockLoggerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	args := m.Called(ctx, level)
	enabled, _ := args.Get(0).(bool)
	return enabled
}

// Handle mocks the Handle method.
func (m *MockLoggerHandler) Handle(ctx context.Context, r slog.Record) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

// WithAttrs mocks the WithAttrs method.
func (m *MockLoggerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	args := m.Called(attrs)
	retHandler, ok := args.Get(0).(slog.Handler)
	if !ok || retHandler == nil {
		return m // Return self if no specific handler configured or type assertion fails
	}
	return retHandler
}

// WithGroup mocks the WithGroup method.
func (m *MockLoggerHandler) WithGroup(name string) slog.Handler {
	args := m.Called(name)
	retHandler, ok := args.Get(0).(slog.Handler)
	if !ok || retHandler == nil {
		return m // Return self if no specific handler configured or type assertion fails
	}
	return retHandler
}
