package weaver

import (
	"log/slog"
	"time"

	"github.com/voiceweave/voice-weaver/pkg/weaver/alias"
	"github.com/voiceweave/voice-weaver/pkg/weaver/encoding"
	"github.com/voiceweave/voice-weaver/pkg/weaver/fragment"
	"github.com/voiceweave/voice-weaver/pkg/weaver/mediatype"
	"github.com/voiceweave/voice-weaver/pkg/weaver/render"
)

// --- Hook & Collaborator Interfaces ---

// Hooks defines callback functions for external integrations (like UIs or
// progress bars) to observe the run. Implementations MUST be safe for
// concurrent calls. Hook errors are logged and ignored; they never affect
// the run outcome.
type Hooks interface {
	// OnFragmentDiscovered is called when the discovery walk finds a
	// fragment. path is relative to the input root.
	OnFragmentDiscovered(path string) error
	// OnFragmentStatusUpdate is called when a fragment changes state.
	// message carries the skip reason or error text for non-success states.
	OnFragmentStatusUpdate(path string, status Status, message string, duration time.Duration) error
	// OnPhase is called when the run enters a new pipeline stage.
	OnPhase(phase Phase) error
	// OnRunComplete is called once at the very end with the final report.
	OnRunComplete(report Report) error
}

// ScanCacheManager defines the interface for the attachment pool index
// cache. Implementations MUST be safe for concurrent use.
type ScanCacheManager interface {
	// Load reads the cache file. A missing, corrupt, or incompatible file is
	// not an error; it leaves the cache empty.
	Load(cacheFilePath string) error
	// Validate reports whether the loaded index may stand in for a fresh
	// scan, given the current directory fingerprint and the number of
	// requested reference tokens.
	Validate(fingerprint string, requestedCount int) bool
	// Entries returns a copy of the cached filename to path index.
	Entries() map[string]string
	// Replace installs a freshly scanned index and its fingerprint.
	Replace(entries map[string]string, fingerprint string)
	// Persist writes the cache file. Failures are reported but must be
	// treated as non-fatal by callers.
	Persist(cacheFilePath string) error
}

// --- Factory Types ---

// ProcessorFactory defines a function type for creating a FragmentProcessor,
// allowing the parsing stage to be replaced in tests.
type ProcessorFactory func(opts *Options, handler slog.Handler, parser fragment.Parser, enc encoding.Handler, aliases alias.Resolver) *FragmentProcessor

// ScannerFactory defines a function type for creating a PoolScanner.
type ScannerFactory func(opts *Options, handler slog.Handler, cache ScanCacheManager) *PoolScanner

// --- Options ---

// FrontMatterOptions configures the metadata block prepended to Markdown
// documents.
type FrontMatterOptions struct {
	Enabled bool                   `mapstructure:"enabled"`
	Format  string                 `mapstructure:"format"`
	Static  map[string]interface{} `mapstructure:"static"`
}

// WatchConfig mirrors the raw watch settings from the configuration file.
type WatchConfig struct {
	Debounce string `mapstructure:"debounce"`
}

// AliasConfig mirrors the raw alias settings from the configuration file.
type AliasConfig struct {
	Command []string `mapstructure:"command"`
	Timeout string   `mapstructure:"timeout"`
}

// Options defines the complete configuration for a reconstruction run.
// Instances are assembled by the CLI layer (or directly by library callers)
// and treated as immutable once Reconstruct is called.
type Options struct {
	// --- Core Paths (absolute) ---
	InputPath  string `mapstructure:"inputPath"`
	OutputPath string `mapstructure:"outputPath"`

	// --- Application Metadata ---
	AppVersion     string `mapstructure:"-"`
	ConfigFilePath string `mapstructure:"-"`
	ProfileName    string `mapstructure:"-"`

	// --- Execution Behavior ---
	Concurrency    int         `mapstructure:"concurrency"`
	OnErrorMode    OnErrorMode `mapstructure:"onError"`
	ForceOverwrite bool        `mapstructure:"forceOverwrite"`
	Verbose        bool        `mapstructure:"verbose"`
	TuiEnabled     bool        `mapstructure:"tuiEnabled"`

	// --- Pool Scan Cache ---
	CacheEnabled    bool   `mapstructure:"cache"`
	CacheFormat     string `mapstructure:"cacheFormat"`
	IgnoreCacheRead bool   `mapstructure:"-"`
	ClearCache      bool   `mapstructure:"-"`
	CacheFilePath   string `mapstructure:"-"`

	// --- Input Handling ---
	DefaultEncoding      string   `mapstructure:"defaultEncoding"`
	PoolSubdir           string   `mapstructure:"poolSubdir"`
	AttachmentExtensions []string `mapstructure:"attachmentExtensions"`

	// --- Conversation Identity ---
	SelfName          string `mapstructure:"selfName"`
	MaxIDParticipants int    `mapstructure:"maxIdParticipants"`
	MaxIDLength       int    `mapstructure:"maxIdLength"`

	// --- Output ---
	DocumentFormat  DocumentFormat     `mapstructure:"format"`
	TemplatePath    string             `mapstructure:"templateFile"`
	ReportFormat    ReportFormat       `mapstructure:"reportFormat"`
	FrontMatter     FrontMatterOptions `mapstructure:"frontMatter"`
	CopyAttachments bool               `mapstructure:"copyAttachments"`

	// --- Aliases ---
	ContactsPath        string        `mapstructure:"contacts"`
	Alias               AliasConfig   `mapstructure:"alias"`
	AliasCommandTimeout time.Duration `mapstructure:"-"`

	// --- Watch Mode (applied by the CLI layer, not the engine) ---
	Watch         WatchConfig   `mapstructure:"watch"`
	WatchMode     bool          `mapstructure:"-"`
	WatchDebounce time.Duration `mapstructure:"-"`

	// --- Injected Dependencies (not configurable via file) ---
	Logger           slog.Handler       `mapstructure:"-"`
	EventHooks       Hooks              `mapstructure:"-"`
	ScanCache        ScanCacheManager   `mapstructure:"-"`
	AliasResolver    alias.Resolver     `mapstructure:"-"`
	FragmentParser   fragment.Parser    `mapstructure:"-"`
	EncodingHandler  encoding.Handler   `mapstructure:"-"`
	Renderer         render.Renderer    `mapstructure:"-"`
	MediaTyper       mediatype.Detector `mapstructure:"-"`
	ProcessorFactory ProcessorFactory   `mapstructure:"-"`
	ScannerFactory   ScannerFactory     `mapstructure:"-"`
}

// --- No-Op Implementations ---

// NoOpHooks provides a default, do-nothing implementation of Hooks.
type NoOpHooks struct{}

func (h *NoOpHooks) OnFragmentDiscovered(path string) error { return nil }
func (h *NoOpHooks) OnFragmentStatusUpdate(path string, status Status, message string, duration time.Duration) error {
	return nil
}
func (h *NoOpHooks) OnPhase(phase Phase) error         { return nil }
func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }

// NoOpScanCache provides a default implementation of ScanCacheManager used
// when caching is disabled. Validate always misses, so every run scans.
type NoOpScanCache struct{}

func (c *NoOpScanCache) Load(cacheFilePath string) error { return nil }
func (c *NoOpScanCache) Validate(fingerprint string, requestedCount int) bool {
	return false
}
func (c *NoOpScanCache) Entries() map[string]string                            { return nil }
func (c *NoOpScanCache) Replace(entries map[string]string, fingerprint string) {}
func (c *NoOpScanCache) Persist(cacheFilePath string) error                    { return nil }
