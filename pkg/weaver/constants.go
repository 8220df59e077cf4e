package weaver

import "time"

// --- Default Configuration Values ---

const (
	// DefaultConcurrency requests automatic worker scaling (runtime.NumCPU).
	DefaultConcurrency = 0
	// DefaultOnErrorMode is the default behavior for fragment-level errors.
	DefaultOnErrorMode = OnErrorContinue
	// DefaultCacheEnabled enables the pool scan cache unless disabled by flag.
	DefaultCacheEnabled = true
	// DefaultCacheFormat selects the on-disk cache encoding ("gob" or "json").
	DefaultCacheFormat = "gob"
	// DefaultTuiEnabled enables the terminal UI when stderr is a terminal.
	DefaultTuiEnabled = true
	// DefaultDocumentFormat selects the rendered conversation markup.
	DefaultDocumentFormat = DocumentFormatHTML
	// DefaultReportFormat selects the final summary format on stdout.
	DefaultReportFormat = ReportFormatText
	// DefaultSelfName is the display name used for the exporting party.
	DefaultSelfName = "Me"
	// DefaultPoolSubdir is the archive subdirectory holding fragments and
	// their commingled attachment pool.
	DefaultPoolSubdir = "Calls"
	// DefaultCopyAttachments copies resolved attachments into the output tree.
	DefaultCopyAttachments = true
	// DefaultEncoding is the assumed input encoding when detection is
	// uncertain. Empty means trust detection.
	DefaultEncoding = ""
	// DefaultFrontMatterFormat is used when front matter is enabled without
	// an explicit format.
	DefaultFrontMatterFormat = "yaml"
	// DefaultWatchDebounceString is the settling delay between a filesystem
	// event and a re-run in watch mode.
	DefaultWatchDebounceString = "300ms"
	// DefaultAliasTimeoutString bounds one external alias command invocation.
	DefaultAliasTimeoutString = "5s"
)

// Parsed counterparts of the duration defaults above, used when a
// configured duration string fails to parse.
const (
	DefaultWatchDebounce = 300 * time.Millisecond
	DefaultAliasTimeout  = 5 * time.Second
)

// --- Conversation Identifier Derivation ---

const (
	// DefaultMaxIDParticipants is the participant count above which a group
	// identifier is compacted to a preview plus hash.
	DefaultMaxIDParticipants = 6
	// IDPreviewParticipants is how many aliases survive compaction verbatim.
	IDPreviewParticipants = 3
	// IDParticipantHashLen is the hex length of the compaction hash.
	IDParticipantHashLen = 8
	// DefaultMaxIDLength is the identifier length above which the whole
	// identifier collapses to a hash-only form.
	DefaultMaxIDLength = 120
	// IDFallbackHashLen is the hex length of the hash-only fallback.
	IDFallbackHashLen = 12
	// IDSeparator joins participant aliases inside a group identifier.
	IDSeparator = ", "
)

// --- Cache ---

const (
	// CacheFileName is the pool index cache file, stored in the output
	// directory.
	CacheFileName = ".voiceweaver.cache"
	// CacheSchemaVersion is the cache file schema. Mismatches invalidate the
	// cache, never the run.
	CacheSchemaVersion = "1.0"
	// CacheTolerancePercent is the allowed divergence between the requested
	// reference count and the cached index size before the cache is treated
	// as stale.
	CacheTolerancePercent = 10
)

// Cache status values surfaced in the run report. Skipped means no
// reference needed the pool, so neither cache nor scan ran.
const (
	CacheStatusHit      = "hit"
	CacheStatusMiss     = "miss"
	CacheStatusDisabled = "disabled"
	CacheStatusSkipped  = "skipped"
)

// --- Output Layout ---

const (
	// AttachmentsDirName is the subdirectory of the output tree receiving
	// copied attachment files.
	AttachmentsDirName = "attachments"
	// IndexFileBase is the basename of the cross-conversation summary
	// document.
	IndexFileBase = "index"
)

// --- Reporting ---

// ReportSchemaVersion identifies the structure of the JSON report.
const ReportSchemaVersion = "1.0"

// Reasons recorded for fragments excluded from output.
const (
	SkipReasonParseError    = "parse_error"
	SkipReasonReadError     = "read_error"
	SkipReasonEmptyFragment = "empty_fragment"
)

// Render status values recorded per conversation.
const (
	RenderStatusOK          = "ok"
	RenderStatusPlaceholder = "placeholder"
)

// Resolution strategy names, used as keys of the report's resolution
// breakdown and in debug logs.
const (
	StrategyExact        = "exact"
	StrategyOriginPrefix = "origin-prefix"
	StrategyTokenParts   = "token-parts"
	StrategyContainment  = "containment"
)
