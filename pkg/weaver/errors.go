package weaver

import "errors"

// Defined sentinel errors for the reconstruction process. Errors wrapping
// one of these can be tested with errors.Is.
var (
	// ErrConfigValidation indicates invalid or incomplete options. Fatal
	// before any work starts.
	ErrConfigValidation = errors.New("configuration validation failed")

	// ErrDiscoverFailed indicates the fragment discovery walk could not
	// complete. Fatal.
	ErrDiscoverFailed = errors.New("fragment discovery failed")

	// ErrScanFailed indicates the attachment pool scan could not complete.
	// Fatal: an unreadable pool makes resolution results meaningless.
	ErrScanFailed = errors.New("attachment pool scan failed")

	// ErrFragmentRead indicates a single fragment could not be read. The
	// fragment is skipped with a warning.
	ErrFragmentRead = errors.New("failed to read fragment")

	// ErrFragmentParse indicates a single fragment could not be parsed. The
	// fragment is skipped with a warning.
	ErrFragmentParse = errors.New("failed to parse fragment")

	// ErrRender indicates a conversation document could not be rendered. The
	// conversation is written as a placeholder document instead.
	ErrRender = errors.New("failed to render document")

	// ErrWriteFailed indicates an output document could not be written.
	ErrWriteFailed = errors.New("failed to write output file")

	// ErrMkdirFailed indicates an output directory could not be created.
	// Fatal during setup.
	ErrMkdirFailed = errors.New("failed to create directory")

	// ErrAttachmentCopy indicates one resolved attachment could not be
	// copied into the output tree. Recorded and skipped.
	ErrAttachmentCopy = errors.New("failed to copy attachment")

	// ErrAliasLookup indicates an alias source could not be consulted. The
	// raw identifier is used instead.
	ErrAliasLookup = errors.New("alias lookup failed")

	// ErrProcessingStopped indicates the run was aborted because a fragment
	// error occurred while the error mode is "stop".
	ErrProcessingStopped = errors.New("processing stopped due to error")

	// ErrRunPanic indicates an unexpected panic was recovered during the
	// run.
	ErrRunPanic = errors.New("run aborted by internal panic")
)
