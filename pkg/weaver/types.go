package weaver

import "time"

// Status defines the possible processing states of a fragment during a run.
type Status string

// Constants representing the defined fragment processing statuses.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// OnErrorMode defines the behavior when a non-fatal error occurs while
// processing a single fragment.
type OnErrorMode string

const (
	OnErrorContinue OnErrorMode = "continue"
	OnErrorStop     OnErrorMode = "stop"
)

// MessageKind classifies a timeline entry.
type MessageKind string

// Constants representing the defined message kinds.
const (
	KindSMS       MessageKind = "sms"
	KindCall      MessageKind = "call"
	KindVoicemail MessageKind = "voicemail"
)

// DocumentFormat selects the markup of the rendered conversation documents.
type DocumentFormat string

const (
	DocumentFormatHTML     DocumentFormat = "html"
	DocumentFormatMarkdown DocumentFormat = "markdown"
)

// ReportFormat defines the format for the final summary report printed to
// standard output when the TUI is disabled.
type ReportFormat string

const (
	ReportFormatText ReportFormat = "text"
	ReportFormatJSON ReportFormat = "json"
)

// Phase identifies the pipeline stage currently executing. Phases are
// reported through Hooks.OnPhase so UIs can show run progress.
type Phase string

const (
	PhaseDiscover Phase = "discover"
	PhaseParse    Phase = "parse"
	PhaseScan     Phase = "scan-pool"
	PhaseResolve  Phase = "resolve"
	PhaseAssemble Phase = "assemble"
	PhaseRender   Phase = "render"
)

// Attachment is the outcome of resolving one reference token. Resolved is
// false for the explicit "no attachment found" sentinel; the owning message
// still renders, only its link is omitted.
type Attachment struct {
	Token      string `json:"token"`
	Filename   string `json:"filename,omitempty"`
	SourcePath string `json:"sourcePath,omitempty"`
	OutputPath string `json:"outputPath,omitempty"`
	MediaType  string `json:"mediaType,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Resolved   bool   `json:"resolved"`
}

// Message is one entry in a conversation buffer.
type Message struct {
	Timestamp   time.Time
	Sender      string
	Self        bool
	Text        string
	Attachments []Attachment
	Kind        MessageKind
}

// Reference is an attachment reference token together with the ordered set of
// fragment ids that contained it. Origins are kept sorted ascending so that
// resolution is reproducible across runs.
type Reference struct {
	Token   string
	Origins []string
}
