package weaver

import (
	"fmt"
	"time"
)

// Report defines the structure of the final run summary, suitable for JSON
// output. Slices are never nil so the JSON shape is stable.
type Report struct {
	Summary          ReportSummary      `json:"summary"`
	Conversations    []ConversationInfo `json:"conversations"`
	Fragments        []FragmentInfo     `json:"fragments"`
	SkippedFragments []SkippedInfo      `json:"skippedFragments"`
	Unresolved       []UnresolvedInfo   `json:"unresolved"`
	Errors           []ErrorInfo        `json:"errors"`
}

// ReportSummary holds aggregate statistics for a run.
type ReportSummary struct {
	RunID                  string         `json:"runId"`
	SchemaVersion          string         `json:"schemaVersion"`
	InputPath              string         `json:"inputPath"`
	OutputPath             string         `json:"outputPath"`
	ConfigFilePath         string         `json:"configFilePath,omitempty"`
	ProfileUsed            string         `json:"profileUsed,omitempty"`
	FragmentsDiscovered    int            `json:"fragmentsDiscovered"`
	FragmentsParsed        int            `json:"fragmentsParsed"`
	FragmentsSkipped       int            `json:"fragmentsSkipped"`
	MessageCount           int            `json:"messageCount"`
	ConversationCount      int            `json:"conversationCount"`
	ConversationsWritten   int            `json:"conversationsWritten"`
	EmptyConversations     int            `json:"emptyConversations"`
	RenderFailures         int            `json:"renderFailures"`
	ReferenceCount         int            `json:"referenceCount"`
	ResolvedCount          int            `json:"resolvedCount"`
	UnresolvedCount        int            `json:"unresolvedCount"`
	ResolutionBreakdown    map[string]int `json:"resolutionBreakdown,omitempty"`
	AttachmentsCopied      int            `json:"attachmentsCopied"`
	AttachmentCopyFailures int            `json:"attachmentCopyFailures"`
	PoolFilesIndexed       int            `json:"poolFilesIndexed"`
	PoolScanSkipped        bool           `json:"poolScanSkipped"`
	CacheStatus            string         `json:"cacheStatus"`
	WarningCount           int            `json:"warningCount"`
	ErrorCount             int            `json:"errorCount"`
	FatalErrorOccurred     bool           `json:"fatalErrorOccurred"`
	DurationSeconds        float64        `json:"durationSeconds"`
	Concurrency            int            `json:"concurrency"`
	CacheEnabled           bool           `json:"cacheEnabled"`
	Timestamp              time.Time      `json:"timestamp"`
}

// ConversationInfo holds details about a single written conversation.
type ConversationInfo struct {
	ID              string    `json:"id"`
	OutputFile      string    `json:"outputFile"`
	MessageCount    int       `json:"messageCount"`
	SMSCount        int       `json:"smsCount"`
	CallCount       int       `json:"callCount"`
	VoicemailCount  int       `json:"voicemailCount"`
	AttachmentCount int       `json:"attachmentCount"`
	UnresolvedCount int       `json:"unresolvedCount"`
	FirstActivity   time.Time `json:"firstActivity"`
	LastActivity    time.Time `json:"lastActivity"`
	RenderStatus    string    `json:"renderStatus"`
}

// FragmentInfo holds details about a single successfully parsed fragment.
type FragmentInfo struct {
	Path           string `json:"path"`
	Kind           string `json:"kind"`
	Conversation   string `json:"conversation"`
	MessageCount   int    `json:"messageCount"`
	ReferenceCount int    `json:"referenceCount"`
	DurationMs     int64  `json:"durationMs"`
}

// SkippedInfo holds details about a fragment excluded from output.
type SkippedInfo struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// UnresolvedInfo records one reference token no pool file could satisfy,
// together with the fragments that contained it.
type UnresolvedInfo struct {
	Token   string   `json:"token"`
	Origins []string `json:"origins"`
}

// ErrorInfo holds details about an error encountered during a run.
type ErrorInfo struct {
	Path    string `json:"path,omitempty"`
	Error   string `json:"error"`
	IsFatal bool   `json:"isFatal"`
}

// ExampleConversationInfo demonstrates the structure of a ConversationInfo
// entry.
func ExampleConversationInfo() {
	info := ConversationInfo{
		ID:              "Alice Smith",
		OutputFile:      "Alice Smith.html",
		MessageCount:    128,
		SMSCount:        120,
		CallCount:       6,
		VoicemailCount:  2,
		AttachmentCount: 14,
		UnresolvedCount: 1,
		RenderStatus:    RenderStatusOK,
	}
	fmt.Printf("Conversation: %s (%d messages) -> %s\n", info.ID, info.MessageCount, info.OutputFile)
}

// ExampleUnresolvedInfo demonstrates the structure of an UnresolvedInfo
// entry.
func ExampleUnresolvedInfo() {
	info := UnresolvedInfo{
		Token:   "IMG_0001.jpg",
		Origins: []string{"Calls/+15551234567 - Text - 2024-01-15T18_32_45Z.html"},
	}
	fmt.Printf("Unresolved: %s (referenced by %d fragments)\n", info.Token, len(info.Origins))
}
