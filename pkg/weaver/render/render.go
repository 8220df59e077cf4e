package render

import (
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"os"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ConversationDoc is the data model handed to conversation templates.
type ConversationDoc struct {
	ID              string
	Title           string
	GeneratedAt     time.Time
	ToolVersion     string
	MessageCount    int
	SMSCount        int
	CallCount       int
	VoicemailCount  int
	AttachmentCount int
	UnresolvedCount int
	FirstActivity   time.Time
	LastActivity    time.Time
	Messages        []MessageView
	// FrontMatter is the pre-rendered metadata block, including delimiters
	// and trailing blank line. Empty when disabled. Markdown only.
	FrontMatter string
}

// MessageView is one rendered timeline entry.
type MessageView struct {
	Timestamp   time.Time
	Sender      string
	Self        bool
	Kind        string
	Text        string
	Attachments []AttachmentView
}

// AttachmentView is one rendered attachment link.
type AttachmentView struct {
	Href     string
	Label    string
	Kind     string
	Resolved bool
}

// IndexDoc is the data model handed to the summary index templates.
type IndexDoc struct {
	GeneratedAt       time.Time
	ToolVersion       string
	ConversationCount int
	MessageCount      int
	AttachmentCount   int
	UnresolvedCount   int
	Conversations     []IndexEntry
}

// IndexEntry is one conversation row of the index document.
type IndexEntry struct {
	ID              string
	File            string
	MessageCount    int
	SMSCount        int
	CallCount       int
	VoicemailCount  int
	AttachmentCount int
	UnresolvedCount int
	LastActivity    time.Time
}

// Renderer defines the interface for producing output documents.
// Implementations MUST be safe for concurrent use.
type Renderer interface {
	Conversation(w io.Writer, doc *ConversationDoc) error
	Index(w io.Writer, doc *IndexDoc) error
}

// executor abstracts html/template and text/template, which share the
// Execute signature but no interface.
type executor interface {
	Execute(w io.Writer, data any) error
}

type goTemplateRenderer struct {
	conversation executor
	index        executor
}

// funcMap provides the helper functions available inside templates.
var funcMap = map[string]any{
	"formatTimestamp": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
	"formatDate":      func(t time.Time) string { return t.Format("Jan 2, 2006") },
	"formatTime":      func(t time.Time) string { return t.Format("15:04") },
}

// NewGoTemplateRenderer creates a Renderer for the given document format
// ("html" or "markdown"). customPath optionally replaces the built-in
// conversation template with a user-provided one in the same format.
func NewGoTemplateRenderer(format string, customPath string) (Renderer, error) {
	var convName, indexName string
	switch format {
	case "html":
		convName, indexName = "templates/conversation.html.tmpl", "templates/index.html.tmpl"
	case "markdown":
		convName, indexName = "templates/conversation.md.tmpl", "templates/index.md.tmpl"
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}

	var convSource []byte
	var err error
	if customPath != "" {
		convSource, err = os.ReadFile(customPath)
		if err != nil {
			return nil, fmt.Errorf("reading custom template %s: %w", customPath, err)
		}
	} else {
		convSource, err = templateFS.ReadFile(convName)
		if err != nil {
			return nil, fmt.Errorf("reading embedded template %s: %w", convName, err)
		}
	}
	indexSource, err := templateFS.ReadFile(indexName)
	if err != nil {
		return nil, fmt.Errorf("reading embedded template %s: %w", indexName, err)
	}

	r := &goTemplateRenderer{}
	if format == "html" {
		r.conversation, err = htmltemplate.New("conversation").Funcs(funcMap).Parse(string(convSource))
		if err != nil {
			return nil, fmt.Errorf("parsing conversation template: %w", err)
		}
		r.index, err = htmltemplate.New("index").Funcs(funcMap).Parse(string(indexSource))
	} else {
		r.conversation, err = texttemplate.New("conversation").Funcs(funcMap).Parse(string(convSource))
		if err != nil {
			return nil, fmt.Errorf("parsing conversation template: %w", err)
		}
		r.index, err = texttemplate.New("index").Funcs(funcMap).Parse(string(indexSource))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing index template: %w", err)
	}
	return r, nil
}

func (r *goTemplateRenderer) Conversation(w io.Writer, doc *ConversationDoc) error {
	return r.conversation.Execute(w, doc)
}

func (r *goTemplateRenderer) Index(w io.Writer, doc *IndexDoc) error {
	return r.index.Execute(w, doc)
}
