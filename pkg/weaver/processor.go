package weaver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/voiceweave/voice-weaver/pkg/weaver/alias"
	"github.com/voiceweave/voice-weaver/pkg/weaver/encoding"
	"github.com/voiceweave/voice-weaver/pkg/weaver/fragment"
)

// PendingMessage is a parsed timeline entry whose attachment references are
// not yet resolved.
type PendingMessage struct {
	Timestamp time.Time
	Sender    string
	Self      bool
	Text      string
	Refs      []string
	Kind      MessageKind
}

// FragmentResult is the outcome of processing one fragment.
type FragmentResult struct {
	FragmentID     string
	ConversationID string
	Kind           string
	Messages       []PendingMessage
	References     []string
	// Duration is the processing time, recorded by the worker.
	Duration time.Duration
}

// FragmentProcessor turns one archive file into pending messages keyed to a
// conversation. It holds no mutable state, so one instance serves all
// workers.
type FragmentProcessor struct {
	opts    *Options
	logger  *slog.Logger
	parser  fragment.Parser
	encoder encoding.Handler
	aliases alias.Resolver
}

// NewFragmentProcessor creates a processor with the given collaborators.
func NewFragmentProcessor(opts *Options, handler slog.Handler, parser fragment.Parser, enc encoding.Handler, aliases alias.Resolver) *FragmentProcessor {
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	return &FragmentProcessor{
		opts:    opts,
		logger:  slog.New(handler).With(slog.String("component", "processor")),
		parser:  parser,
		encoder: enc,
		aliases: aliases,
	}
}

// ProcessFragment reads, decodes, and parses the fragment at relPath
// (relative to the input root). Read failures wrap ErrFragmentRead, parse
// failures wrap ErrFragmentParse. A result with no messages means the
// fragment was well-formed but empty.
func (p *FragmentProcessor) ProcessFragment(ctx context.Context, relPath string) (*FragmentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	absPath := filepath.Join(p.opts.InputPath, relPath)
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFragmentRead, relPath, err)
	}

	decoded, encName, certain, err := p.encoder.DetectAndDecode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFragmentParse, relPath, err)
	}
	if !certain {
		p.logger.Debug("Uncertain encoding detection",
			slog.String("fragment", relPath),
			slog.String("encoding", encName))
	}

	frag, err := p.parser.Parse(relPath, decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFragmentParse, relPath, err)
	}

	counterparts := make([]string, 0, len(frag.Participants))
	for _, id := range frag.Participants {
		counterparts = append(counterparts, p.aliases.Resolve(id))
	}
	convID := DeriveConversationID(counterparts, frag.Group, p.opts.MaxIDParticipants, p.opts.MaxIDLength)

	result := &FragmentResult{
		FragmentID:     frag.ID,
		ConversationID: convID,
		Kind:           string(frag.Kind),
		References:     frag.References,
	}
	for _, msg := range frag.Messages {
		result.Messages = append(result.Messages, p.pendingMessage(frag, msg, counterparts))
	}
	return result, nil
}

func (p *FragmentProcessor) pendingMessage(frag *fragment.Fragment, msg fragment.Message, counterparts []string) PendingMessage {
	kind := messageKind(frag.Kind)

	sender := ""
	switch {
	case msg.Self:
		sender = p.opts.SelfName
	case msg.SenderID != "":
		sender = p.aliases.Resolve(msg.SenderID)
	case len(counterparts) > 0:
		// Call logs often omit an explicit sender; attribute them to the
		// counterpart.
		sender = counterparts[0]
	default:
		sender = "unknown"
	}

	text := msg.Text
	if text == "" {
		text = syntheticText(frag.Kind, msg.Duration)
	}

	return PendingMessage{
		Timestamp: msg.Timestamp,
		Sender:    sender,
		Self:      msg.Self,
		Text:      text,
		Refs:      msg.Refs,
		Kind:      kind,
	}
}

func messageKind(k fragment.Kind) MessageKind {
	switch k {
	case fragment.KindVoicemail:
		return KindVoicemail
	case fragment.KindPlaced, fragment.KindReceived, fragment.KindMissed:
		return KindCall
	default:
		return KindSMS
	}
}

// syntheticText describes call and voicemail entries, which have no body of
// their own.
func syntheticText(k fragment.Kind, d time.Duration) string {
	var label string
	switch k {
	case fragment.KindPlaced:
		label = "Placed call"
	case fragment.KindReceived:
		label = "Received call"
	case fragment.KindMissed:
		return "Missed call"
	case fragment.KindVoicemail:
		label = "Voicemail"
	default:
		return ""
	}
	if d > 0 {
		return fmt.Sprintf("%s (%s)", label, d.Truncate(time.Second))
	}
	return label
}
