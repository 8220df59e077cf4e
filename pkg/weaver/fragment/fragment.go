package fragment

import (
	"time"
)

// FieldSeparator splits the party, kind, and timestamp tokens inside
// fragment file names and attachment reference tokens.
const FieldSeparator = " - "

// GroupParty is the party token archives use for group conversation
// fragments that carry no single counterpart name.
const GroupParty = "Group Conversation"

// Kind classifies a fragment by the kind token in its file name.
type Kind string

const (
	KindText      Kind = "text"
	KindPlaced    Kind = "placed"
	KindReceived  Kind = "received"
	KindMissed    Kind = "missed"
	KindVoicemail Kind = "voicemail"
)

// Fragment is the parsed content of one archive HTML file.
type Fragment struct {
	// ID is the fragment path relative to the input root, unique per run.
	ID string
	// Kind is taken from the file name.
	Kind Kind
	// Participants are the counterpart identifiers (phone numbers where the
	// markup provides them, display names otherwise) in source order,
	// excluding the exporting party.
	Participants []string
	// Group reports whether the fragment belongs to a group conversation.
	Group bool
	// Messages are the timeline entries in document order.
	Messages []Message
	// References are the unique attachment reference tokens, in order of
	// first appearance.
	References []string
}

// Message is one raw timeline entry extracted from a fragment.
type Message struct {
	Timestamp time.Time
	// SenderID is the sender's phone number or display name.
	SenderID string
	// Self reports whether the exporting party sent the message.
	Self bool
	Text string
	// Refs are the attachment reference tokens this entry carries.
	Refs []string
	// Duration is non-zero for calls and voicemails.
	Duration time.Duration
}

// NameInfo is the metadata encoded in a fragment file name.
type NameInfo struct {
	Party     string
	Kind      Kind
	Timestamp time.Time
	Group     bool
}

// Parser defines the interface for turning one archive file into a
// Fragment. Implementations MUST be safe for concurrent use.
type Parser interface {
	// Parse interprets content as the fragment identified by id. id is used
	// both as Fragment.ID and, via its base name, as the source of the
	// party, kind, and timestamp metadata.
	Parse(id string, content []byte) (*Fragment, error)
}
