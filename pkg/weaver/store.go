package weaver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// ConversationRecord accumulates one conversation's timeline during a run.
// Messages stay in arrival order until finalization sorts them.
type ConversationRecord struct {
	ID               string
	Messages         []Message
	KindCounts       map[MessageKind]int
	AttachmentCounts map[string]int
	AttachmentTotal  int
	UnresolvedCount  int
	FirstActivity    time.Time
	LastActivity     time.Time
}

// StoreStats is a point-in-time snapshot of aggregate store statistics.
type StoreStats struct {
	Conversations    int
	Messages         int
	KindCounts       map[MessageKind]int
	AttachmentCounts map[string]int
	AttachmentTotal  int
	UnresolvedCount  int
	LastActivity     time.Time
}

// ConversationStore groups messages under conversation identifiers. It is
// the convergence point for all concurrent producers: every method is safe
// for concurrent use, one mutex guards the whole store, and no method
// performs I/O or calls out while holding it.
type ConversationStore struct {
	mu            sync.Mutex
	conversations map[string]*ConversationRecord
}

// NewConversationStore creates an empty store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{conversations: make(map[string]*ConversationRecord)}
}

// Open ensures a buffer exists for id. Calling it again, from any
// goroutine, is a no-op.
func (s *ConversationStore) Open(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open(id)
}

func (s *ConversationStore) open(id string) *ConversationRecord {
	rec, ok := s.conversations[id]
	if !ok {
		rec = &ConversationRecord{
			ID:               id,
			KindCounts:       make(map[MessageKind]int),
			AttachmentCounts: make(map[string]int),
		}
		s.conversations[id] = rec
	}
	return rec
}

// Append adds one message to the conversation, opening it if needed, and
// maintains the running counters and activity watermarks.
func (s *ConversationStore) Append(id string, ts time.Time, sender string, self bool, text string, attachments []Attachment, kind MessageKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.open(id)
	rec.Messages = append(rec.Messages, Message{
		Timestamp:   ts,
		Sender:      sender,
		Self:        self,
		Text:        text,
		Attachments: attachments,
		Kind:        kind,
	})
	rec.KindCounts[kind]++
	for _, att := range attachments {
		if att.Resolved {
			rec.AttachmentCounts[att.Kind]++
			rec.AttachmentTotal++
		} else {
			rec.UnresolvedCount++
		}
	}
	if !ts.IsZero() {
		if rec.FirstActivity.IsZero() || ts.Before(rec.FirstActivity) {
			rec.FirstActivity = ts
		}
		if ts.After(rec.LastActivity) {
			rec.LastActivity = ts
		}
	}
}

// Len returns the number of open conversations.
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// AggregateStats snapshots the whole store under a single lock acquisition,
// so the counts are mutually consistent even while producers run.
func (s *ConversationStore) AggregateStats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := StoreStats{
		Conversations:    len(s.conversations),
		KindCounts:       make(map[MessageKind]int),
		AttachmentCounts: make(map[string]int),
	}
	for _, rec := range s.conversations {
		stats.Messages += len(rec.Messages)
		stats.AttachmentTotal += rec.AttachmentTotal
		stats.UnresolvedCount += rec.UnresolvedCount
		for kind, n := range rec.KindCounts {
			stats.KindCounts[kind] += n
		}
		for kind, n := range rec.AttachmentCounts {
			stats.AttachmentCounts[kind] += n
		}
		if rec.LastActivity.After(stats.LastActivity) {
			stats.LastActivity = rec.LastActivity
		}
	}
	return stats
}

// Drain removes and returns all records, ordered by identifier. Callers own
// the returned records exclusively; the store is empty afterwards.
func (s *ConversationStore) Drain() []*ConversationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*ConversationRecord, 0, len(s.conversations))
	for _, rec := range s.conversations {
		out = append(out, rec)
	}
	s.conversations = make(map[string]*ConversationRecord)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- Conversation Identifier Derivation ---

// DeriveConversationID builds a conversation identifier from the
// counterpart aliases. It is a pure function of its inputs: the same
// aliases in the same order always produce the same identifier, and two
// orderings of the same group produce two identifiers. Unifying reordered
// groups is the alias layer's concern, not this function's.
//
// Two-party conversations use the sole counterpart's alias. Groups join the
// unique aliases in first-seen order; groups larger than maxParticipants
// keep the first few aliases and compact the rest into a short hash plus a
// count marker. Identifiers longer than maxLength collapse to a hash-only
// form.
func DeriveConversationID(aliases []string, group bool, maxParticipants, maxLength int) string {
	if maxParticipants <= 0 {
		maxParticipants = DefaultMaxIDParticipants
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxIDLength
	}

	unique := make([]string, 0, len(aliases))
	seen := make(map[string]bool, len(aliases))
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" || seen[alias] {
			continue
		}
		seen[alias] = true
		unique = append(unique, alias)
	}
	if len(unique) == 0 {
		return "unknown"
	}

	var id string
	switch {
	case !group || len(unique) == 1:
		id = unique[0]
	case len(unique) <= maxParticipants:
		id = strings.Join(unique, IDSeparator)
	default:
		rest := append([]string(nil), unique[IDPreviewParticipants:]...)
		sort.Strings(rest)
		id = strings.Join(unique[:IDPreviewParticipants], IDSeparator) +
			IDSeparator + hashHex(strings.Join(rest, IDSeparator), IDParticipantHashLen) +
			fmt.Sprintf("+%d", len(rest))
	}

	if utf8.RuneCountInString(id) > maxLength {
		id = "conversation-" + hashHex(id, IDFallbackHashLen)
	}
	return id
}

func hashHex(s string, n int) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:n]
}
