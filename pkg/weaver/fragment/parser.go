package fragment

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// htmlParser is the default Parser for archive HTML fragments. It reads the
// microformat markup the archives use: div.message entries with abbr.dt
// timestamps, cite senders, and q bodies, plus the single-entry layout of
// call logs and voicemails.
type htmlParser struct {
	logger *slog.Logger
}

// NewHTMLParser creates the default archive fragment parser.
func NewHTMLParser(handler slog.Handler) Parser {
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	return &htmlParser{
		logger: slog.New(handler).With(slog.String("component", "fragment")),
	}
}

func (p *htmlParser) Parse(id string, content []byte) (*Fragment, error) {
	info, ok := ParseName(id)
	if !ok {
		return nil, fmt.Errorf("file name %q does not follow the archive convention", id)
	}

	root, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("invalid HTML: %w", err)
	}

	frag := &Fragment{
		ID:   id,
		Kind: info.Kind,
	}

	messageNodes := findAll(root, func(n *html.Node) bool {
		return n.Data == "div" && hasClass(n, "message")
	})
	if len(messageNodes) > 0 {
		for _, node := range messageNodes {
			frag.Messages = append(frag.Messages, p.parseMessage(node, info))
		}
	} else if msg, ok := p.parseSingleEntry(root, info); ok {
		frag.Messages = append(frag.Messages, msg)
	}

	frag.Participants, frag.Group = participants(root, frag.Messages, info)
	frag.References = collectReferences(frag.Messages)
	return frag, nil
}

// parseMessage extracts one div.message entry.
func (p *htmlParser) parseMessage(node *html.Node, info NameInfo) Message {
	msg := Message{Timestamp: info.Timestamp}

	if dt := findFirst(node, func(n *html.Node) bool {
		return n.Data == "abbr" && hasClass(n, "dt")
	}); dt != nil {
		if ts, err := time.Parse(time.RFC3339Nano, attrVal(dt, "title")); err == nil {
			msg.Timestamp = ts
		} else {
			p.logger.Debug("Unparseable message timestamp, using file name time", slog.String("value", attrVal(dt, "title")))
		}
	}

	if cite := findFirst(node, func(n *html.Node) bool { return n.Data == "cite" }); cite != nil {
		msg.SenderID, msg.Self = senderIdentity(cite)
	}

	if q := findFirst(node, func(n *html.Node) bool { return n.Data == "q" }); q != nil {
		msg.Text = strings.TrimSpace(textContent(q))
	}

	msg.Refs = referenceTokens(node)
	return msg
}

// parseSingleEntry handles call log and voicemail fragments, which carry one
// implicit entry instead of a message list.
func (p *htmlParser) parseSingleEntry(root *html.Node, info NameInfo) (Message, bool) {
	msg := Message{Timestamp: info.Timestamp}
	found := false

	if pub := findFirst(root, func(n *html.Node) bool {
		return (n.Data == "abbr" || n.Data == "span") && hasClass(n, "published")
	}); pub != nil {
		found = true
		if ts, err := time.Parse(time.RFC3339Nano, attrVal(pub, "title")); err == nil {
			msg.Timestamp = ts
		}
	}

	if contrib := findFirst(root, func(n *html.Node) bool {
		return n.Data == "div" && hasClass(n, "contributor")
	}); contrib != nil {
		found = true
		msg.SenderID, msg.Self = senderIdentity(contrib)
	}

	if dur := findFirst(root, func(n *html.Node) bool {
		return n.Data == "abbr" && hasClass(n, "duration")
	}); dur != nil {
		msg.Duration = parseISODuration(attrVal(dur, "title"))
	}

	// Voicemail transcripts live in span.full-text.
	if full := findFirst(root, func(n *html.Node) bool {
		return n.Data == "span" && hasClass(n, "full-text")
	}); full != nil {
		msg.Text = strings.TrimSpace(textContent(full))
	}

	msg.Refs = referenceTokens(root)
	if len(msg.Refs) > 0 {
		found = true
	}
	return msg, found
}

// senderIdentity walks a cite or contributor node for the sender's phone
// number (preferred) or display name.
func senderIdentity(node *html.Node) (string, bool) {
	var id string
	var self bool

	if tel := findFirst(node, func(n *html.Node) bool {
		return n.Data == "a" && strings.HasPrefix(attrVal(n, "href"), "tel:")
	}); tel != nil {
		id = strings.TrimPrefix(attrVal(tel, "href"), "tel:")
	}
	// Archives mark the display name with span.fn or abbr.fn depending on
	// the export vintage.
	if fn := findFirst(node, func(n *html.Node) bool {
		return (n.Data == "span" || n.Data == "abbr") && hasClass(n, "fn")
	}); fn != nil {
		name := strings.TrimSpace(textContent(fn))
		if name == "Me" {
			self = true
		}
		if id == "" {
			id = name
		}
	}
	if id == "" {
		id = strings.TrimSpace(textContent(node))
	}
	return id, self
}

// participants determines the counterpart identifiers and grouping. A
// participants div wins; otherwise the non-self senders are used, falling
// back to the file name party token for one-sided threads.
func participants(root *html.Node, messages []Message, info NameInfo) ([]string, bool) {
	if div := findFirst(root, func(n *html.Node) bool {
		return n.Data == "div" && hasClass(n, "participants")
	}); div != nil {
		var out []string
		seen := map[string]bool{}
		for _, node := range findAll(div, func(n *html.Node) bool {
			return n.Data == "a" && strings.HasPrefix(attrVal(n, "href"), "tel:")
		}) {
			id := strings.TrimPrefix(attrVal(node, "href"), "tel:")
			if id == "" || seen[id] {
				continue
			}
			if fn := findFirst(node.Parent, func(n *html.Node) bool {
				return (n.Data == "span" || n.Data == "abbr") && hasClass(n, "fn")
			}); fn != nil && strings.TrimSpace(textContent(fn)) == "Me" {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
		if len(out) > 0 {
			return out, info.Group || len(out) > 1
		}
	}

	var out []string
	seen := map[string]bool{}
	for _, msg := range messages {
		if msg.Self || msg.SenderID == "" || seen[msg.SenderID] {
			continue
		}
		seen[msg.SenderID] = true
		out = append(out, msg.SenderID)
	}
	if len(out) == 0 && info.Party != "" && !info.Group {
		out = append(out, info.Party)
	}
	return out, info.Group || len(out) > 1
}

// referenceTokens collects the attachment reference tokens under node:
// img/audio/video sources and link targets that are not tel, web, or anchor
// references. Tokens are reduced to their base name; archive markup
// references files that sit next to the fragment, occasionally with a
// leading "./".
func referenceTokens(node *html.Node) []string {
	var out []string
	seen := map[string]bool{}
	add := func(token string) {
		token = strings.TrimSpace(token)
		if token == "" || isExternalRef(token) {
			return
		}
		if i := strings.IndexAny(token, "?#"); i >= 0 {
			token = token[:i]
		}
		token = path.Base(token)
		if token == "" || token == "." || token == "/" || seen[token] {
			return
		}
		seen[token] = true
		out = append(out, token)
	}
	walk(node, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "img", "audio", "video":
			add(attrVal(n, "src"))
		case "a":
			if hasClass(n, "vcard") || hasClass(n, "attachment") || attrVal(n, "download") != "" {
				add(attrVal(n, "href"))
			}
		}
	})
	return out
}

func isExternalRef(token string) bool {
	lower := strings.ToLower(token)
	return strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "http:") ||
		strings.HasPrefix(lower, "https:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(lower, "#")
}

func collectReferences(messages []Message) []string {
	var out []string
	seen := map[string]bool{}
	for _, msg := range messages {
		for _, ref := range msg.Refs {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}

// --- Duration Parsing ---

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISODuration reads the ISO 8601 durations archives use for call
// lengths, e.g. "PT1M30S". Unparseable values yield zero.
func parseISODuration(value string) time.Duration {
	m := isoDurationRe.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0
	}
	var d time.Duration
	if m[1] != "" {
		h, _ := strconv.Atoi(m[1])
		d += time.Duration(h) * time.Hour
	}
	if m[2] != "" {
		min, _ := strconv.Atoi(m[2])
		d += time.Duration(min) * time.Minute
	}
	if m[3] != "" {
		s, _ := strconv.Atoi(m[3])
		d += time.Duration(s) * time.Second
	}
	return d
}

// --- Node Helpers ---

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	walk(n, func(node *html.Node) {
		if node.Type == html.ElementNode && match(node) {
			out = append(out, node)
		}
	})
	return out
}

func attrVal(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attrVal(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
	})
	return sb.String()
}
