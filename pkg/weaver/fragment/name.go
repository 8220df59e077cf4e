package fragment

import (
	"path/filepath"
	"strings"
	"time"
)

// kindTokens maps the kind token of a fragment file name to its Kind.
// "Recorded" calls carry audio like voicemails and are treated as such.
var kindTokens = map[string]Kind{
	"Text":      KindText,
	"Placed":    KindPlaced,
	"Received":  KindReceived,
	"Missed":    KindMissed,
	"Voicemail": KindVoicemail,
	"Recorded":  KindVoicemail,
}

// ParseName extracts the party, kind, and timestamp metadata from a
// fragment file name such as
// "+15551234567 - Text - 2024-01-15T18_32_45Z.html". Returns ok=false when
// the name does not follow the archive convention.
func ParseName(name string) (NameInfo, bool) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	parts := strings.Split(base, FieldSeparator)

	var info NameInfo
	switch {
	case len(parts) >= 3:
		// The party may itself contain the separator; kind and timestamp are
		// always the last two tokens.
		info.Party = strings.Join(parts[:len(parts)-2], FieldSeparator)
		kind, ok := kindTokens[parts[len(parts)-2]]
		if !ok {
			return NameInfo{}, false
		}
		info.Kind = kind
		ts, ok := parseNameTime(parts[len(parts)-1])
		if !ok {
			return NameInfo{}, false
		}
		info.Timestamp = ts
	case len(parts) == 2:
		// Group conversation fragments omit the kind token.
		info.Party = parts[0]
		info.Kind = KindText
		ts, ok := parseNameTime(parts[1])
		if !ok {
			return NameInfo{}, false
		}
		info.Timestamp = ts
	default:
		return NameInfo{}, false
	}

	info.Group = info.Party == GroupParty
	return info, true
}

// parseNameTime reads a file name timestamp token. Archives replace the
// colons of RFC 3339 with underscores to stay filesystem safe.
func parseNameTime(token string) (time.Time, bool) {
	ts, err := time.Parse(time.RFC3339, strings.ReplaceAll(token, "_", ":"))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
