package alias

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Resolver defines the interface for mapping a participant identifier (a
// phone number or a raw display name) to a human-readable alias.
// Implementations MUST be safe for concurrent use and MUST return the input
// identifier unchanged when they have no answer.
type Resolver interface {
	Resolve(identifier string) string
}

// Identity resolves every identifier to itself.
type Identity struct{}

func (Identity) Resolve(identifier string) string { return identifier }

// Static resolves identifiers from an in-memory contacts table. Phone
// number keys are matched both verbatim and with formatting characters
// stripped, so "+1 (555) 123-4567" and "+15551234567" are equivalent.
type Static struct {
	entries    map[string]string
	normalized map[string]string
}

// NewStatic builds a resolver over the given identifier to alias table.
func NewStatic(entries map[string]string) *Static {
	s := &Static{
		entries:    make(map[string]string, len(entries)),
		normalized: make(map[string]string, len(entries)),
	}
	for id, name := range entries {
		s.entries[id] = name
		if norm := normalizeNumber(id); norm != "" {
			s.normalized[norm] = name
		}
	}
	return s
}

func (s *Static) Resolve(identifier string) string {
	if name, ok := s.entries[identifier]; ok {
		return name
	}
	if norm := normalizeNumber(identifier); norm != "" {
		if name, ok := s.normalized[norm]; ok {
			return name
		}
	}
	return identifier
}

// Chain consults resolvers in order and returns the first answer that
// differs from the identifier.
type Chain []Resolver

func (c Chain) Resolve(identifier string) string {
	for _, r := range c {
		if name := r.Resolve(identifier); name != identifier {
			return name
		}
	}
	return identifier
}

// normalizeNumber strips formatting characters from phone numbers. Returns
// "" for identifiers that are not number-like.
func normalizeNumber(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '+' && sb.Len() == 0:
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// formatting, dropped
		default:
			return ""
		}
	}
	if sb.Len() < 3 {
		return ""
	}
	return sb.String()
}

// LoadFile reads a contacts file into a Static resolver. YAML files hold a
// flat identifier to alias map. JSON files hold either the same flat map or
// an array of objects with number/name style fields.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading contacts file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		entries := map[string]string{}
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parsing contacts YAML %s: %w", path, err)
		}
		return NewStatic(entries), nil
	case ".json":
		entries, err := parseJSONContacts(data)
		if err != nil {
			return nil, fmt.Errorf("parsing contacts JSON %s: %w", path, err)
		}
		return NewStatic(entries), nil
	default:
		return nil, fmt.Errorf("unsupported contacts file extension %q", filepath.Ext(path))
	}
}

var jsonNumberFields = []string{"number", "phone", "tel", "id"}
var jsonNameFields = []string{"name", "alias", "displayName"}

func parseJSONContacts(data []byte) (map[string]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	entries := map[string]string{}

	switch {
	case root.IsObject():
		root.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.String {
				entries[key.String()] = value.String()
			}
			return true
		})
	case root.IsArray():
		for _, item := range root.Array() {
			id := firstField(item, jsonNumberFields)
			name := firstField(item, jsonNameFields)
			if id != "" && name != "" {
				entries[id] = name
			}
		}
	default:
		return nil, fmt.Errorf("expected object or array at top level")
	}
	return entries, nil
}

func firstField(item gjson.Result, fields []string) string {
	for _, f := range fields {
		if v := item.Get(f); v.Exists() {
			return v.String()
		}
	}
	return ""
}
