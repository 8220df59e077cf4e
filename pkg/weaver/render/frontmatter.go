package render

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FrontMatter renders a metadata block for Markdown documents in the given
// format ("yaml" or "toml"), including delimiters and a trailing blank
// line. Map keys are emitted in sorted order, so output is reproducible.
func FrontMatter(format string, fields map[string]interface{}) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	switch format {
	case "yaml":
		body, err := yaml.Marshal(fields)
		if err != nil {
			return "", fmt.Errorf("marshaling front matter: %w", err)
		}
		buf.WriteString("---\n")
		buf.Write(body)
		buf.WriteString("---\n\n")
	case "toml":
		buf.WriteString("+++\n")
		if err := toml.NewEncoder(&buf).Encode(fields); err != nil {
			return "", fmt.Errorf("marshaling front matter: %w", err)
		}
		buf.WriteString("+++\n\n")
	default:
		return "", fmt.Errorf("unsupported front matter format %q", format)
	}
	return buf.String(), nil
}
