package render_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceweave/voice-weaver/internal/testutil"
	"github.com/voiceweave/voice-weaver/pkg/weaver/render"
)

func sampleConversationDoc() *render.ConversationDoc {
	return &render.ConversationDoc{
		ID:             "Alice Smith",
		Title:          "Alice Smith",
		GeneratedAt:    time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC),
		ToolVersion:    "1.2.3",
		MessageCount:   2,
		SMSCount:       1,
		CallCount:      1,
		FirstActivity:  time.Date(2024, 1, 15, 18, 32, 45, 0, time.UTC),
		LastActivity:   time.Date(2024, 3, 10, 14, 5, 0, 0, time.UTC),
		Messages: []render.MessageView{
			{
				Timestamp: time.Date(2024, 1, 15, 18, 32, 45, 0, time.UTC),
				Sender:    "Alice Smith",
				Kind:      "sms",
				Text:      "see you <there> & then",
				Attachments: []render.AttachmentView{
					{Href: "attachments/photo.jpg", Label: "photo.jpg", Kind: "image", Resolved: true},
					{Href: "", Label: "lost-token", Kind: "other", Resolved: false},
				},
			},
			{
				Timestamp: time.Date(2024, 3, 10, 14, 5, 0, 0, time.UTC),
				Sender:    "Me",
				Self:      true,
				Kind:      "call",
				Text:      "Placed call, 2m15s",
			},
		},
	}
}

func TestGoTemplateRenderer_HTMLConversation(t *testing.T) {
	r, err := render.NewGoTemplateRenderer("html", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Conversation(&buf, sampleConversationDoc()))
	out := buf.String()

	assert.Contains(t, out, "<title>Alice Smith</title>")
	assert.Contains(t, out, "voice-weaver 1.2.3")
	// html/template escapes message text.
	assert.Contains(t, out, "see you &lt;there&gt; &amp; then")
	assert.NotContains(t, out, "see you <there>")
	assert.Contains(t, out, `<img src="attachments/photo.jpg"`)
	assert.Contains(t, out, "attachment not found: lost-token")
	assert.Contains(t, out, `class="message self kind-call"`)
}

func TestGoTemplateRenderer_MarkdownConversation(t *testing.T) {
	r, err := render.NewGoTemplateRenderer("markdown", "")
	require.NoError(t, err)

	doc := sampleConversationDoc()
	doc.FrontMatter = "---\ntitle: Alice Smith\n---\n\n"

	var buf bytes.Buffer
	require.NoError(t, r.Conversation(&buf, doc))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "---\ntitle: Alice Smith\n---\n\n# Alice Smith"),
		"front matter must precede the heading, got: %.80q", out)
	assert.Contains(t, out, "2 messages (1 texts, 1 calls, 0 voicemails)")
	assert.Contains(t, out, "![photo.jpg](attachments/photo.jpg)")
	assert.Contains(t, out, "*attachment not found: lost-token*")
	assert.Contains(t, out, "**Me**")
}

func TestGoTemplateRenderer_Index(t *testing.T) {
	doc := &render.IndexDoc{
		GeneratedAt:       time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC),
		ToolVersion:       "1.2.3",
		ConversationCount: 1,
		MessageCount:      2,
		AttachmentCount:   1,
		UnresolvedCount:   1,
		Conversations: []render.IndexEntry{
			{
				ID:           "Alice Smith",
				File:         "Alice Smith.md",
				MessageCount: 2,
				SMSCount:     1,
				CallCount:    1,
				LastActivity: time.Date(2024, 3, 10, 14, 5, 0, 0, time.UTC),
			},
		},
	}

	t.Run("markdown", func(t *testing.T) {
		r, err := render.NewGoTemplateRenderer("markdown", "")
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, r.Index(&buf, doc))
		out := buf.String()

		assert.Contains(t, out, "[Alice Smith](Alice Smith.md)")
		assert.Contains(t, out, "1 unresolved references")
	})

	t.Run("html", func(t *testing.T) {
		r, err := render.NewGoTemplateRenderer("html", "")
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, r.Index(&buf, doc))
		assert.Contains(t, buf.String(), "Alice Smith")
	})
}

func TestNewGoTemplateRenderer_UnsupportedFormat(t *testing.T) {
	_, err := render.NewGoTemplateRenderer("pdf", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported document format")
}

func TestNewGoTemplateRenderer_CustomTemplate(t *testing.T) {
	dir := t.TempDir()

	t.Run("Replaces the conversation template", func(t *testing.T) {
		path := filepath.Join(dir, "custom.tmpl")
		testutil.CreateDummyFile(t, path, "CUSTOM {{ .Title }} ({{ .MessageCount }})")

		r, err := render.NewGoTemplateRenderer("markdown", path)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, r.Conversation(&buf, sampleConversationDoc()))
		assert.Equal(t, "CUSTOM Alice Smith (2)", buf.String())

		// The index template stays built in.
		buf.Reset()
		require.NoError(t, r.Index(&buf, &render.IndexDoc{}))
		assert.Contains(t, buf.String(), "# Conversations")
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := render.NewGoTemplateRenderer("markdown", filepath.Join(dir, "absent.tmpl"))
		assert.Error(t, err)
	})

	t.Run("Broken template", func(t *testing.T) {
		path := filepath.Join(dir, "broken.tmpl")
		testutil.CreateDummyFile(t, path, "{{ .Title")

		_, err := render.NewGoTemplateRenderer("markdown", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing conversation template")
	})
}
