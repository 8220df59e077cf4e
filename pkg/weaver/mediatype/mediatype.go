package mediatype

import (
	"mime"
	"path/filepath"
	"strings"
)

// Attachment kind values, derived from the media type's top-level class.
const (
	KindImage   = "image"
	KindAudio   = "audio"
	KindVideo   = "video"
	KindContact = "contact"
	KindOther   = "other"
)

// Info is the typing result for one attachment file name.
type Info struct {
	MIME string
	Kind string
}

// Detector defines the interface for typing attachment files by name.
// Implementations MUST be safe for concurrent use.
type Detector interface {
	Detect(filename string) Info
}

// formats the platform MIME table often lacks. The platform table depends
// on /etc/mime.types being present, so the formats archives actually ship
// are pinned here.
var fallbackMIME = map[string]string{
	".amr":  "audio/amr",
	".3gp":  "video/3gpp",
	".opus": "audio/ogg",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".vcf":  "text/vcard",
	".card": "text/vcard",
}

type extensionDetector struct {
	overrides map[string]string
}

// NewExtensionDetector creates a Detector that types files by extension.
// overrides maps extensions (with leading dot, lowercase) to MIME types and
// takes precedence over the built-in tables.
func NewExtensionDetector(overrides map[string]string) Detector {
	return &extensionDetector{overrides: overrides}
}

func (d *extensionDetector) Detect(filename string) Info {
	ext := strings.ToLower(filepath.Ext(filename))

	mimeType := d.overrides[ext]
	if mimeType == "" {
		mimeType = fallbackMIME[ext]
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(ext)
	}
	if mimeType == "" {
		return Info{MIME: "application/octet-stream", Kind: KindOther}
	}
	// Strip parameters such as "; charset=utf-8".
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return Info{MIME: mimeType, Kind: kindOf(mimeType)}
}

func kindOf(mimeType string) string {
	switch {
	case mimeType == "text/vcard" || mimeType == "text/x-vcard":
		return KindContact
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "audio/"):
		return KindAudio
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		return KindOther
	}
}
