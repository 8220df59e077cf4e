package encoding

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// Handler defines the interface for input character encoding detection and
// normalization. Implementations MUST be safe for concurrent use.
type Handler interface {
	// DetectAndDecode converts content to UTF-8. It returns the decoded
	// bytes, the name of the encoding it decided on, and whether the
	// detection was certain.
	DetectAndDecode(content []byte) (decoded []byte, encodingName string, certain bool, err error)
}

// defaultHandler detects encodings from HTML content sniffing, falling back
// to a configured default when detection is uncertain.
type defaultHandler struct {
	fallback string
	logger   *slog.Logger
}

// NewHandler creates the default encoding handler. fallback names an
// encoding (per the WHATWG registry, e.g. "windows-1252") to use when
// detection is uncertain; empty trusts the detector.
func NewHandler(handler slog.Handler, fallback string) Handler {
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	return &defaultHandler{
		fallback: fallback,
		logger:   slog.New(handler).With(slog.String("component", "encoding")),
	}
}

func (h *defaultHandler) DetectAndDecode(content []byte) ([]byte, string, bool, error) {
	enc, name, certain := charset.DetermineEncoding(content, "text/html")

	// The meta prescan reports even explicit charset declarations as
	// uncertain. A utf-8 verdict (declared or content-sniffed) is kept; the
	// fallback replaces only the windows-1252 last resort.
	if !certain && h.fallback != "" && name != "utf-8" {
		fallbackEnc, fallbackName := charset.Lookup(h.fallback)
		if fallbackEnc == nil {
			return nil, "", false, fmt.Errorf("unknown fallback encoding %q", h.fallback)
		}
		h.logger.Debug("Encoding detection uncertain, applying fallback",
			slog.String("detected", name),
			slog.String("fallback", fallbackName))
		enc, name = fallbackEnc, fallbackName
	}

	if name == "utf-8" {
		return content, name, certain, nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), enc.NewDecoder()))
	if err != nil {
		return nil, name, certain, fmt.Errorf("decoding from %s failed: %w", name, err)
	}
	return decoded, name, certain, nil
}
