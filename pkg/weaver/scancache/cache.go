package scancache

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Defined sentinel errors for cache operations. Both are non-fatal to a
// run: load failures degrade to a fresh scan, persist failures lose only
// the next run's head start.
var (
	ErrCacheLoad    = errors.New("failed to load scan cache")
	ErrCachePersist = errors.New("failed to persist scan cache")
)

// Supported on-disk encodings.
const (
	FormatGob  = "gob"
	FormatJSON = "json"
)

// header identifies and validates a cache file.
type header struct {
	SchemaVersion string    `json:"schemaVersion"`
	AppVersion    string    `json:"appVersion"`
	Fingerprint   string    `json:"fingerprint"`
	FileCount     int       `json:"fileCount"`
	ScanTime      time.Time `json:"scanTime"`
}

// payload is the full serialized cache file.
type payload struct {
	Header  header            `json:"header"`
	Entries map[string]string `json:"entries"`
}

// FileScanCache is the default ScanCacheManager implementation, persisting
// the attachment pool index to a single file in the output directory.
type FileScanCache struct {
	mu            sync.RWMutex
	schemaVersion string
	appVersion    string
	format        string
	logger        *slog.Logger

	loaded      bool
	fingerprint string
	scanTime    time.Time
	entries     map[string]string
}

// NewFileScanCache creates a cache manager. format selects the on-disk
// encoding; unknown values fall back to gob.
func NewFileScanCache(handler slog.Handler, schemaVersion, appVersion, format string) *FileScanCache {
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	logger := slog.New(handler).With(slog.String("component", "scancache"))
	if format != FormatGob && format != FormatJSON {
		logger.Warn("Unknown cache format, using gob", slog.String("format", format))
		format = FormatGob
	}
	return &FileScanCache{
		schemaVersion: schemaVersion,
		appVersion:    appVersion,
		format:        format,
		logger:        logger,
		entries:       map[string]string{},
	}
}

// Load reads the cache file at cacheFilePath. A missing file, a corrupt
// file, or a version mismatch leaves the cache empty and returns nil; only
// unexpected I/O failures return an error, which callers treat as a
// warning.
func (c *FileScanCache) Load(cacheFilePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()

	data, err := os.ReadFile(cacheFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Debug("No scan cache file found", slog.String("path", cacheFilePath))
			return nil
		}
		return fmt.Errorf("%w: reading %s: %w", ErrCacheLoad, cacheFilePath, err)
	}

	var p payload
	if err := c.decode(data, &p); err != nil {
		c.logger.Warn("Scan cache file is corrupt, a full scan will run",
			slog.String("path", cacheFilePath),
			slog.String("error", err.Error()))
		return nil
	}
	if p.Header.SchemaVersion != c.schemaVersion || p.Header.AppVersion != c.appVersion {
		c.logger.Warn("Scan cache version mismatch, a full scan will run",
			slog.String("cacheSchema", p.Header.SchemaVersion),
			slog.String("cacheApp", p.Header.AppVersion))
		return nil
	}

	c.loaded = true
	c.fingerprint = p.Header.Fingerprint
	c.scanTime = p.Header.ScanTime
	c.entries = p.Entries
	if c.entries == nil {
		c.entries = map[string]string{}
	}
	c.logger.Debug("Scan cache loaded",
		slog.Int("entries", len(c.entries)),
		slog.Time("scanTime", c.scanTime))
	return nil
}

// Validate reports whether the loaded index may replace a fresh scan. The
// fingerprint must match exactly and the requested token count must stay
// within tolerancePercent of the indexed file count.
func (c *FileScanCache) Validate(fingerprint string, requestedCount int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.loaded || c.fingerprint == "" || c.fingerprint != fingerprint {
		return false
	}
	cached := len(c.entries)
	if cached == 0 {
		return requestedCount == 0
	}
	divergence := requestedCount - cached
	if divergence < 0 {
		divergence = -divergence
	}
	return divergence*100 <= cached*tolerancePercent
}

// tolerancePercent bounds how far the requested reference count may drift
// from the cached index size before the cache is considered stale.
const tolerancePercent = 10

// Entries returns a copy of the cached filename to path index.
func (c *FileScanCache) Entries() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Replace installs a freshly scanned index under the given fingerprint.
func (c *FileScanCache) Replace(entries map[string]string, fingerprint string) {
	copied := make(map[string]string, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	c.fingerprint = fingerprint
	c.scanTime = time.Now()
	c.entries = copied
}

// Persist writes the cache file atomically via a temp file and rename. An
// empty cache removes the file instead.
func (c *FileScanCache) Persist(cacheFilePath string) error {
	c.mu.RLock()
	p := payload{
		Header: header{
			SchemaVersion: c.schemaVersion,
			AppVersion:    c.appVersion,
			Fingerprint:   c.fingerprint,
			FileCount:     len(c.entries),
			ScanTime:      c.scanTime,
		},
		Entries: make(map[string]string, len(c.entries)),
	}
	for k, v := range c.entries {
		p.Entries[k] = v
	}
	loaded := c.loaded
	c.mu.RUnlock()

	if !loaded || len(p.Entries) == 0 {
		if err := os.Remove(cacheFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: removing stale cache %s: %w", ErrCachePersist, cacheFilePath, err)
		}
		return nil
	}

	data, err := c.encode(&p)
	if err != nil {
		return fmt.Errorf("%w: encoding: %w", ErrCachePersist, err)
	}

	dir := filepath.Dir(cacheFilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrCachePersist, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(cacheFilePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrCachePersist, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing temp file: %w", ErrCachePersist, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing temp file: %w", ErrCachePersist, err)
	}
	if err := os.Rename(tmpName, cacheFilePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replacing %s: %w", ErrCachePersist, cacheFilePath, err)
	}
	c.logger.Debug("Scan cache persisted",
		slog.String("path", cacheFilePath),
		slog.Int("entries", len(p.Entries)))
	return nil
}

func (c *FileScanCache) reset() {
	c.loaded = false
	c.fingerprint = ""
	c.scanTime = time.Time{}
	c.entries = map[string]string{}
}

func (c *FileScanCache) decode(data []byte, p *payload) error {
	if c.format == FormatJSON {
		return json.Unmarshal(data, p)
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(p)
}

func (c *FileScanCache) encode(p *payload) ([]byte, error) {
	var buf bytes.Buffer
	if c.format == FormatJSON {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
