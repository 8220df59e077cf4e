package weaver

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// defaultAttachmentExtensions is the set of pool file extensions indexed by
// the scanner when the configuration does not supply its own.
var defaultAttachmentExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp",
	".mp3", ".amr", ".m4a", ".wav", ".ogg", ".opus",
	".3gp", ".mp4", ".mov", ".avi",
	".vcf", ".card",
}

// fragmentExtension identifies conversation fragment files.
const fragmentExtension = ".html"

// PoolScanner walks the input tree, discovering fragments and lazily
// indexing the attachment pool they reference.
type PoolScanner struct {
	opts       *Options
	logger     *slog.Logger
	cache      ScanCacheManager
	extensions map[string]bool
}

// NewPoolScanner creates a scanner over opts.InputPath.
func NewPoolScanner(opts *Options, handler slog.Handler, cache ScanCacheManager) *PoolScanner {
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	if cache == nil {
		cache = &NoOpScanCache{}
	}
	exts := opts.AttachmentExtensions
	if len(exts) == 0 {
		exts = defaultAttachmentExtensions
	}
	extSet := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extSet[ext] = true
	}
	return &PoolScanner{
		opts:       opts,
		logger:     slog.New(handler).With(slog.String("component", "scanner")),
		cache:      cache,
		extensions: extSet,
	}
}

// DiscoverFragments walks the input tree and returns the fragment paths,
// relative to the input root, in lexical walk order. Hidden directories and
// the output directory are not entered.
func (s *PoolScanner) DiscoverFragments(ctx context.Context, hooks Hooks) ([]string, error) {
	var fragments []string
	err := filepath.WalkDir(s.opts.InputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if s.skipDir(path, d) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.ToLower(filepath.Ext(d.Name())) != fragmentExtension {
			return nil
		}
		rel, relErr := filepath.Rel(s.opts.InputPath, path)
		if relErr != nil {
			return relErr
		}
		fragments = append(fragments, rel)
		if hooks != nil {
			if hookErr := hooks.OnFragmentDiscovered(rel); hookErr != nil {
				s.logger.Warn("OnFragmentDiscovered hook failed", slog.String("error", hookErr.Error()))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking %s: %w", ErrDiscoverFailed, s.opts.InputPath, err)
	}
	s.logger.Debug("Fragment discovery complete", slog.Int("count", len(fragments)))
	return fragments, nil
}

// BuildIndex returns the attachment pool index mapping file base names to
// absolute paths. requested is the set of reference tokens driving this
// run; it gates cache reuse, never which files are indexed. The returned
// status is one of the CacheStatus constants.
func (s *PoolScanner) BuildIndex(ctx context.Context, requested map[string]struct{}) (map[string]string, string, error) {
	fingerprint, err := DirectoryFingerprint(s.opts.InputPath, s.opts.PoolSubdir)
	if err != nil {
		return nil, CacheStatusMiss, fmt.Errorf("%w: fingerprinting %s: %w", ErrScanFailed, s.opts.InputPath, err)
	}

	status := CacheStatusDisabled
	if s.opts.CacheEnabled {
		status = CacheStatusMiss
		if !s.opts.IgnoreCacheRead && s.cache.Validate(fingerprint, len(requested)) {
			entries := s.cache.Entries()
			s.logger.Info("Attachment pool index served from cache", slog.Int("files", len(entries)))
			return entries, CacheStatusHit, nil
		}
	}

	index := make(map[string]string)
	err = filepath.WalkDir(s.opts.InputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if s.skipDir(path, d) {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || !s.extensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		if existing, dup := index[name]; dup {
			s.logger.Warn("Duplicate pool file name, keeping first occurrence",
				slog.String("name", name),
				slog.String("kept", existing),
				slog.String("ignored", path))
			return nil
		}
		index[name] = path
		return nil
	})
	if err != nil {
		return nil, status, fmt.Errorf("%w: scanning %s: %w", ErrScanFailed, s.opts.InputPath, err)
	}

	s.cache.Replace(index, fingerprint)
	s.logger.Info("Attachment pool scanned", slog.Int("files", len(index)))
	return index, status, nil
}

// skipDir reports whether the walk should not enter dir. Hidden directories
// and the output tree (which may nest inside the input) are excluded.
func (s *PoolScanner) skipDir(path string, d fs.DirEntry) bool {
	if path == s.opts.InputPath {
		return false
	}
	if strings.HasPrefix(d.Name(), ".") {
		return true
	}
	return s.opts.OutputPath != "" && path == s.opts.OutputPath
}
