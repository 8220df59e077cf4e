package weaver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/voiceweave/voice-weaver/pkg/util"
	"github.com/voiceweave/voice-weaver/pkg/weaver/alias"
	"github.com/voiceweave/voice-weaver/pkg/weaver/encoding"
	"github.com/voiceweave/voice-weaver/pkg/weaver/fragment"
	"github.com/voiceweave/voice-weaver/pkg/weaver/mediatype"
	"github.com/voiceweave/voice-weaver/pkg/weaver/render"
	"github.com/voiceweave/voice-weaver/pkg/weaver/scancache"
)

// --- Run Aggregator ---

// runAggregator collects per-fragment outcomes from concurrent workers. All
// methods are safe for concurrent use.
type runAggregator struct {
	mu         sync.Mutex
	fragments  []FragmentInfo
	skipped    []SkippedInfo
	errors     []ErrorInfo
	unresolved []UnresolvedInfo
	warnings   int
	fatal      bool
}

func newRunAggregator() *runAggregator {
	return &runAggregator{}
}

func (a *runAggregator) addFragment(info FragmentInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fragments = append(a.fragments, info)
}

func (a *runAggregator) addSkipped(info SkippedInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skipped = append(a.skipped, info)
	a.warnings++
}

func (a *runAggregator) addError(info ErrorInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errors = append(a.errors, info)
	if info.IsFatal {
		a.fatal = true
	}
}

func (a *runAggregator) addWarning() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.warnings++
}

func (a *runAggregator) setUnresolved(list []UnresolvedInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unresolved = list
}

func (a *runAggregator) hasFatal() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fatal
}

// snapshot returns copies of the collected slices, sorted for stable
// report output.
func (a *runAggregator) snapshot() ([]FragmentInfo, []SkippedInfo, []ErrorInfo, []UnresolvedInfo, int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fragments := append([]FragmentInfo(nil), a.fragments...)
	skipped := append([]SkippedInfo(nil), a.skipped...)
	errs := append([]ErrorInfo(nil), a.errors...)
	unresolved := append([]UnresolvedInfo(nil), a.unresolved...)
	sort.Slice(fragments, func(i, j int) bool { return fragments[i].Path < fragments[j].Path })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })
	return fragments, skipped, errs, unresolved, a.warnings, a.fatal
}

// --- Engine ---

// Engine orchestrates a reconstruction run as a fixed sequence of stages:
// discover fragments, parse them on a bounded worker pool, resolve
// attachment references against the lazily built pool index, append
// messages to the store from concurrent producers, then finalize output
// documents. The store and the scan cache are the only shared mutable
// state between workers.
type Engine struct {
	opts      *Options
	logger    *slog.Logger
	hooks     Hooks
	store     *ConversationStore
	scanner   *PoolScanner
	processor *FragmentProcessor
	resolver  *ReferenceResolver
	finalizer *Finalizer
	scanCache ScanCacheManager
	agg       *runAggregator

	ctx    context.Context
	cancel context.CancelFunc

	runID       string
	concurrency int
	startTime   time.Time

	// run state gathered for the report
	discovered   int
	refCount     int
	breakdown    map[string]int
	stats        StoreStats
	infos        []ConversationInfo
	purged       int
	poolIndexed  int
	poolSkipped  bool
	poolScanned  bool
	cacheStatus  string
	copied       atomic.Int64
	copyFailures atomic.Int64
}

// NewEngine validates opts, fills in default collaborators, and prepares
// the output directory. The context bounds the whole run; cancelling it
// stops workers at the next fragment boundary.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: logger handler is required", ErrConfigValidation)
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	if opts.InputPath == "" {
		return nil, fmt.Errorf("%w: input path is required", ErrConfigValidation)
	}
	if info, err := os.Stat(opts.InputPath); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: input path %q is not a readable directory", ErrConfigValidation, opts.InputPath)
	}
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("%w: output path is required", ErrConfigValidation)
	}
	if err := os.MkdirAll(opts.OutputPath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMkdirFailed, opts.OutputPath, err)
	}

	applyDefaults(&opts)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	scanCache, cacheStatus, err := resolveScanCache(&opts, logger)
	if err != nil {
		return nil, err
	}

	if opts.Renderer == nil {
		renderer, err := render.NewGoTemplateRenderer(string(opts.DocumentFormat), opts.TemplatePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigValidation, err)
		}
		opts.Renderer = renderer
	}

	e := &Engine{
		opts:        &opts,
		logger:      logger,
		hooks:       opts.EventHooks,
		store:       NewConversationStore(),
		scanCache:   scanCache,
		agg:         newRunAggregator(),
		runID:       uuid.NewString(),
		concurrency: concurrency,
		cacheStatus: cacheStatus,
		breakdown:   map[string]int{},
	}
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.scanner = opts.ScannerFactory(&opts, opts.Logger, scanCache)
	e.processor = opts.ProcessorFactory(&opts, opts.Logger, opts.FragmentParser, opts.EncodingHandler, opts.AliasResolver)
	e.resolver = NewReferenceResolver(opts.Logger, opts.MediaTyper)
	e.finalizer = NewFinalizer(&opts, opts.Logger, opts.Renderer)

	logger.Debug("Engine initialized",
		slog.String("runId", e.runID),
		slog.Int("concurrency", concurrency),
		slog.String("format", string(opts.DocumentFormat)))
	return e, nil
}

// applyDefaults fills zero values so library callers get the same behavior
// as the CLI.
func applyDefaults(opts *Options) {
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	if opts.OnErrorMode == "" {
		opts.OnErrorMode = DefaultOnErrorMode
	}
	if opts.DocumentFormat == "" {
		opts.DocumentFormat = DefaultDocumentFormat
	}
	if opts.ReportFormat == "" {
		opts.ReportFormat = DefaultReportFormat
	}
	if opts.SelfName == "" {
		opts.SelfName = DefaultSelfName
	}
	if opts.PoolSubdir == "" {
		opts.PoolSubdir = DefaultPoolSubdir
	}
	if opts.MaxIDParticipants <= 0 {
		opts.MaxIDParticipants = DefaultMaxIDParticipants
	}
	if opts.MaxIDLength <= 0 {
		opts.MaxIDLength = DefaultMaxIDLength
	}
	if opts.CacheFormat == "" {
		opts.CacheFormat = DefaultCacheFormat
	}
	if opts.CacheFilePath == "" {
		opts.CacheFilePath = filepath.Join(opts.OutputPath, CacheFileName)
	}
	if opts.FragmentParser == nil {
		opts.FragmentParser = fragment.NewHTMLParser(opts.Logger)
	}
	if opts.EncodingHandler == nil {
		opts.EncodingHandler = encoding.NewHandler(opts.Logger, opts.DefaultEncoding)
	}
	if opts.AliasResolver == nil {
		opts.AliasResolver = alias.Identity{}
	}
	if opts.MediaTyper == nil {
		opts.MediaTyper = mediatype.NewExtensionDetector(nil)
	}
	if opts.ProcessorFactory == nil {
		opts.ProcessorFactory = NewFragmentProcessor
	}
	if opts.ScannerFactory == nil {
		opts.ScannerFactory = NewPoolScanner
	}
}

// resolveScanCache prepares the cache manager and loads any existing cache
// file. Load problems degrade to a fresh scan, never a failed run.
func resolveScanCache(opts *Options, logger *slog.Logger) (ScanCacheManager, string, error) {
	if !opts.CacheEnabled {
		return &NoOpScanCache{}, CacheStatusDisabled, nil
	}

	if opts.ClearCache {
		if err := os.Remove(opts.CacheFilePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to clear scan cache file",
				slog.String("path", opts.CacheFilePath),
				slog.String("error", err.Error()))
		} else {
			logger.Debug("Scan cache cleared", slog.String("path", opts.CacheFilePath))
		}
	}

	mgr := opts.ScanCache
	if mgr == nil {
		mgr = scancache.NewFileScanCache(opts.Logger, CacheSchemaVersion, opts.AppVersion, opts.CacheFormat)
	}
	if err := mgr.Load(opts.CacheFilePath); err != nil {
		logger.Warn("Scan cache unavailable, a full scan will run",
			slog.String("error", err.Error()))
	}
	return mgr, CacheStatusSkipped, nil
}

// Run executes the pipeline. It always returns a complete report, even
// after fatal errors or a recovered panic, and always invokes
// Hooks.OnRunComplete exactly once.
func (e *Engine) Run() (report Report, runErr error) {
	e.startTime = time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Unexpected panic during run", slog.Any("panic", r))
			runErr = fmt.Errorf("%w: %v", ErrRunPanic, r)
			e.agg.addError(ErrorInfo{Error: runErr.Error(), IsFatal: true})
		}
		e.cancel()
		if e.opts.CacheEnabled && e.poolScanned {
			if err := e.scanCache.Persist(e.opts.CacheFilePath); err != nil {
				e.logger.Warn("Failed to persist scan cache", slog.String("error", err.Error()))
				e.agg.addWarning()
			}
		}
		report = e.buildReport(runErr)
		if hookErr := e.hooks.OnRunComplete(report); hookErr != nil {
			e.logger.Warn("OnRunComplete hook failed", slog.String("error", hookErr.Error()))
		}
		e.logger.Info("Run complete",
			slog.Int("conversations", report.Summary.ConversationsWritten),
			slog.Int("messages", report.Summary.MessageCount),
			slog.Int("errors", report.Summary.ErrorCount),
			slog.Float64("seconds", report.Summary.DurationSeconds))
	}()

	// Stage 1: discover fragments.
	e.phase(PhaseDiscover)
	fragments, err := e.scanner.DiscoverFragments(e.ctx, e.hooks)
	if err != nil {
		return e.failRun(err)
	}
	e.discovered = len(fragments)
	e.logger.Info("Fragments discovered", slog.Int("count", len(fragments)))

	// Stage 2: parse on the worker pool.
	e.phase(PhaseParse)
	parsed, err := e.parseFragments(fragments)
	if err != nil {
		return e.failRun(err)
	}

	// Stage 3: resolve references. The pool is only ever scanned when at
	// least one reference needs it.
	refs := mergeReferences(parsed)
	e.refCount = len(refs)
	resolved := map[string]Attachment{}
	if len(refs) == 0 {
		e.poolSkipped = true
		if !e.opts.CacheEnabled {
			e.cacheStatus = CacheStatusDisabled
		}
		e.logger.Info("No attachment references found, pool scan skipped")
	} else {
		e.phase(PhaseScan)
		requested := make(map[string]struct{}, len(refs))
		for _, ref := range refs {
			requested[ref.Token] = struct{}{}
		}
		index, status, err := e.scanner.BuildIndex(e.ctx, requested)
		e.cacheStatus = status
		if err != nil {
			return e.failRun(err)
		}
		e.poolIndexed = len(index)
		e.poolScanned = status != CacheStatusHit

		e.phase(PhaseResolve)
		var unresolved []UnresolvedInfo
		resolved, e.breakdown, unresolved = e.resolver.Resolve(refs, index)
		e.agg.setUnresolved(unresolved)
		e.logger.Info("References resolved",
			slog.Int("total", len(refs)),
			slog.Int("unresolved", len(unresolved)))
	}

	// Stage 4: append messages and copy attachments.
	e.phase(PhaseAssemble)
	e.assemble(parsed, resolved)
	e.stats = e.store.AggregateStats()
	if err := e.ctx.Err(); err != nil {
		return e.failRun(err)
	}

	// Stage 5: render documents and the index.
	e.phase(PhaseRender)
	infos, renderErrs, purged, err := e.finalizer.Finalize(e.ctx, e.store)
	e.infos = infos
	e.purged = purged
	for _, info := range renderErrs {
		e.agg.addError(info)
	}
	if err != nil {
		return e.failRun(err)
	}

	if e.agg.hasFatal() {
		return Report{}, ErrProcessingStopped
	}
	return Report{}, nil
}

func (e *Engine) failRun(err error) (Report, error) {
	e.logger.Error("Run failed", slog.String("error", err.Error()))
	e.agg.addError(ErrorInfo{Error: err.Error(), IsFatal: true})
	return Report{}, err
}

func (e *Engine) phase(p Phase) {
	e.logger.Debug("Entering phase", slog.String("phase", string(p)))
	if err := e.hooks.OnPhase(p); err != nil {
		e.logger.Warn("OnPhase hook failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) updateStatus(path string, status Status, message string, duration time.Duration) {
	if err := e.hooks.OnFragmentStatusUpdate(path, status, message, duration); err != nil {
		e.logger.Debug("OnFragmentStatusUpdate hook failed", slog.String("error", err.Error()))
	}
}

// --- Stage 2: Parse ---

// parseFragments fans the fragment paths out to the worker pool and
// collects results on a single goroutine. The returned error is non-nil
// only for run-level failures (cancellation or stop-mode promotion).
func (e *Engine) parseFragments(paths []string) ([]*FragmentResult, error) {
	workerChan := make(chan string, e.concurrency)
	resultsChan := make(chan interface{}, e.concurrency*2)

	var workerWg sync.WaitGroup
	for i := 0; i < e.concurrency; i++ {
		workerWg.Add(1)
		go e.parseWorker(i, &workerWg, workerChan, resultsChan)
	}

	parsed := make([]*FragmentResult, 0, len(paths))
	var stopErr error
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		for res := range resultsChan {
			switch v := res.(type) {
			case *FragmentResult:
				parsed = append(parsed, v)
				e.agg.addFragment(FragmentInfo{
					Path:           v.FragmentID,
					Kind:           v.Kind,
					Conversation:   v.ConversationID,
					MessageCount:   len(v.Messages),
					ReferenceCount: len(v.References),
					DurationMs:     v.Duration.Milliseconds(),
				})
			case SkippedInfo:
				e.agg.addSkipped(v)
			case ErrorInfo:
				e.agg.addError(v)
				if v.IsFatal && stopErr == nil {
					stopErr = fmt.Errorf("%w: %s", ErrProcessingStopped, v.Error)
				}
			}
		}
	}()

feed:
	for _, path := range paths {
		select {
		case workerChan <- path:
		case <-e.ctx.Done():
			break feed
		}
	}
	close(workerChan)
	workerWg.Wait()
	close(resultsChan)
	collectorWg.Wait()

	if stopErr != nil {
		return parsed, stopErr
	}
	if err := e.ctx.Err(); err != nil {
		return parsed, err
	}
	return parsed, nil
}

// parseWorker processes fragments from in until it closes. Panics are
// contained per fragment, so one malformed file cannot take down the run.
func (e *Engine) parseWorker(id int, wg *sync.WaitGroup, in <-chan string, out chan<- interface{}) {
	defer wg.Done()
	logger := e.logger.With(slog.Int("worker", id))

	for relPath := range in {
		if e.ctx.Err() != nil {
			continue
		}
		e.parseOne(logger, relPath, out)
	}
}

func (e *Engine) parseOne(logger *slog.Logger, relPath string, out chan<- interface{}) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while processing fragment",
				slog.String("fragment", relPath),
				slog.Any("panic", r))
			e.handleFragmentError(relPath, fmt.Errorf("%w: panic: %v", ErrFragmentParse, r), SkipReasonParseError, time.Since(start), out)
		}
	}()

	e.updateStatus(relPath, StatusProcessing, "", 0)
	res, err := e.processor.ProcessFragment(e.ctx, relPath)
	duration := time.Since(start)

	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return
	case err != nil:
		reason := SkipReasonParseError
		if errors.Is(err, ErrFragmentRead) {
			reason = SkipReasonReadError
		}
		e.handleFragmentError(relPath, err, reason, duration, out)
	case len(res.Messages) == 0:
		logger.Debug("Fragment has no content", slog.String("fragment", relPath))
		e.sendResult(out, SkippedInfo{Path: relPath, Reason: SkipReasonEmptyFragment})
		e.updateStatus(relPath, StatusSkipped, SkipReasonEmptyFragment, duration)
	default:
		res.Duration = duration
		e.sendResult(out, res)
		e.updateStatus(relPath, StatusSuccess, "", duration)
	}
}

// handleFragmentError applies the error mode: continue records a skip,
// stop promotes the error to fatal and cancels the run.
func (e *Engine) handleFragmentError(relPath string, err error, reason string, duration time.Duration, out chan<- interface{}) {
	if e.opts.OnErrorMode == OnErrorStop {
		e.sendResult(out, ErrorInfo{Path: relPath, Error: err.Error(), IsFatal: true})
		e.updateStatus(relPath, StatusFailed, err.Error(), duration)
		e.cancel()
		return
	}
	e.logger.Warn("Skipping fragment",
		slog.String("fragment", relPath),
		slog.String("reason", reason),
		slog.String("error", err.Error()))
	e.sendResult(out, SkippedInfo{Path: relPath, Reason: reason, Detail: err.Error()})
	e.updateStatus(relPath, StatusSkipped, err.Error(), duration)
}

// sendResult delivers to the collector unless the run is being torn down.
func (e *Engine) sendResult(out chan<- interface{}, res interface{}) {
	select {
	case out <- res:
	case <-e.ctx.Done():
	}
}

// --- Stage 3: Reference Merge ---

// mergeReferences combines per-fragment tokens into unique references with
// sorted origins.
func mergeReferences(parsed []*FragmentResult) []Reference {
	byToken := make(map[string]*Reference)
	for _, res := range parsed {
		for _, token := range res.References {
			ref, ok := byToken[token]
			if !ok {
				ref = &Reference{Token: token}
				byToken[token] = ref
			}
			ref.Origins = append(ref.Origins, res.FragmentID)
		}
	}

	out := make([]Reference, 0, len(byToken))
	for _, ref := range byToken {
		sort.Strings(ref.Origins)
		ref.Origins = dedupeSorted(ref.Origins)
		out = append(out, *ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

func dedupeSorted(in []string) []string {
	out := in[:0]
	for i, s := range in {
		if i == 0 || s != in[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// --- Stage 4: Assemble ---

// assemble appends every parsed message to the store from concurrent
// producers, attachments attached, then copies resolved attachment files
// into the output tree.
func (e *Engine) assemble(parsed []*FragmentResult, resolved map[string]Attachment) {
	fragChan := make(chan *FragmentResult, e.concurrency)
	var wg sync.WaitGroup
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for res := range fragChan {
				if e.ctx.Err() != nil {
					continue
				}
				for _, msg := range res.Messages {
					e.store.Append(res.ConversationID, msg.Timestamp, msg.Sender, msg.Self, msg.Text,
						e.messageAttachments(msg.Refs, resolved), msg.Kind)
				}
			}
		}()
	}
	for _, res := range parsed {
		fragChan <- res
	}
	close(fragChan)
	wg.Wait()

	e.copyAttachments(resolved)
}

func (e *Engine) messageAttachments(refs []string, resolved map[string]Attachment) []Attachment {
	if len(refs) == 0 {
		return nil
	}
	atts := make([]Attachment, 0, len(refs))
	for _, token := range refs {
		if att, ok := resolved[token]; ok {
			atts = append(atts, att)
		} else {
			atts = append(atts, Attachment{Token: token})
		}
	}
	return atts
}

// copyAttachments copies each claimed pool file into the attachments
// subdirectory. Failures are recorded per file and never abort the run.
func (e *Engine) copyAttachments(resolved map[string]Attachment) {
	if !e.opts.CopyAttachments {
		return
	}
	files := make([]Attachment, 0, len(resolved))
	for _, att := range resolved {
		if att.Resolved {
			files = append(files, att)
		}
	}
	if len(files) == 0 {
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })

	attachmentsDir := filepath.Join(e.opts.OutputPath, AttachmentsDirName)
	if err := os.MkdirAll(attachmentsDir, 0o755); err != nil {
		e.logger.Error("Cannot create attachments directory, copies skipped",
			slog.String("path", attachmentsDir),
			slog.String("error", err.Error()))
		e.agg.addError(ErrorInfo{
			Path:    AttachmentsDirName,
			Error:   fmt.Errorf("%w: %s: %w", ErrMkdirFailed, attachmentsDir, err).Error(),
			IsFatal: false,
		})
		return
	}

	copyChan := make(chan Attachment, e.concurrency)
	var wg sync.WaitGroup
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for att := range copyChan {
				if e.ctx.Err() != nil {
					continue
				}
				dst := filepath.Join(attachmentsDir, att.Filename)
				if err := util.CopyFile(att.SourcePath, dst); err != nil {
					e.logger.Warn("Attachment copy failed",
						slog.String("file", att.Filename),
						slog.String("error", err.Error()))
					e.agg.addError(ErrorInfo{
						Path:    att.Filename,
						Error:   fmt.Errorf("%w: %s: %w", ErrAttachmentCopy, att.Filename, err).Error(),
						IsFatal: false,
					})
					e.copyFailures.Add(1)
					continue
				}
				e.copied.Add(1)
			}
		}()
	}
	for _, att := range files {
		copyChan <- att
	}
	close(copyChan)
	wg.Wait()
}

// --- Report Assembly ---

func (e *Engine) buildReport(runErr error) Report {
	fragments, skipped, errs, unresolved, warnings, fatal := e.agg.snapshot()

	renderFailures := 0
	for _, info := range e.infos {
		if info.RenderStatus == RenderStatusPlaceholder {
			renderFailures++
		}
	}

	summary := ReportSummary{
		RunID:                  e.runID,
		SchemaVersion:          ReportSchemaVersion,
		InputPath:              e.opts.InputPath,
		OutputPath:             e.opts.OutputPath,
		ConfigFilePath:         e.opts.ConfigFilePath,
		ProfileUsed:            e.opts.ProfileName,
		FragmentsDiscovered:    e.discovered,
		FragmentsParsed:        len(fragments),
		FragmentsSkipped:       len(skipped),
		MessageCount:           e.stats.Messages,
		ConversationCount:      e.stats.Conversations,
		ConversationsWritten:   len(e.infos),
		EmptyConversations:     e.purged,
		RenderFailures:         renderFailures,
		ReferenceCount:         e.refCount,
		ResolvedCount:          e.refCount - len(unresolved),
		UnresolvedCount:        len(unresolved),
		AttachmentsCopied:      int(e.copied.Load()),
		AttachmentCopyFailures: int(e.copyFailures.Load()),
		PoolFilesIndexed:       e.poolIndexed,
		PoolScanSkipped:        e.poolSkipped,
		CacheStatus:            e.cacheStatus,
		WarningCount:           warnings,
		ErrorCount:             len(errs),
		FatalErrorOccurred:     fatal || runErr != nil,
		DurationSeconds:        time.Since(e.startTime).Seconds(),
		Concurrency:            e.concurrency,
		CacheEnabled:           e.opts.CacheEnabled,
		Timestamp:              time.Now(),
	}
	if len(e.breakdown) > 0 {
		summary.ResolutionBreakdown = e.breakdown
	}

	infos := e.infos
	if infos == nil {
		infos = []ConversationInfo{}
	}
	if fragments == nil {
		fragments = []FragmentInfo{}
	}
	if skipped == nil {
		skipped = []SkippedInfo{}
	}
	if errs == nil {
		errs = []ErrorInfo{}
	}
	if unresolved == nil {
		unresolved = []UnresolvedInfo{}
	}
	return Report{
		Summary:          summary,
		Conversations:    infos,
		Fragments:        fragments,
		SkippedFragments: skipped,
		Unresolved:       unresolved,
		Errors:           errs,
	}
}
