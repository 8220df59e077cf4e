package weaver

import (
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/voiceweave/voice-weaver/pkg/weaver/fragment"
	"github.com/voiceweave/voice-weaver/pkg/weaver/mediatype"
)

// candidatePool tracks which pool files are still claimable during one
// resolution pass. Names are kept sorted ascending so every "first match"
// decision is reproducible.
type candidatePool struct {
	index map[string]string
	names []string
	used  map[string]bool
}

func newCandidatePool(index map[string]string) *candidatePool {
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	return &candidatePool{
		index: index,
		names: names,
		used:  make(map[string]bool, len(index)),
	}
}

// firstMatch returns the lexically smallest unused name satisfying match.
func (p *candidatePool) firstMatch(match func(name string) bool) (string, bool) {
	for _, name := range p.names {
		if p.used[name] {
			continue
		}
		if match(name) {
			return name, true
		}
	}
	return "", false
}

// matchFunc attempts to find an unused pool file for ref. Implementations
// must not mutate the pool; claiming is the resolver's job.
type matchFunc func(ref Reference, pool *candidatePool) (string, bool)

type strategy struct {
	name  string
	match matchFunc
}

// ReferenceResolver maps reference tokens to pool files. Matching runs
// strategies strictly in order, from cheapest to fuzziest, and each pool
// file satisfies at most one reference. References are processed in
// ascending token order, so results do not depend on discovery order or
// scheduling.
type ReferenceResolver struct {
	logger     *slog.Logger
	mediaTyper mediatype.Detector
	strategies []strategy
}

// NewReferenceResolver creates a resolver that types matched files with
// typer.
func NewReferenceResolver(handler slog.Handler, typer mediatype.Detector) *ReferenceResolver {
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	if typer == nil {
		typer = mediatype.NewExtensionDetector(nil)
	}
	return &ReferenceResolver{
		logger:     slog.New(handler).With(slog.String("component", "resolver")),
		mediaTyper: typer,
		strategies: []strategy{
			{StrategyExact, matchExact},
			{StrategyOriginPrefix, matchOriginPrefix},
			{StrategyTokenParts, matchTokenParts},
			{StrategyContainment, matchContainment},
		},
	}
}

// Resolve maps every reference to an Attachment. Unresolvable tokens get an
// unresolved Attachment rather than being dropped, so the owning messages
// still render. The breakdown counts matches per strategy name.
func (r *ReferenceResolver) Resolve(refs []Reference, index map[string]string) (map[string]Attachment, map[string]int, []UnresolvedInfo) {
	pool := newCandidatePool(index)

	ordered := make([]Reference, len(refs))
	copy(ordered, refs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Token < ordered[j].Token })

	resolved := make(map[string]Attachment, len(ordered))
	breakdown := make(map[string]int)
	var unresolved []UnresolvedInfo

	for _, ref := range ordered {
		var matchedName, matchedBy string
		for _, st := range r.strategies {
			if name, ok := st.match(ref, pool); ok {
				matchedName, matchedBy = name, st.name
				break
			}
		}
		if matchedName == "" {
			resolved[ref.Token] = Attachment{Token: ref.Token}
			unresolved = append(unresolved, UnresolvedInfo{
				Token:   ref.Token,
				Origins: append([]string(nil), ref.Origins...),
			})
			r.logger.Debug("Reference unresolved", slog.String("token", ref.Token))
			continue
		}

		pool.used[matchedName] = true
		info := r.mediaTyper.Detect(matchedName)
		resolved[ref.Token] = Attachment{
			Token:      ref.Token,
			Filename:   matchedName,
			SourcePath: pool.index[matchedName],
			MediaType:  info.MIME,
			Kind:       info.Kind,
			Resolved:   true,
		}
		breakdown[matchedBy]++
		r.logger.Debug("Reference resolved",
			slog.String("token", ref.Token),
			slog.String("file", matchedName),
			slog.String("strategy", matchedBy))
	}
	return resolved, breakdown, unresolved
}

// matchExact requires the token to equal an unused pool file name.
func matchExact(ref Reference, pool *candidatePool) (string, bool) {
	if _, ok := pool.index[ref.Token]; ok && !pool.used[ref.Token] {
		return ref.Token, true
	}
	return "", false
}

// matchOriginPrefix looks for pool files that share the origin fragment's
// base name as a prefix, the layout archives use for files exported next to
// the fragment that owns them. Origins are tried in ascending order.
func matchOriginPrefix(ref Reference, pool *candidatePool) (string, bool) {
	for _, origin := range ref.Origins {
		base := strings.TrimSuffix(filepath.Base(origin), filepath.Ext(origin))
		if base == "" {
			continue
		}
		if name, ok := pool.firstMatch(func(name string) bool {
			return strings.HasPrefix(name, base)
		}); ok {
			return name, true
		}
	}
	return "", false
}

// matchTokenParts decomposes structured tokens on the archive field
// separator and looks for an unused file containing both the timestamp and
// the kind token. Tolerates exports that renamed files but kept both
// markers.
func matchTokenParts(ref Reference, pool *candidatePool) (string, bool) {
	parts := strings.Split(ref.Token, fragment.FieldSeparator)
	if len(parts) < 3 {
		return "", false
	}
	kind := parts[len(parts)-2]
	ts := parts[len(parts)-1]
	ts = strings.TrimSuffix(ts, filepath.Ext(ts))
	if kind == "" || ts == "" {
		return "", false
	}
	return pool.firstMatch(func(name string) bool {
		return strings.Contains(name, ts) && strings.Contains(name, kind)
	})
}

// matchContainment is the last heuristic: any unused file containing the
// token with its extension stripped.
func matchContainment(ref Reference, pool *candidatePool) (string, bool) {
	stripped := strings.TrimSuffix(ref.Token, filepath.Ext(ref.Token))
	if stripped == "" {
		return "", false
	}
	return pool.firstMatch(func(name string) bool {
		return strings.Contains(name, stripped)
	})
}
