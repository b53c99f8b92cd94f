package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/walletscan/internal/checker"
	"github.com/khanhnv2901/walletscan/internal/detection"
	model "github.com/khanhnv2901/walletscan/internal/domain/scan"
	scanerrors "github.com/khanhnv2901/walletscan/internal/shared/errors"
)

// LivenessChecker decides whether a target is worth scanning.
type LivenessChecker interface {
	Check(ctx context.Context, target string) error
}

// DocumentFetcher retrieves the root document and its script references.
type DocumentFetcher interface {
	Fetch(ctx context.Context, target string) (*checker.Document, string, error)
}

// ScriptRetriever fills in external script bodies.
type ScriptRetriever interface {
	Retrieve(ctx context.Context, refs []model.ScriptReference, progress checker.ProgressFunc) []model.ScriptReference
}

// Hooks observe a running scan. All fields are optional.
type Hooks struct {
	// OnScripts is called once the root document has been parsed.
	OnScripts func(inline, external int)
	// OnScript is called from retrieval workers as each external script settles.
	OnScript checker.ProgressFunc
}

// Pipeline runs validation, liveness, fetch, retrieval, scanning and
// classification for one target at a time. It holds no per-scan state and is
// safe for concurrent use.
type Pipeline struct {
	liveness   LivenessChecker
	fetcher    DocumentFetcher
	retriever  ScriptRetriever
	scanner    *detection.Scanner
	classifier *detection.Classifier
	logger     *zap.Logger
}

// NewPipeline creates a pipeline. A nil scanner or classifier selects the defaults.
func NewPipeline(
	liveness LivenessChecker,
	fetcher DocumentFetcher,
	retriever ScriptRetriever,
	scanner *detection.Scanner,
	classifier *detection.Classifier,
	logger *zap.Logger,
) *Pipeline {
	if scanner == nil {
		scanner = detection.NewScanner(nil)
	}
	if classifier == nil {
		classifier = detection.DefaultClassifier()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		liveness:   liveness,
		fetcher:    fetcher,
		retriever:  retriever,
		scanner:    scanner,
		classifier: classifier,
		logger:     logger,
	}
}

// Patterns returns the patterns the pipeline scans for.
func (p *Pipeline) Patterns() []string {
	return p.scanner.Patterns()
}

// Run scans raw. Invalid input returns ErrInvalidTarget and an unreachable
// target returns ErrTargetInactive; in both cases nothing else runs. Failures
// fetching the page or its scripts only add reasons to the result.
func (p *Pipeline) Run(ctx context.Context, raw string) (*model.Result, error) {
	return p.RunWithHooks(ctx, raw, Hooks{})
}

// RunWithHooks is Run with progress callbacks.
func (p *Pipeline) RunWithHooks(ctx context.Context, raw string, hooks Hooks) (result *model.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("scan panicked", zap.String("target", raw), zap.Any("panic", r))
			result = nil
			err = fmt.Errorf("%w: %v", scanerrors.ErrUnexpected, r)
		}
	}()

	start := time.Now()

	target, err := checker.NormalizeTarget(raw)
	if err != nil {
		p.logger.Info("target rejected", zap.String("target", raw), zap.String("stage", "validate"))
		return nil, err
	}
	logger := p.logger.With(zap.String("target", target))

	if err := p.liveness.Check(ctx, target); err != nil {
		logger.Info("target inactive", zap.String("stage", "liveness"), zap.Error(err))
		return nil, err
	}

	result = model.NewResult(target)

	doc, reason, err := p.fetcher.Fetch(ctx, target)
	if err != nil {
		if !errors.Is(err, scanerrors.ErrRootFetch) {
			return nil, fmt.Errorf("%w: %v", scanerrors.ErrUnexpected, err)
		}
		logger.Warn("root document unavailable", zap.String("stage", "fetch"), zap.Error(err))
		result.AddReason(reason)
		result.Assessment = p.classifier.Assess(0)
		return result, nil
	}

	refs := doc.Scripts
	inline, external := countKinds(refs)
	logger.Debug("scripts discovered", zap.String("stage", "fetch"), zap.Int("inline", inline), zap.Int("external", external))
	if hooks.OnScripts != nil {
		hooks.OnScripts(inline, external)
	}

	refs = p.retriever.Retrieve(ctx, refs, hooks.OnScript)

	p.aggregate(result, refs)
	result.Assessment = p.classifier.Assess(len(result.Matches))

	logger.Info("scan complete",
		zap.Int("scripts", len(refs)),
		zap.Int("matches", len(result.Matches)),
		zap.Int("score", result.Score),
		zap.String("tier", string(result.Tier)),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// aggregate reduces the settled references into result: inline matches first,
// then each external script's matches or its fetch failure, in document order.
func (p *Pipeline) aggregate(result *model.Result, refs []model.ScriptReference) {
	var inline, external []model.ScriptReference
	for _, ref := range refs {
		if ref.Kind == model.ScriptInline {
			inline = append(inline, ref)
		} else {
			external = append(external, ref)
		}
	}

	result.AddMatches(p.scanner.Scan(inline))
	for _, ref := range external {
		if !ref.Fetched {
			result.AddReason(model.FetchFailureReason(ref))
			continue
		}
		result.AddMatches(p.scanner.Scan([]model.ScriptReference{ref}))
	}

	result.RecordScripts(refs)
}

func countKinds(refs []model.ScriptReference) (inline, external int) {
	for _, ref := range refs {
		if ref.Kind == model.ScriptInline {
			inline++
		} else {
			external++
		}
	}
	return inline, external
}
