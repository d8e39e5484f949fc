package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AyushPandey510/Phis-Shield/internal/application/dto"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/model"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/port"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/service"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/intel"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/policy"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/tlsinspect"
	"github.com/AyushPandey510/Phis-Shield/pkg/observability"
)

// SnapshotSource yields the compiled policy revision a request runs under.
// Execute calls Current exactly once, so a concurrent policy reload never
// mixes two revisions into the same assessment.
type SnapshotSource interface {
	Current() *policy.Snapshot
}

// longTTLSignals names the signals whose per-target results are memoized
// under the long cache class. Certificate posture moves on the order of
// days, so repeat assessments should not re-dial port 443.
var longTTLSignals = map[string]bool{
	tlsinspect.SignalSSL: true,
}

// AssessTarget is the use case for running the full assessment pipeline
// against one target: signal extraction, consensus, aggregation, caching
// and event publication.
type AssessTarget struct {
	snapshots  SnapshotSource
	classifier *service.ClassifierAdapter
	signals    []port.SignalSource
	cache      port.AssessmentCache
	publisher  port.EventPublisher
	metrics    *observability.EngineMetrics
	logger     *slog.Logger
}

// NewAssessTarget creates a new AssessTarget use case.
func NewAssessTarget(
	snapshots SnapshotSource,
	classifier *service.ClassifierAdapter,
	signals []port.SignalSource,
	cache port.AssessmentCache,
	publisher port.EventPublisher,
	metrics *observability.EngineMetrics,
	logger *slog.Logger,
) *AssessTarget {
	return &AssessTarget{
		snapshots:  snapshots,
		classifier: classifier,
		signals:    signals,
		cache:      cache,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Execute assesses one target. Degraded signals never fail the request;
// only an invalid target, a cancelled context or an internal invariant
// violation surfaces as an error.
func (uc *AssessTarget) Execute(ctx context.Context, req dto.AssessTargetRequest) (dto.AssessmentResponse, error) {
	start := time.Now()

	// 1. Validate the request and build the target.
	target, err := req.ToTarget()
	if err != nil {
		return dto.AssessmentResponse{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	// 2. Replay a cached assessment when one is still fresh.
	if resp, ok := uc.cachedResponse(ctx, target.Digest()); ok {
		return resp, nil
	}

	// 3. Pin the policy revision for the whole request.
	snap := uc.snapshots.Current()

	// 4. Create the assessment aggregate.
	assessment, err := model.NewRiskAssessment(target)
	if err != nil {
		return dto.AssessmentResponse{}, fmt.Errorf("failed to create assessment: %w", err)
	}

	// 5. Fan out signal extraction and classifier inference.
	if err := assessment.BeginExtraction(); err != nil {
		return dto.AssessmentResponse{}, fmt.Errorf("failed to begin extraction: %w", err)
	}
	results, verdict := uc.extract(ctx, snap, target)
	if ctx.Err() != nil {
		return dto.AssessmentResponse{}, fmt.Errorf("assessment cancelled: %w", ctx.Err())
	}

	// 6. Build the consensus context and derive the classifier weight.
	if err := assessment.BeginConsensus(); err != nil {
		return dto.AssessmentResponse{}, fmt.Errorf("failed to begin consensus: %w", err)
	}
	if usableSignals(results) == 0 && !verdict.IsOk() {
		return uc.degrade(ctx, assessment, results)
	}
	cctx := snap.Consensus.BuildContext(target, results)
	weight := snap.Consensus.ClassifierWeight(cctx)
	contribution := 0
	if verdict.IsOk() {
		contribution = snap.Consensus.ClassifierContribution(verdict.Probability, weight)
	}

	// 7. Aggregate into the final bounded score.
	if err := assessment.BeginAggregation(); err != nil {
		return dto.AssessmentResponse{}, fmt.Errorf("failed to begin aggregation: %w", err)
	}
	output := snap.Aggregator.Aggregate(service.AggregateInput{
		Signals:      results,
		Classifier:   verdict,
		Weight:       weight,
		Contribution: contribution,
	})

	// 8. Complete the aggregate. This records the domain events, including
	// DangerDetected when the tier calls for it.
	signals := make([]valueobject.SignalResult, 0, len(results)+1)
	signals = append(signals, results...)
	signals = append(signals, verdict.AsSignalResult())
	err = assessment.Complete(model.Outcome{
		OverallScore:      output.OverallScore,
		Tier:              output.Tier,
		Signals:           signals,
		Notes:             output.Notes,
		ClassifierWeight:  weight,
		DomainTrust:       cctx.DomainTrust,
		ExternalConsensus: cctx.ExternalConsensus,
	})
	if err != nil {
		return dto.AssessmentResponse{}, fmt.Errorf("failed to complete assessment: %w", err)
	}
	resp := dto.FromModel(assessment)

	// 9. Cache the response for repeat lookups.
	uc.storeResponse(ctx, target.Digest(), resp, cacheClassFor(results))

	// 10. Publish domain events, draining the aggregate. Publishing is
	// advisory; a broker outage must not fail a completed assessment.
	if evts := assessment.ClearEvents(); len(evts) > 0 {
		if err := uc.publisher.Publish(ctx, evts...); err != nil {
			uc.logger.ErrorContext(ctx, "failed to publish assessment events",
				"error", err, "assessment_id", assessment.ID())
		}
	}

	uc.metrics.RecordAssessment(ctx, resp.Tier, time.Since(start))
	return resp, nil
}

// extract runs every signal source and the classifier concurrently, each
// under its own timeout. Failures are folded into the results, so the group
// itself never returns an error; it exists for its derived context.
func (uc *AssessTarget) extract(ctx context.Context, snap *policy.Snapshot, target valueobject.Target) ([]valueobject.SignalResult, service.ClassifierVerdict) {
	sources := make([]port.SignalSource, 0, len(uc.signals)+1)
	sources = append(sources, snap.Heuristics)
	sources = append(sources, uc.signals...)

	results := make([]valueobject.SignalResult, len(sources))
	var verdict service.ClassifierVerdict

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = uc.inspect(gctx, snap, src, target)
			return nil
		})
	}
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, snap.SignalTimeout)
		defer cancel()
		verdict = uc.classifier.Classify(cctx, target)
		return nil
	})
	_ = g.Wait()

	return results, verdict
}

func (uc *AssessTarget) inspect(ctx context.Context, snap *policy.Snapshot, src port.SignalSource, target valueobject.Target) valueobject.SignalResult {
	if longTTLSignals[src.Name()] {
		if result, ok := uc.memoized(ctx, target, src.Name()); ok {
			return result
		}
	}

	sctx, cancel := context.WithTimeout(ctx, snap.SignalTimeout)
	defer cancel()
	result := src.Inspect(sctx, target)
	if !result.IsOk() {
		uc.metrics.RecordSignalFailure(ctx, src.Name())
		uc.logger.DebugContext(ctx, "signal degraded",
			"signal", src.Name(), "status", result.Status.String())
		return result
	}
	if longTTLSignals[src.Name()] {
		uc.memoize(ctx, target, result)
	}
	return result
}

// memoized returns the cached result of a slow structural signal. Only Ok
// results are ever stored, so a degraded signal is always retried.
func (uc *AssessTarget) memoized(ctx context.Context, target valueobject.Target, name string) (valueobject.SignalResult, bool) {
	entry, found, err := uc.cache.Get(ctx, signalKey(target, name))
	if err != nil {
		uc.logger.WarnContext(ctx, "signal cache read failed", "signal", name, "error", err)
		return valueobject.SignalResult{}, false
	}
	if !found {
		return valueobject.SignalResult{}, false
	}
	var result valueobject.SignalResult
	if err := json.Unmarshal(entry.Value, &result); err != nil {
		return valueobject.SignalResult{}, false
	}
	return result, true
}

func (uc *AssessTarget) memoize(ctx context.Context, target valueobject.Target, result valueobject.SignalResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := uc.cache.Put(ctx, signalKey(target, result.SignalName), data, port.CacheLong); err != nil {
		uc.logger.WarnContext(ctx, "signal cache write failed",
			"signal", result.SignalName, "error", err)
	}
}

// cachedResponse replays a fresh cached assessment for a repeat target.
func (uc *AssessTarget) cachedResponse(ctx context.Context, digest string) (dto.AssessmentResponse, bool) {
	entry, found, err := uc.cache.Get(ctx, digest)
	if err != nil {
		uc.logger.WarnContext(ctx, "assessment cache read failed", "error", err)
		return dto.AssessmentResponse{}, false
	}
	if !found {
		return dto.AssessmentResponse{}, false
	}
	var resp dto.AssessmentResponse
	if err := json.Unmarshal(entry.Value, &resp); err != nil {
		uc.logger.WarnContext(ctx, "cached assessment unreadable, recomputing",
			"target_digest", digest, "error", err)
		return dto.AssessmentResponse{}, false
	}
	uc.logger.DebugContext(ctx, "assessment served from cache", "target_digest", digest)
	return resp, true
}

func (uc *AssessTarget) storeResponse(ctx context.Context, digest string, resp dto.AssessmentResponse, class port.CacheClass) {
	data, err := json.Marshal(resp)
	if err != nil {
		uc.logger.WarnContext(ctx, "failed to encode assessment for cache", "error", err)
		return
	}
	if err := uc.cache.Put(ctx, digest, data, class); err != nil {
		uc.logger.WarnContext(ctx, "assessment cache write failed", "error", err)
	}
}

// degrade handles the request when no signal and no classifier produced
// anything usable. A previously cached assessment is served labeled stale;
// without one the response is explicitly unavailable. A zero score is never
// synthesized from an empty pipeline.
func (uc *AssessTarget) degrade(ctx context.Context, assessment *model.RiskAssessment, results []valueobject.SignalResult) (dto.AssessmentResponse, error) {
	if err := assessment.Fail("all signals unavailable"); err != nil {
		return dto.AssessmentResponse{}, fmt.Errorf("failed to record assessment failure: %w", err)
	}
	digest := assessment.Target().Digest()
	uc.logger.WarnContext(ctx, "assessment degraded, all signals unavailable",
		"target_digest", digest)

	entry, found, err := uc.cache.GetStale(ctx, digest)
	if err == nil && found {
		var resp dto.AssessmentResponse
		if err := json.Unmarshal(entry.Value, &resp); err == nil {
			resp.Status = dto.StatusStale
			resp.Stale = true
			return resp, nil
		}
	}
	return dto.UnavailableFromModel(assessment, results), nil
}

// cacheClassFor picks the cache class for a completed assessment. A request
// the intel provider throttled is weaker evidence than normal, so it only
// earns the snapshot TTL and gets recomputed sooner.
func cacheClassFor(results []valueobject.SignalResult) port.CacheClass {
	for _, sig := range results {
		if len(sig.Evidence) > 0 && sig.Evidence[0] == intel.ThrottledReason {
			return port.CacheSnapshot
		}
	}
	return port.CacheShort
}

func usableSignals(results []valueobject.SignalResult) int {
	n := 0
	for _, sig := range results {
		if sig.IsOk() {
			n++
		}
	}
	return n
}
