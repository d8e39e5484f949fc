package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/AyushPandey510/Phis-Shield/internal/application/dto"
	"github.com/AyushPandey510/Phis-Shield/internal/application/usecase"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/event"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/port"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/service"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/intel"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/policy"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/tlsinspect"
	"github.com/AyushPandey510/Phis-Shield/pkg/events"
	"github.com/AyushPandey510/Phis-Shield/pkg/observability"
)

// --- Mock implementations ---

type mockSignalSource struct {
	inspectFunc func(ctx context.Context, target valueobject.Target) valueobject.SignalResult
	name        string
	calls       atomic.Int32
}

func (m *mockSignalSource) Name() string { return m.name }

func (m *mockSignalSource) Inspect(ctx context.Context, target valueobject.Target) valueobject.SignalResult {
	m.calls.Add(1)
	if m.inspectFunc != nil {
		return m.inspectFunc(ctx, target)
	}
	return valueobject.NewSignalResult(m.name, 0, 0.5, nil)
}

type mockModelClient struct {
	predictFunc func(ctx context.Context, features []float64) (float64, error)
}

func (m *mockModelClient) Predict(ctx context.Context, features []float64) (float64, error) {
	if m.predictFunc != nil {
		return m.predictFunc(ctx, features)
	}
	return 0, nil
}

type mockCache struct {
	entries map[string]port.CacheEntry
	expired map[string]bool
	getErr  error
	putErr  error
	mu      sync.Mutex
}

func newMockCache() *mockCache {
	return &mockCache{
		entries: make(map[string]port.CacheEntry),
		expired: make(map[string]bool),
	}
}

func (m *mockCache) Get(_ context.Context, key string) (port.CacheEntry, bool, error) {
	if m.getErr != nil {
		return port.CacheEntry{}, false, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok || m.expired[key] {
		return port.CacheEntry{}, false, nil
	}
	return entry, true, nil
}

func (m *mockCache) GetStale(_ context.Context, key string) (port.CacheEntry, bool, error) {
	if m.getErr != nil {
		return port.CacheEntry{}, false, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	return entry, ok, nil
}

func (m *mockCache) Put(_ context.Context, key string, value []byte, class port.CacheClass) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = port.CacheEntry{Value: value, Class: class, InsertedAt: time.Now()}
	return nil
}

func (m *mockCache) drop(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *mockCache) expire(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired[key] = true
}

func (m *mockCache) classOf(key string) (port.CacheClass, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	return entry.Class, ok
}

type mockEventPublisher struct {
	publishFunc func(ctx context.Context, evts ...events.DomainEvent) error
	published   []events.DomainEvent
	mu          sync.Mutex
}

func (m *mockEventPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, evts...)
	return nil
}

func (m *mockEventPublisher) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.published))
	for _, evt := range m.published {
		types = append(types, evt.EventType())
	}
	return types
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics(t *testing.T) *observability.EngineMetrics {
	t.Helper()
	metrics, err := observability.NewEngineMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return metrics
}

func newAssessTarget(t *testing.T, cache *mockCache, publisher *mockEventPublisher, model port.ModelClient, signals ...port.SignalSource) *usecase.AssessTarget {
	t.Helper()
	snapshots, err := policy.NewStaticStore(policy.Default(), testLogger())
	require.NoError(t, err)
	classifier := service.NewClassifierAdapter(service.NewFeatureExtractor(), model)
	return usecase.NewAssessTarget(snapshots, classifier, signals, cache, publisher, testMetrics(t), testLogger())
}

func confidentModel(p float64) *mockModelClient {
	return &mockModelClient{predictFunc: func(context.Context, []float64) (float64, error) {
		return p, nil
	}}
}

func unavailableSignal(name string) *mockSignalSource {
	return &mockSignalSource{name: name, inspectFunc: func(context.Context, valueobject.Target) valueobject.SignalResult {
		return valueobject.UnavailableResult(name, name+": upstream unreachable")
	}}
}

func urlRequest(raw string) dto.AssessTargetRequest {
	return dto.AssessTargetRequest{Kind: "URL", URL: raw}
}

func digestOf(t *testing.T, req dto.AssessTargetRequest) string {
	t.Helper()
	target, err := req.ToTarget()
	require.NoError(t, err)
	return target.Digest()
}

// --- Tests ---

func TestAssessTarget_Execute(t *testing.T) {
	t.Run("completes from heuristics alone when every network signal is down", func(t *testing.T) {
		cache := newMockCache()
		publisher := &mockEventPublisher{}
		uc := newAssessTarget(t, cache, publisher, confidentModel(1.0),
			unavailableSignal("ssl"), unavailableSignal("redirects"), unavailableSignal("intel"))

		resp, err := uc.Execute(context.Background(), urlRequest("https://example.com/welcome"))

		require.NoError(t, err)
		assert.Equal(t, dto.StatusCompleted, resp.Status)
		assert.False(t, resp.Stale)
		// Clean heuristics put consensus at 1.0 for an UNKNOWN domain, so
		// the confident classifier runs at weight 0.10: round(70*0.10) = 7.
		assert.InDelta(t, 0.10, resp.ClassifierWeight, 1e-9)
		assert.Equal(t, 7, resp.OverallScore)
		assert.Equal(t, "SAFE", resp.Tier)
		// heuristics + three degraded network signals + the classifier
		assert.Len(t, resp.Signals, 5)
	})

	t.Run("uncorroborated classifier runs at full weight and can reach danger", func(t *testing.T) {
		cache := newMockCache()
		publisher := &mockEventPublisher{}
		uc := newAssessTarget(t, cache, publisher, confidentModel(1.0),
			unavailableSignal("ssl"), unavailableSignal("redirects"))

		// .xyz TLD (+20) and the "login" keyword (+15) give heuristics 35,
		// a finding, so external consensus is 0.0 and the weight staircase
		// bottoms out at 0.50: 35 + round(70*0.50) = 70, the danger line.
		resp, err := uc.Execute(context.Background(), urlRequest("https://secure-login.example.xyz/verify-account"))

		require.NoError(t, err)
		assert.Equal(t, dto.StatusCompleted, resp.Status)
		assert.InDelta(t, 0.50, resp.ClassifierWeight, 1e-9)
		assert.Equal(t, 70, resp.OverallScore)
		assert.Equal(t, "DANGER", resp.Tier)
		assert.Equal(t,
			[]string{event.EventTypeAssessmentCompleted, event.EventTypeDangerDetected},
			publisher.eventTypes())
	})

	t.Run("allow-listed domain pins the classifier to the minimum weight", func(t *testing.T) {
		cache := newMockCache()
		publisher := &mockEventPublisher{}
		uc := newAssessTarget(t, cache, publisher, confidentModel(1.0))

		resp, err := uc.Execute(context.Background(), urlRequest("https://github.com/torvalds/linux"))

		require.NoError(t, err)
		assert.Equal(t, "KNOWN_SAFE", resp.DomainTrust)
		assert.InDelta(t, 0.05, resp.ClassifierWeight, 1e-9)
		assert.Equal(t, 4, resp.OverallScore)
		assert.Equal(t, "SAFE", resp.Tier)
	})

	t.Run("replays a fresh cached assessment without re-running signals", func(t *testing.T) {
		cache := newMockCache()
		publisher := &mockEventPublisher{}
		redirects := &mockSignalSource{name: "redirects"}
		uc := newAssessTarget(t, cache, publisher, confidentModel(0), redirects)

		req := urlRequest("https://example.com/welcome")
		first, err := uc.Execute(context.Background(), req)
		require.NoError(t, err)

		second, err := uc.Execute(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, dto.StatusCompleted, second.Status)
		assert.Equal(t, int32(1), redirects.calls.Load())

		class, ok := cache.classOf(digestOf(t, req))
		require.True(t, ok)
		assert.Equal(t, port.CacheShort, class)
	})

	t.Run("ssl results are memoized independently of the assessment cache", func(t *testing.T) {
		cache := newMockCache()
		publisher := &mockEventPublisher{}
		ssl := &mockSignalSource{name: tlsinspect.SignalSSL}
		redirects := &mockSignalSource{name: "redirects"}
		uc := newAssessTarget(t, cache, publisher, confidentModel(0), ssl, redirects)

		req := urlRequest("https://example.com/welcome")
		_, err := uc.Execute(context.Background(), req)
		require.NoError(t, err)

		digest := digestOf(t, req)
		class, ok := cache.classOf(digest + "/" + tlsinspect.SignalSSL)
		require.True(t, ok)
		assert.Equal(t, port.CacheLong, class)

		// Evicting the assessment forces a recompute; the certificate
		// result must come from the long-TTL entry, not a new dial.
		cache.drop(digest)
		_, err = uc.Execute(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, int32(1), ssl.calls.Load())
		assert.Equal(t, int32(2), redirects.calls.Load())
	})

	t.Run("degraded signal results are not memoized", func(t *testing.T) {
		cache := newMockCache()
		publisher := &mockEventPublisher{}
		ssl := unavailableSignal(tlsinspect.SignalSSL)
		uc := newAssessTarget(t, cache, publisher, confidentModel(0), ssl)

		req := urlRequest("https://example.com/welcome")
		_, err := uc.Execute(context.Background(), req)
		require.NoError(t, err)

		cache.drop(digestOf(t, req))
		_, err = uc.Execute(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, int32(2), ssl.calls.Load())
	})

	t.Run("throttled intel demotes the cache entry to the snapshot class", func(t *testing.T) {
		cache := newMockCache()
		publisher := &mockEventPublisher{}
		throttled := &mockSignalSource{name: "intel", inspectFunc: func(context.Context, valueobject.Target) valueobject.SignalResult {
			return valueobject.UnavailableResult("intel", intel.ThrottledReason)
		}}
		uc := newAssessTarget(t, cache, publisher, confidentModel(0), throttled)

		req := urlRequest("https://example.com/welcome")
		resp, err := uc.Execute(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, dto.StatusCompleted, resp.Status)
		class, ok := cache.classOf(digestOf(t, req))
		require.True(t, ok)
		assert.Equal(t, port.CacheSnapshot, class)
	})

	t.Run("malformed target yields an explicit unavailable response", func(t *testing.T) {
		cache := newMockCache()
		publisher := &mockEventPublisher{}
		uc := newAssessTarget(t, cache, publisher, &mockModelClient{},
			unavailableSignal("ssl"), unavailableSignal("intel"))

		resp, err := uc.Execute(context.Background(), urlRequest("not a url"))

		require.NoError(t, err)
		assert.Equal(t, dto.StatusUnavailable, resp.Status)
		assert.Equal(t, "all signals unavailable", resp.FailureReason)
		assert.Empty(t, resp.Tier)
		assert.NotEmpty(t, resp.Evidence)
		assert.Empty(t, publisher.eventTypes())
	})

	t.Run("total failure serves an expired cached assessment labeled stale", func(t *testing.T) {
		cache := newMockCache()
		publisher := &mockEventPublisher{}
		uc := newAssessTarget(t, cache, publisher, &mockModelClient{},
			unavailableSignal("ssl"))

		req := urlRequest("not a url")
		digest := digestOf(t, req)
		previous := dto.AssessmentResponse{
			ID:           uuid.New(),
			Status:       dto.StatusCompleted,
			TargetDigest: digest,
			OverallScore: 55,
			Tier:         "CAUTION",
		}
		data, err := json.Marshal(previous)
		require.NoError(t, err)
		require.NoError(t, cache.Put(context.Background(), digest, data, port.CacheShort))
		cache.expire(digest)

		resp, err := uc.Execute(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, dto.StatusStale, resp.Status)
		assert.True(t, resp.Stale)
		assert.Equal(t, previous.ID, resp.ID)
		assert.Equal(t, 55, resp.OverallScore)
	})

	t.Run("publish failure does not fail the assessment", func(t *testing.T) {
		cache := newMockCache()
		publisher := &mockEventPublisher{publishFunc: func(context.Context, ...events.DomainEvent) error {
			return errors.New("broker unreachable")
		}}
		uc := newAssessTarget(t, cache, publisher, confidentModel(0))

		resp, err := uc.Execute(context.Background(), urlRequest("https://example.com/welcome"))

		require.NoError(t, err)
		assert.Equal(t, dto.StatusCompleted, resp.Status)
	})

	t.Run("rejects an invalid request", func(t *testing.T) {
		uc := newAssessTarget(t, newMockCache(), &mockEventPublisher{}, &mockModelClient{})

		_, err := uc.Execute(context.Background(), dto.AssessTargetRequest{Kind: "DNS", URL: "https://example.com"})
		assert.ErrorIs(t, err, usecase.ErrInvalidTarget)

		_, err = uc.Execute(context.Background(), dto.AssessTargetRequest{Kind: "URL"})
		assert.ErrorIs(t, err, usecase.ErrInvalidTarget)

		_, err = uc.Execute(context.Background(), dto.AssessTargetRequest{Kind: "EMAIL_TEXT"})
		assert.ErrorIs(t, err, usecase.ErrInvalidTarget)
	})

	t.Run("cancelled context aborts the assessment", func(t *testing.T) {
		uc := newAssessTarget(t, newMockCache(), &mockEventPublisher{}, confidentModel(0))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := uc.Execute(ctx, urlRequest("https://example.com/welcome"))
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("assesses email text through the embedded link", func(t *testing.T) {
		cache := newMockCache()
		publisher := &mockEventPublisher{}
		seen := &mockSignalSource{name: "redirects"}
		uc := newAssessTarget(t, cache, publisher, confidentModel(0), seen)

		req := dto.AssessTargetRequest{
			Kind:    "EMAIL_TEXT",
			Subject: "Your account is suspended",
			Body:    "Act now: confirm your password at https://login-rescue.example.xyz/verify immediately.",
		}
		resp, err := uc.Execute(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, dto.StatusCompleted, resp.Status)
		assert.Equal(t, "EMAIL_TEXT", resp.TargetKind)
		assert.NotEqual(t, "SAFE", resp.Tier)
		assert.Equal(t, int32(1), seen.calls.Load())
	})
}
