package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/AyushPandey510/Phis-Shield/internal/application/dto"
	"github.com/AyushPandey510/Phis-Shield/internal/application/usecase"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/model"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/port"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/service"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/policy"
	"github.com/AyushPandey510/Phis-Shield/pkg/events"
	"github.com/AyushPandey510/Phis-Shield/pkg/observability"
)

// --- Mock implementations ---

type mockCache struct {
	mu      sync.Mutex
	entries map[string]port.CacheEntry
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]port.CacheEntry)}
}

func (m *mockCache) Get(_ context.Context, key string) (port.CacheEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	return entry, ok, nil
}

func (m *mockCache) GetStale(ctx context.Context, key string) (port.CacheEntry, bool, error) {
	return m.Get(ctx, key)
}

func (m *mockCache) Put(_ context.Context, key string, value []byte, class port.CacheClass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = port.CacheEntry{Value: value, Class: class, InsertedAt: time.Now()}
	return nil
}

type mockEventPublisher struct{}

func (mockEventPublisher) Publish(_ context.Context, _ ...events.DomainEvent) error {
	return nil
}

type stubSignal struct {
	name string
}

func (s stubSignal) Name() string { return s.name }

func (s stubSignal) Inspect(_ context.Context, _ valueobject.Target) valueobject.SignalResult {
	return valueobject.NewSignalResult(s.name, 0, 0.5, nil)
}

type stubModel struct{}

func (stubModel) Predict(_ context.Context, _ []float64) (float64, error) {
	return 0, nil
}

type mockFeedbackStore struct {
	mu        sync.Mutex
	appendErr error
	records   []*model.FeedbackRecord
}

func (m *mockFeedbackStore) Append(_ context.Context, record *model.FeedbackRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *mockFeedbackStore) Recent(_ context.Context, _ int) ([]*model.FeedbackRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records, nil
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testMux(t *testing.T, feedback *mockFeedbackStore) *http.ServeMux {
	t.Helper()
	cache := newMockCache()
	snapshots, err := policy.NewStaticStore(policy.Default(), testLogger())
	require.NoError(t, err)
	metrics, err := observability.NewEngineMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	classifier := service.NewClassifierAdapter(service.NewFeatureExtractor(), stubModel{})
	signals := []port.SignalSource{stubSignal{name: "redirects"}}

	handler := NewHandler(
		usecase.NewAssessTarget(snapshots, classifier, signals, cache, mockEventPublisher{}, metrics, testLogger()),
		usecase.NewGetAssessment(cache, testLogger()),
		usecase.NewRecordFeedback(feedback, testLogger()),
		testLogger(),
	)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestCreateAssessment(t *testing.T) {
	t.Run("returns a completed assessment", func(t *testing.T) {
		mux := testMux(t, &mockFeedbackStore{})

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/assessments",
			`{"kind":"URL","url":"https://example.com/welcome"}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp dto.AssessmentResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, dto.StatusCompleted, resp.Status)
		assert.Len(t, resp.TargetDigest, 64)
		assert.NotEmpty(t, resp.Tier)
		assert.NotEmpty(t, resp.Signals)
	})

	t.Run("malformed json returns 400", func(t *testing.T) {
		mux := testMux(t, &mockFeedbackStore{})

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/assessments", `{"kind":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid request body")
	})

	t.Run("unknown kind returns 400", func(t *testing.T) {
		mux := testMux(t, &mockFeedbackStore{})

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/assessments",
			`{"kind":"DNS","url":"https://example.com"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid target")
	})

	t.Run("empty email target returns 400", func(t *testing.T) {
		mux := testMux(t, &mockFeedbackStore{})

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/assessments",
			`{"kind":"EMAIL_TEXT"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetAssessmentRoute(t *testing.T) {
	t.Run("round trips through the cache", func(t *testing.T) {
		mux := testMux(t, &mockFeedbackStore{})

		created := doJSON(t, mux, http.MethodPost, "/api/v1/assessments",
			`{"kind":"URL","url":"https://example.com/welcome"}`)
		require.Equal(t, http.StatusOK, created.Code)
		var assessed dto.AssessmentResponse
		require.NoError(t, json.NewDecoder(created.Body).Decode(&assessed))

		rec := doJSON(t, mux, http.MethodGet, "/api/v1/assessments/"+assessed.TargetDigest, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var fetched dto.AssessmentResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&fetched))
		assert.Equal(t, assessed.ID, fetched.ID)
		assert.Equal(t, dto.StatusCompleted, fetched.Status)
	})

	t.Run("short digest returns 400", func(t *testing.T) {
		mux := testMux(t, &mockFeedbackStore{})

		rec := doJSON(t, mux, http.MethodGet, "/api/v1/assessments/abc123", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown digest returns 404", func(t *testing.T) {
		mux := testMux(t, &mockFeedbackStore{})

		rec := doJSON(t, mux, http.MethodGet, "/api/v1/assessments/"+strings.Repeat("ab", 32), "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRecordFeedbackRoute(t *testing.T) {
	t.Run("valid feedback is accepted", func(t *testing.T) {
		store := &mockFeedbackStore{}
		mux := testMux(t, store)

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/feedback",
			`{"target_kind":"URL","target":"https://login-secure.example/verify","original_score":72,"original_tier":"DANGER","user_verdict":"dispute","corrected_label":"legitimate","source":"browser-extension"}`)

		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		var resp dto.RecordFeedbackResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.ID)
		assert.False(t, resp.CreatedAt.IsZero())

		require.Len(t, store.records, 1)
		assert.Equal(t, "dispute", store.records[0].UserVerdict)
		assert.Equal(t, "legitimate", store.records[0].CorrectedLabel)
	})

	t.Run("invalid verdict returns 400", func(t *testing.T) {
		mux := testMux(t, &mockFeedbackStore{})

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/feedback",
			`{"target_kind":"URL","target":"https://example.com","user_verdict":"maybe"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid feedback")
	})

	t.Run("store failure returns 500", func(t *testing.T) {
		store := &mockFeedbackStore{appendErr: errors.New("disk full")}
		mux := testMux(t, store)

		rec := doJSON(t, mux, http.MethodPost, "/api/v1/feedback",
			`{"target_kind":"URL","target":"https://example.com","original_tier":"SAFE","user_verdict":"confirm"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
