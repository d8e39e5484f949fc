package valueobject_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

func TestNewSignalResult_ClampsScoreAndConfidence(t *testing.T) {
	tests := []struct {
		name       string
		score      int
		confidence float64
		wantScore  int
		wantConf   float64
	}{
		{"in range", 55, 0.7, 55, 0.7},
		{"score above 100", 180, 0.5, 100, 0.5},
		{"score below 0", -10, 0.5, 0, 0.5},
		{"confidence above 1", 10, 1.5, 10, 1.0},
		{"confidence below 0", 10, -0.2, 10, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valueobject.NewSignalResult("heuristics", tt.score, tt.confidence, nil)
			assert.Equal(t, tt.wantScore, r.Score)
			assert.InDelta(t, tt.wantConf, r.Confidence, 1e-9)
			assert.True(t, r.Status.IsOk())
		})
	}
}

func TestNewSignalResult_CopiesEvidence(t *testing.T) {
	evidence := []string{"heuristics: suspicious TLD"}
	r := valueobject.NewSignalResult("heuristics", 20, 0.9, evidence)

	evidence[0] = "mutated"
	assert.Equal(t, "heuristics: suspicious TLD", r.Evidence[0])
}

func TestUnavailableResult(t *testing.T) {
	r := valueobject.UnavailableResult("threat_intel", "threat_intel: all upstreams timed out")

	assert.Equal(t, valueobject.StatusUnavailable, r.Status)
	assert.False(t, r.IsOk())
	assert.False(t, r.HasFinding())
	assert.Equal(t, 0, r.Score)
	require.Len(t, r.Evidence, 1)
}

func TestErrorResult(t *testing.T) {
	r := valueobject.ErrorResult("heuristics", "heuristics: target has no parsable host")

	assert.Equal(t, valueobject.StatusError, r.Status)
	assert.False(t, r.HasFinding())
}

func TestSignalResult_HasFinding(t *testing.T) {
	t.Run("zero score without verdict is clean", func(t *testing.T) {
		r := valueobject.NewSignalResult("ssl", 0, 1.0, nil)
		assert.False(t, r.HasFinding())
	})

	t.Run("nonzero score is a finding", func(t *testing.T) {
		r := valueobject.NewSignalResult("ssl", 10, 1.0, []string{"ssl: certificate expires within 30 days"})
		assert.True(t, r.HasFinding())
	})

	t.Run("verdict without score is a finding", func(t *testing.T) {
		r := valueobject.NewSignalResult("threat_intel", 0, 1.0, nil).
			WithVerdict(valueobject.VerdictMalicious, 80)
		assert.True(t, r.HasFinding())
		assert.Equal(t, 80, r.Floor)
	})

	t.Run("unavailable never counts as finding or clean", func(t *testing.T) {
		r := valueobject.UnavailableResult("redirects", "redirects: timeout")
		assert.False(t, r.HasFinding())
	})
}

func TestSignalResult_JSONRoundTrip(t *testing.T) {
	original := valueobject.NewSignalResult("threat_intel", 70, 0.5, []string{
		"threat_intel: flagged by block-list",
	}).WithVerdict(valueobject.VerdictMalicious, 80)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded valueobject.SignalResult
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original, decoded)
	assert.True(t, decoded.Status.IsOk())
	assert.True(t, decoded.Verdict.IsMalicious())
}

func TestSignalStatus_FromString(t *testing.T) {
	tests := []struct {
		input   string
		want    valueobject.SignalStatus
		wantErr bool
	}{
		{"OK", valueobject.StatusOk, false},
		{"UNAVAILABLE", valueobject.StatusUnavailable, false},
		{"ERROR", valueobject.StatusError, false},
		{"bogus", valueobject.SignalStatus{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := valueobject.SignalStatusFromString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}
}
