package intel_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/intel"
)

func urlTarget(t *testing.T, raw string) valueobject.Target {
	t.Helper()
	target, err := valueobject.NewURLTarget(raw)
	require.NoError(t, err)
	return target
}

func statsBody(malicious, suspicious, harmless, undetected int) string {
	return fmt.Sprintf(`{"data":{"attributes":{"last_analysis_stats":{
		"malicious":%d,"suspicious":%d,"harmless":%d,"undetected":%d}}}}`,
		malicious, suspicious, harmless, undetected)
}

func newClient(blocklist, reputation *httptest.Server) *intel.Client {
	cfg := intel.Config{}
	if blocklist != nil {
		cfg.BlocklistEndpoint = blocklist.URL
		cfg.BlocklistAPIKey = "bl-key"
	}
	if reputation != nil {
		cfg.ReputationEndpoint = reputation.URL
		cfg.ReputationAPIKey = "rep-key"
	}
	return intel.NewClient(cfg)
}

func TestClientBothServicesClean(t *testing.T) {
	var captured struct {
		Client struct {
			ClientID string `json:"clientId"`
		} `json:"client"`
		ThreatInfo struct {
			ThreatEntries []struct {
				URL string `json:"url"`
			} `json:"threatEntries"`
		} `json:"threatInfo"`
	}
	blocklist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{}`)
	}))
	defer blocklist.Close()

	var repPath, repKey string
	reputation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		repPath = r.URL.Path
		repKey = r.Header.Get("x-apikey")
		fmt.Fprint(w, statsBody(0, 0, 70, 20))
	}))
	defer reputation.Close()

	target := urlTarget(t, "https://example-shop.test/checkout")
	result := newClient(blocklist, reputation).Inspect(context.Background(), target)

	require.True(t, result.IsOk())
	assert.Equal(t, 0, result.Score)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
	assert.True(t, result.Verdict.IsNone())
	assert.Empty(t, result.Evidence)

	require.Len(t, captured.ThreatInfo.ThreatEntries, 1)
	assert.Equal(t, target.ScanURL(), captured.ThreatInfo.ThreatEntries[0].URL)
	assert.Equal(t, "phis-shield", captured.Client.ClientID)

	wantID := base64.RawURLEncoding.EncodeToString([]byte(target.ScanURL()))
	assert.Equal(t, "/urls/"+wantID, repPath)
	assert.Equal(t, "rep-key", repKey)
}

func TestClientBlocklistHit(t *testing.T) {
	blocklist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"matches":[{"threatType":"SOCIAL_ENGINEERING"}]}`)
	}))
	defer blocklist.Close()
	reputation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statsBody(0, 0, 70, 20))
	}))
	defer reputation.Close()

	result := newClient(blocklist, reputation).Inspect(context.Background(),
		urlTarget(t, "https://credential-harvest.test/login"))

	require.True(t, result.IsOk())
	// blocklist_hit 50
	assert.Equal(t, 50, result.Score)
	assert.Equal(t, valueobject.VerdictMalicious, result.Verdict)
	assert.Equal(t, 80, result.Floor)
	assert.Contains(t, result.Evidence, "intel: flagged by blocklist (SOCIAL_ENGINEERING)")
}

func TestClientReputationMalicious(t *testing.T) {
	blocklist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer blocklist.Close()
	reputation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statsBody(5, 0, 60, 10))
	}))
	defer reputation.Close()

	result := newClient(blocklist, reputation).Inspect(context.Background(),
		urlTarget(t, "https://credential-harvest.test/login"))

	require.True(t, result.IsOk())
	// engines_malicious 70
	assert.Equal(t, 70, result.Score)
	assert.Equal(t, valueobject.VerdictMalicious, result.Verdict)
	assert.Equal(t, 75, result.Floor)
	assert.Contains(t, result.Evidence, "intel: 5/75 engines report malicious")
}

func TestClientReputationSuspicious(t *testing.T) {
	blocklist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer blocklist.Close()
	reputation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statsBody(1, 4, 60, 0))
	}))
	defer reputation.Close()

	result := newClient(blocklist, reputation).Inspect(context.Background(),
		urlTarget(t, "https://odd-looking.test/promo"))

	require.True(t, result.IsOk())
	// engines_suspicious 30; one malicious engine stays below the bar
	assert.Equal(t, 30, result.Score)
	assert.Equal(t, valueobject.VerdictSuspicious, result.Verdict)
	assert.Equal(t, 50, result.Floor)
	assert.Contains(t, result.Evidence, "intel: 4/65 engines flag suspicious")
}

func TestClientSingleEngineIsNoise(t *testing.T) {
	blocklist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer blocklist.Close()
	reputation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statsBody(1, 1, 80, 0))
	}))
	defer reputation.Close()

	result := newClient(blocklist, reputation).Inspect(context.Background(),
		urlTarget(t, "https://mostly-fine.test/"))

	require.True(t, result.IsOk())
	assert.Equal(t, 0, result.Score)
	assert.True(t, result.Verdict.IsNone())
	assert.Equal(t, 0, result.Floor)
}

func TestClientUnknownURL(t *testing.T) {
	blocklist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer blocklist.Close()
	reputation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer reputation.Close()

	result := newClient(blocklist, reputation).Inspect(context.Background(),
		urlTarget(t, "https://brand-new-domain.test/"))

	require.True(t, result.IsOk())
	assert.Equal(t, 0, result.Score)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
	assert.Contains(t, result.Evidence, "intel: reputation service has no record of this URL")
}

func TestClientHalfResponded(t *testing.T) {
	blocklist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer blocklist.Close()
	reputation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer reputation.Close()

	result := newClient(blocklist, reputation).Inspect(context.Background(),
		urlTarget(t, "https://example-shop.test/"))

	require.True(t, result.IsOk())
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)
	assert.Contains(t, result.Evidence, "intel: reputation query failed")
}

func TestClientBothFail(t *testing.T) {
	fail := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	blocklist := httptest.NewServer(fail)
	defer blocklist.Close()
	reputation := httptest.NewServer(fail)
	defer reputation.Close()

	result := newClient(blocklist, reputation).Inspect(context.Background(),
		urlTarget(t, "https://example-shop.test/"))

	assert.Equal(t, valueobject.StatusUnavailable, result.Status)
	assert.Contains(t, strings.Join(result.Evidence, "\n"), "status 500")
}

func TestClientThrottled(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	blocklist := httptest.NewServer(ok)
	defer blocklist.Close()
	reputation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statsBody(0, 0, 50, 0))
	}))
	defer reputation.Close()

	client := intel.NewClient(intel.Config{
		BlocklistEndpoint:  blocklist.URL,
		BlocklistAPIKey:    "bl-key",
		ReputationEndpoint: reputation.URL,
		ReputationAPIKey:   "rep-key",
		RatePerMinute:      1,
		Burst:              2,
	})
	target := urlTarget(t, "https://example-shop.test/")

	first := client.Inspect(context.Background(), target)
	require.True(t, first.IsOk())

	second := client.Inspect(context.Background(), target)
	assert.Equal(t, valueobject.StatusUnavailable, second.Status)
	require.NotEmpty(t, second.Evidence)
	assert.Equal(t, intel.ThrottledReason, second.Evidence[0])
}

func TestClientBlocklistNotConfigured(t *testing.T) {
	reputation := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statsBody(0, 0, 70, 0))
	}))
	defer reputation.Close()

	result := newClient(nil, reputation).Inspect(context.Background(),
		urlTarget(t, "https://example-shop.test/"))

	require.True(t, result.IsOk())
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)
	assert.Contains(t, result.Evidence, "intel: blocklist not configured")
}

func TestClientNothingConfigured(t *testing.T) {
	client := intel.NewClient(intel.Config{})
	result := client.Inspect(context.Background(), urlTarget(t, "https://example-shop.test/"))

	assert.Equal(t, valueobject.StatusUnavailable, result.Status)
	assert.Contains(t, result.Evidence, "intel: no reputation services configured")
}

func TestClientEmailWithoutLink(t *testing.T) {
	blocklist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer blocklist.Close()

	target, err := valueobject.NewEmailTextTarget("plain note", "no links anywhere")
	require.NoError(t, err)

	result := newClient(blocklist, nil).Inspect(context.Background(), target)
	assert.Equal(t, valueobject.StatusUnavailable, result.Status)
	assert.Contains(t, result.Evidence, "intel: no URL to query")
}
