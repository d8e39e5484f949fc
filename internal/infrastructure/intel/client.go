package intel

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

// SignalIntel names the external reputation signal.
const SignalIntel = "intel"

// ThrottledReason is the evidence line reported when every outbound query
// was denied by the rate limiter. The assessment use case matches on it to
// cache the result under the snapshot TTL instead of the regular one.
const ThrottledReason = "intel: request throttled"

const (
	defaultBlocklistEndpoint  = "https://safebrowsing.googleapis.com/v4/threatMatches:find"
	defaultReputationEndpoint = "https://www.virustotal.com/api/v3"
)

// Config parameterizes the client. Zero values fall back to defaults.
type Config struct {
	BlocklistEndpoint string
	BlocklistAPIKey   string

	ReputationEndpoint string
	ReputationAPIKey   string

	// Timeout bounds each individual query.
	Timeout time.Duration

	// RatePerMinute and Burst shape the shared token bucket across both
	// query kinds. A denied token makes that query count as unanswered
	// rather than waiting.
	RatePerMinute int
	Burst         int

	// MaliciousEngines and SuspiciousEngines are the engine counts above
	// which the reputation verdict fires. More than N engines must agree;
	// a single engine's opinion is noise.
	MaliciousEngines  int
	SuspiciousEngines int

	BlocklistFloor  int
	MaliciousFloor  int
	SuspiciousFloor int

	// Transport overrides the HTTP transport, used by tests.
	Transport http.RoundTripper
}

// Client folds two logically independent reputation queries, a block-list
// lookup and a multi-engine verdict aggregate, into one signal result. Its
// confidence reports how many of the two services answered: 1.0, 0.5 or,
// when neither did, an Unavailable result.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	cfg     Config
}

// NewClient creates a client.
func NewClient(cfg Config) *Client {
	if cfg.BlocklistEndpoint == "" {
		cfg.BlocklistEndpoint = defaultBlocklistEndpoint
	}
	if cfg.ReputationEndpoint == "" {
		cfg.ReputationEndpoint = defaultReputationEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 30
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.MaliciousEngines <= 0 {
		cfg.MaliciousEngines = 2
	}
	if cfg.SuspiciousEngines <= 0 {
		cfg.SuspiciousEngines = 2
	}
	if cfg.BlocklistFloor <= 0 {
		cfg.BlocklistFloor = 80
	}
	if cfg.MaliciousFloor <= 0 {
		cfg.MaliciousFloor = 75
	}
	if cfg.SuspiciousFloor <= 0 {
		cfg.SuspiciousFloor = 50
	}
	return &Client{
		http: &http.Client{
			Transport: cfg.Transport,
			Timeout:   cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), cfg.Burst),
		cfg:     cfg,
	}
}

// Name implements port.SignalSource.
func (c *Client) Name() string { return SignalIntel }

type blocklistOutcome struct {
	configured bool
	throttled  bool
	err        error
	threatType string
	hit        bool
}

type reputationOutcome struct {
	configured bool
	throttled  bool
	err        error
	stats      analysisStats
	known      bool
}

type analysisStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Undetected int `json:"undetected"`
}

func (s analysisStats) total() int {
	return s.Malicious + s.Suspicious + s.Harmless + s.Undetected
}

// Inspect implements port.SignalSource. Both queries run concurrently and
// their findings are folded in a fixed order so evidence stays deterministic.
func (c *Client) Inspect(ctx context.Context, target valueobject.Target) valueobject.SignalResult {
	scanURL := target.ScanURL()
	if scanURL == "" {
		return valueobject.UnavailableResult(SignalIntel, "intel: no URL to query")
	}
	if c.cfg.BlocklistAPIKey == "" && c.cfg.ReputationAPIKey == "" {
		return valueobject.UnavailableResult(SignalIntel, "intel: no reputation services configured")
	}

	var (
		wg  sync.WaitGroup
		bl  blocklistOutcome
		rep reputationOutcome
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		bl = c.queryBlocklist(ctx, scanURL)
	}()
	go func() {
		defer wg.Done()
		rep = c.queryReputation(ctx, scanURL)
	}()
	wg.Wait()

	return c.fold(bl, rep)
}

func (c *Client) fold(bl blocklistOutcome, rep reputationOutcome) valueobject.SignalResult {
	score := 0
	floor := 0
	verdict := valueobject.VerdictNone
	responded := 0
	var evidence []string

	switch {
	case !bl.configured:
		evidence = append(evidence, "intel: blocklist not configured")
	case bl.throttled, bl.err != nil:
	default:
		responded++
		if bl.hit {
			// Rule: block-list hit +50, the strongest external confirmation
			evidence = append(evidence, fmt.Sprintf("intel: flagged by blocklist (%s)", bl.threatType))
			score += 50
			verdict = valueobject.VerdictMalicious
			floor = max(floor, c.cfg.BlocklistFloor)
		}
	}

	switch {
	case !rep.configured:
		evidence = append(evidence, "intel: reputation service not configured")
	case rep.throttled, rep.err != nil:
	default:
		responded++
		total := rep.stats.total()
		switch {
		case rep.stats.Malicious > c.cfg.MaliciousEngines:
			// Rule: more than N engines report malicious +70
			evidence = append(evidence, fmt.Sprintf("intel: %d/%d engines report malicious", rep.stats.Malicious, total))
			score += 70
			verdict = valueobject.VerdictMalicious
			floor = max(floor, c.cfg.MaliciousFloor)
		case rep.stats.Suspicious > c.cfg.SuspiciousEngines:
			// Rule: more than N engines flag suspicious +30
			evidence = append(evidence, fmt.Sprintf("intel: %d/%d engines flag suspicious", rep.stats.Suspicious, total))
			score += 30
			if verdict.IsNone() {
				verdict = valueobject.VerdictSuspicious
			}
			floor = max(floor, c.cfg.SuspiciousFloor)
		case !rep.known:
			evidence = append(evidence, "intel: reputation service has no record of this URL")
		}
	}

	if responded == 0 {
		if bl.throttled && rep.throttled {
			return valueobject.UnavailableResult(SignalIntel, ThrottledReason)
		}
		return valueobject.UnavailableResult(SignalIntel, c.failureReason(bl, rep))
	}

	if bl.configured && bl.throttled {
		evidence = append(evidence, "intel: blocklist query throttled")
	}
	if bl.configured && bl.err != nil {
		evidence = append(evidence, "intel: blocklist query failed")
	}
	if rep.configured && rep.throttled {
		evidence = append(evidence, "intel: reputation query throttled")
	}
	if rep.configured && rep.err != nil {
		evidence = append(evidence, "intel: reputation query failed")
	}

	confidence := float64(responded) / 2
	result := valueobject.NewSignalResult(SignalIntel, score, confidence, evidence)
	if !verdict.IsNone() {
		result = result.WithVerdict(verdict, floor)
	}
	return result
}

func (c *Client) failureReason(bl blocklistOutcome, rep reputationOutcome) string {
	var parts []string
	if bl.configured {
		if bl.throttled {
			parts = append(parts, "blocklist throttled")
		} else if bl.err != nil {
			parts = append(parts, fmt.Sprintf("blocklist: %v", bl.err))
		}
	}
	if rep.configured {
		if rep.throttled {
			parts = append(parts, "reputation throttled")
		} else if rep.err != nil {
			parts = append(parts, fmt.Sprintf("reputation: %v", rep.err))
		}
	}
	return "intel: " + strings.Join(parts, "; ")
}

type blocklistRequest struct {
	Client     blocklistClient `json:"client"`
	ThreatInfo threatInfo      `json:"threatInfo"`
}

type blocklistClient struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type threatInfo struct {
	ThreatTypes      []string      `json:"threatTypes"`
	PlatformTypes    []string      `json:"platformTypes"`
	ThreatEntryTypes []string      `json:"threatEntryTypes"`
	ThreatEntries    []threatEntry `json:"threatEntries"`
}

type threatEntry struct {
	URL string `json:"url"`
}

type blocklistResponse struct {
	Matches []struct {
		ThreatType string `json:"threatType"`
	} `json:"matches"`
}

func (c *Client) queryBlocklist(ctx context.Context, scanURL string) blocklistOutcome {
	if c.cfg.BlocklistAPIKey == "" {
		return blocklistOutcome{}
	}
	out := blocklistOutcome{configured: true}
	if !c.limiter.Allow() {
		out.throttled = true
		return out
	}

	payload, err := json.Marshal(blocklistRequest{
		Client: blocklistClient{ClientID: "phis-shield", ClientVersion: "1.0"},
		ThreatInfo: threatInfo{
			ThreatTypes:      []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE"},
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []threatEntry{{URL: scanURL}},
		},
	})
	if err != nil {
		out.err = err
		return out
	}

	endpoint := c.cfg.BlocklistEndpoint + "?key=" + c.cfg.BlocklistAPIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		out.err = err
		return out
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		out.err = err
		return out
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		out.err = fmt.Errorf("status %d", resp.StatusCode)
		return out
	}

	var body blocklistResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		out.err = err
		return out
	}
	if len(body.Matches) > 0 {
		out.hit = true
		out.threatType = body.Matches[0].ThreatType
	}
	return out
}

type reputationResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats analysisStats `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

func (c *Client) queryReputation(ctx context.Context, scanURL string) reputationOutcome {
	if c.cfg.ReputationAPIKey == "" {
		return reputationOutcome{}
	}
	out := reputationOutcome{configured: true}
	if !c.limiter.Allow() {
		out.throttled = true
		return out
	}

	// URL identifiers are the unpadded url-safe base64 of the URL itself.
	id := base64.RawURLEncoding.EncodeToString([]byte(scanURL))
	endpoint := strings.TrimSuffix(c.cfg.ReputationEndpoint, "/") + "/urls/" + id

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		out.err = err
		return out
	}
	req.Header.Set("x-apikey", c.cfg.ReputationAPIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		out.err = err
		return out
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// The service answered; it simply has never seen this URL.
		return out
	default:
		out.err = fmt.Errorf("status %d", resp.StatusCode)
		return out
	}

	var body reputationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		out.err = err
		return out
	}
	out.known = true
	out.stats = body.Data.Attributes.LastAnalysisStats
	return out
}
