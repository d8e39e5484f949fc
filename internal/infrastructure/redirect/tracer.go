package redirect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

// SignalRedirects names the redirect chain signal.
const SignalRedirects = "redirects"

const redirectConfidence = 0.8

var redirectStatuses = map[int]bool{
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

var scriptSchemes = []string{"javascript:", "data:", "vbscript:"}

// Config parameterizes the tracer. Zero values fall back to defaults.
type Config struct {
	// MaxHops caps how many redirects are followed. The cap also bounds
	// loop detection, so a cycle can never hang the trace.
	MaxHops int

	// Timeout bounds each individual request.
	Timeout time.Duration

	// Transport overrides the HTTP transport, used by tests.
	Transport http.RoundTripper

	// ShortenerDomains marks origins worth noting in the evidence. The
	// lexical signal scores shorteners; the tracer only records that the
	// chain started behind one.
	ShortenerDomains []string
}

// Tracer follows a target's redirect chain hop by hop and scores what it
// finds. Redirects are followed manually rather than by the HTTP client so
// every hop is captured and a loop stops the trace at the point of detection.
type Tracer struct {
	client     *http.Client
	maxHops    int
	shorteners map[string]bool
}

// NewTracer creates a tracer.
func NewTracer(cfg Config) *Tracer {
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	shorteners := make(map[string]bool, len(cfg.ShortenerDomains))
	for _, d := range cfg.ShortenerDomains {
		shorteners[strings.ToLower(d)] = true
	}
	return &Tracer{
		client: &http.Client{
			Transport: cfg.Transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxHops:    cfg.MaxHops,
		shorteners: shorteners,
	}
}

// Name implements port.SignalSource.
func (t *Tracer) Name() string { return SignalRedirects }

// Inspect implements port.SignalSource.
func (t *Tracer) Inspect(ctx context.Context, target valueobject.Target) valueobject.SignalResult {
	raw := target.ScanURL()
	if raw == "" {
		return valueobject.UnavailableResult(SignalRedirects, "redirects: no URL to trace")
	}

	origin, err := url.Parse(raw)
	if err != nil || origin.Hostname() == "" {
		return valueobject.ErrorResult(SignalRedirects, fmt.Sprintf("redirects: %q is not a parseable URL", raw))
	}

	score := 0
	var evidence []string

	if t.shorteners[strings.TrimPrefix(strings.ToLower(origin.Hostname()), "www.")] {
		evidence = append(evidence, fmt.Sprintf("redirects: shortened origin %s", origin.Hostname()))
	}

	chain := []string{origin.String()}
	seen := map[string]bool{strings.ToLower(origin.String()): true}
	current := origin
	hops := 0
	loopDetected := false

	for hops < t.maxHops {
		resp, err := t.fetch(ctx, current)
		if err != nil {
			if hops == 0 {
				return valueobject.UnavailableResult(SignalRedirects, fmt.Sprintf("redirects: connect: %v", err))
			}
			evidence = append(evidence, fmt.Sprintf("redirects: chain truncated at hop %d: request failed", hops))
			break
		}
		if !redirectStatuses[resp.StatusCode] {
			break
		}
		location := resp.Header.Get("Location")
		if location == "" {
			evidence = append(evidence, "redirects: redirect without a location header")
			break
		}

		// Rule: javascript:/data:/vbscript: redirect target +30
		if scheme := scriptScheme(location); scheme != "" {
			evidence = append(evidence, fmt.Sprintf("redirects: %s redirect target", scheme))
			score += 30
			break
		}

		next, err := url.Parse(location)
		if err != nil {
			evidence = append(evidence, "redirects: unparseable redirect target")
			break
		}
		next = current.ResolveReference(next)

		hops++
		chain = append(chain, next.String())

		// Rule: redirect loop detected +25, trace stops at once
		key := strings.ToLower(next.String())
		if seen[key] {
			evidence = append(evidence, "redirects: redirect loop detected")
			score += 25
			loopDetected = true
			break
		}
		seen[key] = true
		current = next
	}

	if hops == t.maxHops && !loopDetected {
		evidence = append(evidence, fmt.Sprintf("redirects: gave up after %d hops", hops))
	}

	// Rule: more than 3 hops +20
	if hops > 3 {
		evidence = append(evidence, fmt.Sprintf("redirects: %d hops", hops))
		score += 20
	}

	// Rule: final registrable domain differs from the origin +15
	if originMain, finalMain := mainDomain(origin.Hostname()), mainDomain(current.Hostname()); originMain != finalMain {
		evidence = append(evidence, fmt.Sprintf("redirects: lands on %s, away from %s", current.Hostname(), origin.Hostname()))
		score += 15
	}

	if hops > 0 {
		evidence = append(evidence, "redirects: chain "+strings.Join(chain, " -> "))
	}

	return valueobject.NewSignalResult(SignalRedirects, score, redirectConfidence, evidence)
}

func (t *Tracer) fetch(ctx context.Context, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	// Drain so the connection can be reused across hops.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
	return resp, nil
}

func scriptScheme(location string) string {
	lower := strings.ToLower(strings.TrimSpace(location))
	for _, scheme := range scriptSchemes {
		if strings.HasPrefix(lower, scheme) {
			return strings.TrimSuffix(scheme, ":")
		}
	}
	return ""
}

// mainDomain reduces a host to its last two labels, enough to tell a
// cosmetic subdomain change from a jump to a different site.
func mainDomain(host string) string {
	host = strings.ToLower(host)
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}
