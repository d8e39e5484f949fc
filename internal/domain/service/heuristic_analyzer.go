package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

// SignalHeuristics is the name the lexical analyzer reports under.
const SignalHeuristics = "heuristics"

// heuristicConfidence is fixed: the rules are deterministic, so the only
// uncertainty is in the rule set itself, not in the measurement.
const heuristicConfidence = 0.9

var (
	ipv4Pattern     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	digitRunPattern = regexp.MustCompile(`\d{4,}`)
	linkPattern     = regexp.MustCompile(`https?://[^\s<>"']+`)
)

// HeuristicRules parameterizes the lexical analyzer. The tables ship with
// working defaults and are overridable from policy.
type HeuristicRules struct {
	SuspiciousTLDs   []string
	PhishingKeywords []string
	UrgencyKeywords  []string
	ShortenerDomains []string
	MaxHostLabels    int
	MaxURLLength     int
}

// DefaultHeuristicRules returns the built-in rule tables.
func DefaultHeuristicRules() HeuristicRules {
	return HeuristicRules{
		SuspiciousTLDs: []string{
			".xyz", ".top", ".click", ".zip", ".club",
			".online", ".site", ".space", ".website", ".tech",
		},
		PhishingKeywords: []string{
			"login", "signin", "verify", "account", "secure",
			"banking", "paypal", "ebay", "amazon",
		},
		UrgencyKeywords: []string{
			"urgent", "immediately", "suspended", "verify", "password",
			"confirm", "expire", "invoice", "payment", "click here",
			"act now", "account locked",
		},
		ShortenerDomains: []string{
			"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly",
			"is.gd", "lnkd.in", "buff.ly", "rebrand.ly",
		},
		MaxHostLabels: 3,
		MaxURLLength:  200,
	}
}

// HeuristicAnalyzer is a pure domain service that scores targets with
// deterministic lexical rules. It performs no I/O and is therefore the one
// signal that is never Unavailable: a malformed target yields an Error
// result, anything else yields Ok.
type HeuristicAnalyzer struct {
	rules      HeuristicRules
	tlds       []string
	shorteners map[string]bool
}

// NewHeuristicAnalyzer creates an analyzer with the given rule tables.
// Zero-valued tables fall back to the defaults.
func NewHeuristicAnalyzer(rules HeuristicRules) *HeuristicAnalyzer {
	defaults := DefaultHeuristicRules()
	if len(rules.SuspiciousTLDs) == 0 {
		rules.SuspiciousTLDs = defaults.SuspiciousTLDs
	}
	if len(rules.PhishingKeywords) == 0 {
		rules.PhishingKeywords = defaults.PhishingKeywords
	}
	if len(rules.UrgencyKeywords) == 0 {
		rules.UrgencyKeywords = defaults.UrgencyKeywords
	}
	if len(rules.ShortenerDomains) == 0 {
		rules.ShortenerDomains = defaults.ShortenerDomains
	}
	if rules.MaxHostLabels <= 0 {
		rules.MaxHostLabels = defaults.MaxHostLabels
	}
	if rules.MaxURLLength <= 0 {
		rules.MaxURLLength = defaults.MaxURLLength
	}

	shorteners := make(map[string]bool, len(rules.ShortenerDomains))
	for _, d := range rules.ShortenerDomains {
		shorteners[strings.ToLower(d)] = true
	}

	tlds := make([]string, len(rules.SuspiciousTLDs))
	for i, tld := range rules.SuspiciousTLDs {
		tlds[i] = strings.ToLower(tld)
	}

	return &HeuristicAnalyzer{rules: rules, tlds: tlds, shorteners: shorteners}
}

// Name implements port.SignalSource.
func (h *HeuristicAnalyzer) Name() string { return SignalHeuristics }

// Inspect implements port.SignalSource.
func (h *HeuristicAnalyzer) Inspect(_ context.Context, target valueobject.Target) valueobject.SignalResult {
	if target.Kind().IsEmailText() {
		return h.inspectEmail(target)
	}
	return h.inspectURL(target)
}

func (h *HeuristicAnalyzer) inspectURL(target valueobject.Target) valueobject.SignalResult {
	if target.Host() == "" {
		return valueobject.ErrorResult(SignalHeuristics,
			fmt.Sprintf("heuristics: %q is not a parseable URL", target.Raw()))
	}

	url := target.Normalized()
	lower := strings.ToLower(url)
	score := 0
	evidence := make([]string, 0)

	// Rule: double hyphens, common in typosquatted hostnames.
	if strings.Contains(url, "--") {
		score += 15
		evidence = append(evidence, "heuristics: repeated hyphens in URL")
	}

	// Rule: TLD frequently used by throwaway phishing domains.
	for _, tld := range h.tlds {
		if strings.HasSuffix(target.Host(), tld) {
			score += 20
			evidence = append(evidence, fmt.Sprintf("heuristics: suspicious TLD %s", tld))
			break
		}
	}

	// Rule: literal IPv4 address instead of a hostname.
	if ipv4Pattern.MatchString(url) {
		score += 25
		evidence = append(evidence, "heuristics: literal IP address in URL")
	}

	// Rule: deep subdomain nesting.
	if labels := strings.Count(target.Host(), ".") + 1; labels > h.rules.MaxHostLabels {
		score += 10
		evidence = append(evidence, fmt.Sprintf("heuristics: %d host labels (max %d)", labels, h.rules.MaxHostLabels))
	}

	// Rule: brand or credential keywords inside the URL.
	for _, kw := range h.rules.PhishingKeywords {
		if strings.Contains(lower, kw) {
			score += 15
			evidence = append(evidence, fmt.Sprintf("heuristics: phishing keyword %q", kw))
			break
		}
	}

	// Rule: shortener host, destination cannot be verified lexically.
	if h.isShortener(target.Host()) {
		score += 20
		evidence = append(evidence, "heuristics: URL shortener host")
	}

	// Rule: plain HTTP.
	if !strings.HasPrefix(lower, "https://") {
		score += 10
		evidence = append(evidence, "heuristics: not using HTTPS")
	}

	// Rule: long digit runs, typical of generated campaign URLs.
	if digitRunPattern.MatchString(url) {
		score += 15
		evidence = append(evidence, "heuristics: long numeric sequence")
	}

	// Rule: script scheme smuggled into the URL.
	if strings.Contains(lower, "javascript:") {
		score += 30
		evidence = append(evidence, "heuristics: javascript scheme in URL")
	}

	// Rule: unusually long URL.
	if len(url) > h.rules.MaxURLLength {
		score += 10
		evidence = append(evidence, fmt.Sprintf("heuristics: URL longer than %d characters", h.rules.MaxURLLength))
	}

	return valueobject.NewSignalResult(SignalHeuristics, score, heuristicConfidence, evidence)
}

func (h *HeuristicAnalyzer) inspectEmail(target valueobject.Target) valueobject.SignalResult {
	subject := strings.ToLower(target.Subject())
	body := strings.ToLower(target.Body())
	score := 0
	evidence := make([]string, 0)

	// Rule: urgency language in the subject line.
	for _, kw := range h.rules.UrgencyKeywords {
		if strings.Contains(subject, kw) {
			score += 20
			evidence = append(evidence, fmt.Sprintf("heuristics: urgency keyword %q in subject", kw))
			break
		}
	}

	// Rule: urgency keyword density in the body.
	distinct := 0
	for _, kw := range h.rules.UrgencyKeywords {
		if strings.Contains(body, kw) {
			distinct++
		}
	}
	switch {
	case distinct >= 3:
		score += 25
		evidence = append(evidence, fmt.Sprintf("heuristics: %d urgency keywords in body", distinct))
	case distinct >= 1:
		score += 10
		evidence = append(evidence, fmt.Sprintf("heuristics: %d urgency keyword(s) in body", distinct))
	}

	// Rule: embedded links.
	links := countEmbeddedURLs(target.Body())
	if links >= 3 {
		score += 15
		evidence = append(evidence, fmt.Sprintf("heuristics: %d embedded links", links))
	}
	if target.EmbeddedURL() != "" {
		if host := hostOf(target.EmbeddedURL()); h.isShortener(host) {
			score += 20
			evidence = append(evidence, "heuristics: shortened link in body")
		}
	}

	// Rule: shouting subject line.
	if isMostlyUppercase(target.Subject()) {
		score += 10
		evidence = append(evidence, "heuristics: subject is mostly uppercase")
	}

	return valueobject.NewSignalResult(SignalHeuristics, score, heuristicConfidence, evidence)
}

// isShortener matches the host itself or a subdomain of a known shortener.
func (h *HeuristicAnalyzer) isShortener(host string) bool {
	host = strings.ToLower(host)
	if h.shorteners[host] {
		return true
	}
	for d := range h.shorteners {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func countEmbeddedURLs(text string) int {
	return len(linkPattern.FindAllString(text, -1))
}

func hostOf(rawURL string) string {
	rest := rawURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	for _, sep := range []string{"/", "?", "#"} {
		if i := strings.Index(rest, sep); i >= 0 {
			rest = rest[:i]
		}
	}
	if i := strings.Index(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	if i := strings.Index(rest, ":"); i >= 0 {
		rest = rest[:i]
	}
	return strings.ToLower(rest)
}

// isMostlyUppercase reports whether more than half of the letters are upper
// case, ignoring short subjects where the ratio is meaningless.
func isMostlyUppercase(s string) bool {
	letters, upper := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters > 5 && upper*2 > letters
}
