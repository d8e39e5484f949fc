package valueobject

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// TargetKind discriminates the two accepted target variants.
type TargetKind struct {
	value string
}

var (
	KindURL       = TargetKind{value: "URL"}
	KindEmailText = TargetKind{value: "EMAIL_TEXT"}
)

// TargetKindFromString reconstructs a TargetKind from its string representation.
func TargetKindFromString(s string) (TargetKind, error) {
	switch s {
	case "URL":
		return KindURL, nil
	case "EMAIL_TEXT":
		return KindEmailText, nil
	default:
		return TargetKind{}, fmt.Errorf("invalid target kind: %s", s)
	}
}

// String returns the string representation.
func (k TargetKind) String() string {
	return k.value
}

// Equal checks equality with another TargetKind.
func (k TargetKind) Equal(other TargetKind) bool {
	return k.value == other.value
}

// IsURL returns true for the URL variant.
func (k TargetKind) IsURL() bool {
	return k.value == "URL"
}

// IsEmailText returns true for the email-text variant.
func (k TargetKind) IsEmailText() bool {
	return k.value == "EMAIL_TEXT"
}

var (
	embeddedURLPattern  = regexp.MustCompile(`https?://[^\s<>"']+`)
	emailAddressPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// Target is the immutable subject of one assessment: a URL or a raw email
// subject+body. It is created once by the request-handling layer and never
// mutated; every field derived here (normalized form, registrable domain,
// embedded URL) is computed at construction.
type Target struct {
	kind           TargetKind
	raw            string
	normalized     string
	host           string
	registrable    string
	subject        string
	body           string
	embeddedURL    string
	emailAddresses []string
}

// NewURLTarget creates a URL-variant target. Only emptiness is rejected here;
// syntactically broken URLs still produce a Target so the heuristic analyzer
// can report them as malformed rather than the engine refusing to assess.
func NewURLTarget(raw string) (Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Target{}, fmt.Errorf("target URL is required")
	}

	t := Target{
		kind:       KindURL,
		raw:        trimmed,
		normalized: trimmed,
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		// Keep the raw value; host stays empty and marks the target malformed.
		return t, nil
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	t.normalized = parsed.String()
	t.host = parsed.Hostname()
	t.registrable = registrableDomain(t.host)
	return t, nil
}

// NewEmailTextTarget creates an email-text-variant target from a subject and
// body. At least one of the two must be non-empty.
func NewEmailTextTarget(subject, body string) (Target, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" && body == "" {
		return Target{}, fmt.Errorf("email subject or body is required")
	}

	raw := subject + "\n" + body
	t := Target{
		kind:           KindEmailText,
		raw:            raw,
		normalized:     normalizeText(raw),
		subject:        subject,
		body:           body,
		emailAddresses: emailAddressPattern.FindAllString(body, 5),
	}

	// Network-facing signals run against the first embedded URL when present.
	if match := embeddedURLPattern.FindString(body); match != "" {
		t.embeddedURL = strings.TrimRight(match, ".,;)")
		if parsed, err := url.Parse(t.embeddedURL); err == nil && parsed.Host != "" {
			t.host = strings.ToLower(parsed.Hostname())
			t.registrable = registrableDomain(t.host)
		}
	}
	return t, nil
}

// normalizeText lowercases and collapses whitespace so equivalent email bodies
// hash to the same cache key.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// registrableDomain reduces a hostname to its last two labels. Literal IPs and
// single-label hosts are returned unchanged.
func registrableDomain(host string) string {
	host = strings.TrimSuffix(host, ".")
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	// A trailing numeric label means a literal IPv4 address, not a DNS name.
	if isIPv4(host) {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

func isIPv4(host string) bool {
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// --- Accessors ---

func (t Target) Kind() TargetKind          { return t.kind }
func (t Target) Raw() string               { return t.raw }
func (t Target) Normalized() string        { return t.normalized }
func (t Target) Host() string              { return t.host }
func (t Target) RegistrableDomain() string { return t.registrable }
func (t Target) Subject() string           { return t.subject }
func (t Target) Body() string              { return t.body }

// EmbeddedURL returns the first URL found in an email body, or "" when the
// target is a plain URL or the email carries no link.
func (t Target) EmbeddedURL() string { return t.embeddedURL }

// EmailAddresses returns up to five addresses extracted from an email body.
func (t Target) EmailAddresses() []string {
	out := make([]string, len(t.emailAddresses))
	copy(out, t.emailAddresses)
	return out
}

// ScanURL returns the URL that network-facing signals should inspect: the
// target itself for the URL variant, the first embedded URL for emails.
func (t Target) ScanURL() string {
	if t.kind.IsURL() {
		return t.normalized
	}
	return t.embeddedURL
}

// IsZero returns true if the Target has not been set.
func (t Target) IsZero() bool {
	return t.kind.value == ""
}

// Digest returns a stable cache key derived from the kind and normalized value.
func (t Target) Digest() string {
	sum := sha256.Sum256([]byte(t.kind.value + "\x00" + t.normalized))
	return hex.EncodeToString(sum[:])
}
