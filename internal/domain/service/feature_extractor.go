package service

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

// FeatureCount is the width of the classifier feature vector. Order and
// transforms must match the vector the model was trained on; changing either
// silently invalidates every prediction.
const FeatureCount = 21

// ErrNoFeatureSource is returned for targets that carry no URL at all, such
// as an email without links. The classifier has nothing to score there.
var ErrNoFeatureSource = errors.New("target has no URL to derive classifier features from")

// emailVectorCompleteness discounts vectors built from an email's first
// embedded link: the link is only part of what the message says.
const emailVectorCompleteness = 0.5

// FeatureExtractor derives the fixed-width numeric feature vector the
// classifier consumes. Extraction is deterministic and performs no I/O.
//
// Numeric features are log1p(min(v, cap)) transformed; keyword and scheme
// features are raw 0/1 flags.
type FeatureExtractor struct{}

// NewFeatureExtractor creates a new FeatureExtractor instance.
func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{}
}

// Extract returns the feature vector for the target together with a
// completeness fraction in [0, 1] describing how much of the target the
// vector actually covers.
func (e *FeatureExtractor) Extract(target valueobject.Target) ([]float64, float64, error) {
	source := target.ScanURL()
	if source == "" {
		return nil, 0, ErrNoFeatureSource
	}

	parsed, err := url.Parse(source)
	if err != nil || parsed.Hostname() == "" {
		// A vector of fabricated defaults would look like a clean URL to
		// the model. Refusing is the honest answer.
		return nil, 0, fmt.Errorf("feature source %q is not a parseable URL", source)
	}

	hostname := parsed.Hostname()
	parts := strings.Split(hostname, ".")
	domain, subdomain, tld := hostname, "", ""
	if len(parts) >= 2 {
		domain = parts[len(parts)-2]
		tld = parts[len(parts)-1]
	}
	if len(parts) > 2 {
		subdomain = strings.Join(parts[:len(parts)-2], ".")
	}

	lower := strings.ToLower(source)
	digits := 0
	for _, r := range source {
		if r >= '0' && r <= '9' {
			digits++
		}
	}

	vector := []float64{
		logCap(len(source), 2000),                    // url_length
		logCap(len(domain), 200),                     // domain_length
		logCap(len(subdomain), 200),                  // subdomain_length
		logCap(len(tld), 50),                         // tld_length
		logCap(len(parsed.Path), 2000),               // path_length
		logCap(len(parsed.RawQuery), 2000),           // query_length
		logCap(strings.Count(source, "."), 50),       // num_dots
		logCap(strings.Count(source, "-"), 50),       // num_hyphens
		logCap(strings.Count(source, "/"), 200),      // num_slashes
		logCap(strings.Count(source, "?"), 20),       // num_question
		logCap(strings.Count(source, "="), 50),       // num_equals
		logCap(strings.Count(source, "@"), 10),       // num_at
		logCap(strings.Count(source, "%"), 20),       // num_percent
		logCap(digits, 200),                          // num_digits
		flag(strings.HasPrefix(lower, "https")),      // has_https
		flag(strings.Contains(lower, "login")),       // kw_login
		flag(strings.Contains(lower, "secure")),      // kw_secure
		flag(strings.Contains(lower, "update")),      // kw_update
		flag(strings.Contains(lower, "verify")),      // kw_verify
		flag(strings.Contains(lower, "payment")),     // kw_payment
		flag(strings.Contains(lower, "account")),     // kw_account
	}

	completeness := 1.0
	if target.Kind().IsEmailText() {
		completeness = emailVectorCompleteness
	}
	return vector, completeness, nil
}

func logCap(v, max int) float64 {
	if v > max {
		v = max
	}
	return math.Log1p(float64(v))
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
