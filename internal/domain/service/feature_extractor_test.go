package service_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/service"
)

func TestFeatureExtractor_SimpleURL(t *testing.T) {
	extractor := service.NewFeatureExtractor()

	vec, completeness, err := extractor.Extract(urlTarget(t, "https://example.com/path?q=1"))
	require.NoError(t, err)

	require.Len(t, vec, service.FeatureCount)
	assert.InDelta(t, 1.0, completeness, 1e-9)

	assert.InDelta(t, math.Log1p(28), vec[0], 1e-9) // url_length
	assert.InDelta(t, math.Log1p(7), vec[1], 1e-9)  // domain_length "example"
	assert.InDelta(t, 0, vec[2], 1e-9)              // subdomain_length ""
	assert.InDelta(t, math.Log1p(3), vec[3], 1e-9)  // tld_length "com"
	assert.InDelta(t, math.Log1p(5), vec[4], 1e-9)  // path_length "/path"
	assert.InDelta(t, math.Log1p(3), vec[5], 1e-9)  // query_length "q=1"
	assert.InDelta(t, math.Log1p(1), vec[6], 1e-9)  // num_dots
	assert.InDelta(t, math.Log1p(3), vec[8], 1e-9)  // num_slashes
	assert.InDelta(t, 1.0, vec[14], 1e-9)           // has_https
	assert.InDelta(t, 0.0, vec[15], 1e-9)           // kw_login
}

func TestFeatureExtractor_SubdomainAndKeywords(t *testing.T) {
	extractor := service.NewFeatureExtractor()

	vec, _, err := extractor.Extract(urlTarget(t, "https://secure-login.example.com/verify"))
	require.NoError(t, err)

	assert.InDelta(t, math.Log1p(12), vec[2], 1e-9) // subdomain "secure-login"
	assert.InDelta(t, math.Log1p(1), vec[7], 1e-9)  // num_hyphens
	assert.InDelta(t, 1.0, vec[15], 1e-9)           // kw_login
	assert.InDelta(t, 1.0, vec[16], 1e-9)           // kw_secure
	assert.InDelta(t, 1.0, vec[18], 1e-9)           // kw_verify
	assert.InDelta(t, 0.0, vec[19], 1e-9)           // kw_payment
}

func TestFeatureExtractor_CountsAreCapped(t *testing.T) {
	extractor := service.NewFeatureExtractor()

	vec, _, err := extractor.Extract(urlTarget(t,
		"https://example.com/?n="+strings.Repeat("7", 250)))
	require.NoError(t, err)

	// 250 digits cap at 200 before the log transform.
	assert.InDelta(t, math.Log1p(200), vec[13], 1e-9)
}

func TestFeatureExtractor_EmailUsesEmbeddedLink(t *testing.T) {
	extractor := service.NewFeatureExtractor()

	vec, completeness, err := extractor.Extract(emailTarget(t,
		"Invoice", "Pay at https://billing.example.com/invoice today."))
	require.NoError(t, err)

	require.Len(t, vec, service.FeatureCount)
	assert.InDelta(t, 0.5, completeness, 1e-9)
	assert.InDelta(t, 1.0, vec[14], 1e-9) // link is https
}

func TestFeatureExtractor_EmailWithoutLink(t *testing.T) {
	extractor := service.NewFeatureExtractor()

	_, _, err := extractor.Extract(emailTarget(t, "Lunch?", "No links in here."))

	require.ErrorIs(t, err, service.ErrNoFeatureSource)
}

func TestFeatureExtractor_MalformedURL(t *testing.T) {
	extractor := service.NewFeatureExtractor()

	_, _, err := extractor.Extract(urlTarget(t, "notaurl"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrNoFeatureSource)
	assert.Contains(t, err.Error(), "not a parseable URL")
}
