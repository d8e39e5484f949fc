package tlsinspect

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

// SignalSSL names the certificate posture signal.
const SignalSSL = "ssl"

// sslConfidence reflects that the probe observes the live endpoint directly.
const sslConfidence = 0.8

// knownCAs is a subset of major certificate authorities matched as
// case-insensitive substrings of the issuer organization or common name.
var knownCAs = []string{
	"digicert", "globalsign", "let's encrypt", "godaddy", "comodo", "entrust",
	"verisign", "thawte", "geotrust", "rapidssl", "ssl.com", "sectigo",
	"trustwave", "startcom", "wosign", "symantec", "network solutions",
	"amazon", "google trust services", "microsoft", "apple", "mozilla",
}

// Config parameterizes the inspector. Zero values fall back to defaults.
type Config struct {
	// DialTimeout bounds the TCP connect when the caller's context carries
	// no deadline of its own.
	DialTimeout time.Duration

	// InvalidFloor is the overall-score floor proposed when the certificate
	// chain is invalid, expired or self-signed.
	InvalidFloor int

	// RootCAs overrides the trust anchors used for chain verification.
	// Nil means the system pool.
	RootCAs *x509.CertPool
}

// Inspector probes the target's TLS endpoint and scores certificate
// posture. The handshake itself runs without verification so that invalid
// chains can be analyzed and scored instead of failing the connection;
// trust is then judged separately against the configured roots.
type Inspector struct {
	dialTimeout  time.Duration
	invalidFloor int
	roots        *x509.CertPool
}

// NewInspector creates an inspector.
func NewInspector(cfg Config) *Inspector {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.InvalidFloor <= 0 {
		cfg.InvalidFloor = 60
	}
	return &Inspector{
		dialTimeout:  cfg.DialTimeout,
		invalidFloor: cfg.InvalidFloor,
		roots:        cfg.RootCAs,
	}
}

// Name implements port.SignalSource.
func (i *Inspector) Name() string { return SignalSSL }

// Inspect implements port.SignalSource.
func (i *Inspector) Inspect(ctx context.Context, target valueobject.Target) valueobject.SignalResult {
	raw := target.ScanURL()
	if raw == "" {
		return valueobject.UnavailableResult(SignalSSL, "ssl: no URL to inspect")
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return valueobject.ErrorResult(SignalSSL, fmt.Sprintf("ssl: %q is not a parseable URL", raw))
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
	case "http":
		return valueobject.NewSignalResult(SignalSSL, 60, sslConfidence,
			[]string{"ssl: connection is unencrypted"})
	default:
		return valueobject.NewSignalResult(SignalSSL, 50, sslConfidence,
			[]string{fmt.Sprintf("ssl: unsupported scheme %q", u.Scheme)})
	}

	port := u.Port()
	if port == "" {
		port = "443"
	}
	addr := net.JoinHostPort(u.Hostname(), port)

	dialer := &net.Dialer{Timeout: i.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return valueobject.UnavailableResult(SignalSSL, fmt.Sprintf("ssl: connect: %v", err))
	}
	defer conn.Close()

	// Old protocol versions are accepted on purpose; refusing them would
	// hide exactly the endpoints this signal needs to score.
	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         u.Hostname(),
		InsecureSkipVerify: true, //nolint:gosec // verification happens below so invalid chains can be scored
		MinVersion:         tls.VersionTLS10,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return valueobject.UnavailableResult(SignalSSL, fmt.Sprintf("ssl: handshake: %v", err))
	}
	defer tlsConn.Close()

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return valueobject.UnavailableResult(SignalSSL, "ssl: no certificate presented")
	}

	return i.scoreCertificate(u.Hostname(), state)
}

func (i *Inspector) scoreCertificate(hostname string, state tls.ConnectionState) valueobject.SignalResult {
	leaf := state.PeerCertificates[0]
	score := 0
	var evidence []string
	invalid := false

	// Rule: expired +40, expires within 7 days +30, within 30 days +10
	now := time.Now()
	if now.After(leaf.NotAfter) {
		days := int(now.Sub(leaf.NotAfter).Hours() / 24)
		evidence = append(evidence, fmt.Sprintf("ssl: certificate expired %d days ago", days))
		score += 40
		invalid = true
	} else {
		days := int(leaf.NotAfter.Sub(now).Hours() / 24)
		switch {
		case days <= 7:
			evidence = append(evidence, fmt.Sprintf("ssl: certificate expires in %d days", days))
			score += 30
		case days <= 30:
			evidence = append(evidence, fmt.Sprintf("ssl: certificate expires in %d days", days))
			score += 10
		}
	}

	// Rule: self-signed +40
	if bytes.Equal(leaf.RawSubject, leaf.RawIssuer) {
		evidence = append(evidence, "ssl: self-signed certificate")
		score += 40
		invalid = true
	}

	// Rule: issuer not a known CA +15
	issuerOrg := strings.Join(leaf.Issuer.Organization, " ")
	if issuerOrg != "" && !isKnownCA(issuerOrg, leaf.Issuer.CommonName) {
		evidence = append(evidence, fmt.Sprintf("ssl: unknown certificate authority %q", issuerOrg))
		score += 15
	}

	// Rule: wildcard subject +10
	if strings.HasPrefix(leaf.Subject.CommonName, "*.") {
		evidence = append(evidence, fmt.Sprintf("ssl: wildcard certificate %q", leaf.Subject.CommonName))
		score += 10
	}

	// Rule: protocol below TLS 1.2 +5
	if state.Version < tls.VersionTLS12 {
		evidence = append(evidence, "ssl: negotiated "+tls.VersionName(state.Version))
		score += 5
	}

	// Rule: RSA key below 2048 bits +10
	if pub, ok := leaf.PublicKey.(*rsa.PublicKey); ok && pub.N.BitLen() < 2048 {
		evidence = append(evidence, fmt.Sprintf("ssl: weak RSA key %d bits", pub.N.BitLen()))
		score += 10
	}

	if err := i.verifyChain(hostname, state); err != nil {
		evidence = append(evidence, fmt.Sprintf("ssl: certificate chain not trusted: %v", err))
		invalid = true
	}

	result := valueobject.NewSignalResult(SignalSSL, score, sslConfidence, evidence)
	if invalid {
		result = result.WithVerdict(valueobject.VerdictSuspicious, i.invalidFloor)
	}
	return result
}

func (i *Inspector) verifyChain(hostname string, state tls.ConnectionState) error {
	intermediates := x509.NewCertPool()
	for _, cert := range state.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}
	_, err := state.PeerCertificates[0].Verify(x509.VerifyOptions{
		DNSName:       hostname,
		Roots:         i.roots,
		Intermediates: intermediates,
	})
	return err
}

func isKnownCA(org, commonName string) bool {
	org = strings.ToLower(org)
	commonName = strings.ToLower(commonName)
	for _, ca := range knownCAs {
		if strings.Contains(org, ca) || strings.Contains(commonName, ca) {
			return true
		}
	}
	return false
}
