package breach

import (
	"context"
	"crypto/sha1" //nolint:gosec // corpus interchange format, not a security boundary
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

// SignalBreach names the compromised-data signal.
const SignalBreach = "breach"

// breachConfidence stays below the heuristic signal's: a hit is exact, but
// the corpus only ever covers a slice of known breaches.
const breachConfidence = 0.7

// Config parameterizes the lookup. Zero scores fall back to defaults.
type Config struct {
	// CorpusPath names a JSON file mapping uppercase-hex SHA-1 digests to
	// occurrence counts, split into breached domains and credentials.
	CorpusPath string

	DomainScore     int
	CredentialScore int
}

type corpusFile struct {
	Version     string         `json:"version"`
	Domains     map[string]int `json:"domains"`
	Credentials map[string]int `json:"credentials"`
}

// Lookup answers breach queries from a local hash index loaded once at
// construction. A missing or unreadable corpus leaves the lookup in
// degraded mode where every inspection reports Unavailable; the engine
// keeps running on its other signals.
type Lookup struct {
	domains         map[string]int
	credentials     map[string]int
	loaded          bool
	domainScore     int
	credentialScore int
}

// NewLookup loads the corpus at cfg.CorpusPath.
func NewLookup(cfg Config, logger *slog.Logger) *Lookup {
	if cfg.DomainScore <= 0 {
		cfg.DomainScore = 40
	}
	if cfg.CredentialScore <= 0 {
		cfg.CredentialScore = 50
	}
	l := &Lookup{
		domainScore:     cfg.DomainScore,
		credentialScore: cfg.CredentialScore,
	}

	data, err := os.ReadFile(cfg.CorpusPath)
	if err != nil {
		logger.Warn("breach corpus unavailable, signal degraded",
			"path", cfg.CorpusPath, "error", err)
		return l
	}
	var corpus corpusFile
	if err := json.Unmarshal(data, &corpus); err != nil {
		logger.Warn("breach corpus unreadable, signal degraded",
			"path", cfg.CorpusPath, "error", err)
		return l
	}

	l.domains = make(map[string]int, len(corpus.Domains))
	for digest, count := range corpus.Domains {
		l.domains[strings.ToUpper(digest)] = count
	}
	l.credentials = make(map[string]int, len(corpus.Credentials))
	for digest, count := range corpus.Credentials {
		l.credentials[strings.ToUpper(digest)] = count
	}
	l.loaded = true

	logger.Info("breach corpus loaded",
		"path", cfg.CorpusPath,
		"domains", len(l.domains),
		"credentials", len(l.credentials),
	)
	return l
}

// Name implements port.SignalSource.
func (l *Lookup) Name() string { return SignalBreach }

// Inspect implements port.SignalSource. Lookups are pure map reads against
// the immutable index; the context is accepted for interface symmetry only.
func (l *Lookup) Inspect(_ context.Context, target valueobject.Target) valueobject.SignalResult {
	if !l.loaded {
		return valueobject.UnavailableResult(SignalBreach, "breach: corpus not loaded")
	}

	score := 0
	var evidence []string

	if domain := target.RegistrableDomain(); domain != "" {
		if count, ok := l.domains[sha1Hex(domain)]; ok {
			evidence = append(evidence, fmt.Sprintf("breach: domain %s appeared in %d breach records", domain, count))
			score += l.domainScore
		}
	}

	for _, address := range target.EmailAddresses() {
		if count, ok := l.credentials[sha1Hex(strings.ToLower(address))]; ok {
			evidence = append(evidence, fmt.Sprintf("breach: credential %s seen in %d breach records", maskAddress(address), count))
			score += l.credentialScore
		}
	}

	return valueobject.NewSignalResult(SignalBreach, score, breachConfidence, evidence)
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec
	return fmt.Sprintf("%X", sum)
}

// maskAddress keeps the first rune of the local part and the full domain,
// enough for a user to recognize their own address in the evidence.
func maskAddress(address string) string {
	at := strings.IndexByte(address, '@')
	if at <= 0 {
		return "***"
	}
	return address[:1] + "***" + address[at:]
}
