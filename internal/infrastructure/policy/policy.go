package policy

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

var policyValidate = validator.New()

// Duration wraps time.Duration so policy files can say "5s" or "24h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// WeightRow is one row of the classifier weight table as written in YAML.
type WeightRow struct {
	Trusts           []string `yaml:"trusts" validate:"required,min=1"`
	MinConsensus     float64  `yaml:"min_consensus" validate:"min=0,max=1"`
	MatchesUndefined bool     `yaml:"matches_undefined"`
	Weight           float64  `yaml:"weight" validate:"min=0,max=1"`
}

// Policy carries every tunable scoring parameter. The numbers ship as
// defaults here and can be overridden, in part or in full, from a YAML file.
type Policy struct {
	SignalTimeout Duration `yaml:"signal_timeout"`

	Cache struct {
		LongTTL     Duration `yaml:"long_ttl"`
		ShortTTL    Duration `yaml:"short_ttl"`
		SnapshotTTL Duration `yaml:"snapshot_ttl"`
	} `yaml:"cache"`

	Tiers struct {
		CautionAt int `yaml:"caution_at" validate:"min=1,max=100"`
		DangerAt  int `yaml:"danger_at" validate:"min=1,max=100"`
	} `yaml:"tiers"`

	Floors struct {
		DangerSuppressBelow  float64 `yaml:"danger_suppress_below" validate:"min=0,max=1"`
		DangerSecondary      int     `yaml:"danger_secondary" validate:"min=0,max=100"`
		CautionSuppressBelow float64 `yaml:"caution_suppress_below" validate:"min=0,max=1"`
		CautionSecondary     int     `yaml:"caution_secondary" validate:"min=0,max=100"`
	} `yaml:"floors"`

	Classifier struct {
		Scale       int         `yaml:"scale" validate:"min=1,max=100"`
		WeightTable []WeightRow `yaml:"weight_table" validate:"dive"`
	} `yaml:"classifier"`

	// AllowList names registrable domains treated as KnownSafe. The list
	// is operator-owned; feedback never writes to it.
	AllowList []string `yaml:"allow_list"`

	Heuristics struct {
		SuspiciousTLDs   []string `yaml:"suspicious_tlds"`
		PhishingKeywords []string `yaml:"phishing_keywords"`
		UrgencyKeywords  []string `yaml:"urgency_keywords"`
		ShortenerDomains []string `yaml:"shortener_domains"`
		MaxHostLabels    int      `yaml:"max_host_labels" validate:"min=1"`
		MaxURLLength     int      `yaml:"max_url_length" validate:"min=1"`
	} `yaml:"heuristics"`

	Redirects struct {
		MaxHops int `yaml:"max_hops" validate:"min=1,max=50"`
	} `yaml:"redirects"`

	Intel struct {
		RatePerMinute     int `yaml:"rate_per_minute" validate:"min=1"`
		Burst             int `yaml:"burst" validate:"min=1"`
		MaliciousEngines  int `yaml:"malicious_engines" validate:"min=0"`
		SuspiciousEngines int `yaml:"suspicious_engines" validate:"min=0"`
		BlocklistFloor    int `yaml:"blocklist_floor" validate:"min=0,max=100"`
		MaliciousFloor    int `yaml:"malicious_floor" validate:"min=0,max=100"`
		SuspiciousFloor   int `yaml:"suspicious_floor" validate:"min=0,max=100"`
	} `yaml:"intel"`

	SSL struct {
		InvalidFloor int `yaml:"invalid_floor" validate:"min=0,max=100"`
	} `yaml:"ssl"`

	Breach struct {
		DomainScore     int `yaml:"domain_score" validate:"min=0,max=100"`
		CredentialScore int `yaml:"credential_score" validate:"min=0,max=100"`
	} `yaml:"breach"`
}

// Default returns the built-in policy.
func Default() *Policy {
	p := &Policy{}

	p.SignalTimeout = Duration(5 * time.Second)

	p.Cache.LongTTL = Duration(24 * time.Hour)
	p.Cache.ShortTTL = Duration(2 * time.Hour)
	p.Cache.SnapshotTTL = Duration(5 * time.Minute)

	p.Tiers.CautionAt = 40
	p.Tiers.DangerAt = 70

	p.Floors.DangerSuppressBelow = 0.8
	p.Floors.DangerSecondary = 60
	p.Floors.CautionSuppressBelow = 0.7
	p.Floors.CautionSecondary = 30

	p.Classifier.Scale = 70
	p.Classifier.WeightTable = []WeightRow{
		{Trusts: []string{"KNOWN_SAFE"}, MinConsensus: 0, MatchesUndefined: true, Weight: 0.05},
		{Trusts: []string{"UNKNOWN"}, MinConsensus: 0.8, Weight: 0.10},
		{Trusts: []string{"UNKNOWN"}, MinConsensus: 0.4, Weight: 0.30},
		{Trusts: []string{"UNKNOWN", "KNOWN_RISKY"}, MinConsensus: 0, MatchesUndefined: true, Weight: 0.50},
	}

	p.AllowList = []string{
		"google.com", "microsoft.com", "github.com", "apple.com",
		"amazon.com", "paypal.com", "wikipedia.org", "cloudflare.com",
	}

	p.Heuristics.SuspiciousTLDs = []string{
		".xyz", ".top", ".click", ".zip", ".club",
		".online", ".site", ".space", ".website", ".tech",
	}
	p.Heuristics.PhishingKeywords = []string{
		"login", "signin", "verify", "account", "secure",
		"banking", "paypal", "ebay", "amazon",
	}
	p.Heuristics.UrgencyKeywords = []string{
		"urgent", "immediately", "suspended", "verify", "password",
		"confirm", "expire", "invoice", "payment", "click here",
		"act now", "account locked",
	}
	p.Heuristics.ShortenerDomains = []string{
		"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly",
		"is.gd", "lnkd.in", "buff.ly", "rebrand.ly",
	}
	p.Heuristics.MaxHostLabels = 3
	p.Heuristics.MaxURLLength = 200

	p.Redirects.MaxHops = 10

	p.Intel.RatePerMinute = 30
	p.Intel.Burst = 10
	p.Intel.MaliciousEngines = 2
	p.Intel.SuspiciousEngines = 2
	p.Intel.BlocklistFloor = 80
	p.Intel.MaliciousFloor = 75
	p.Intel.SuspiciousFloor = 50

	p.SSL.InvalidFloor = 60

	p.Breach.DomainScore = 40
	p.Breach.CredentialScore = 50

	return p
}

// Load reads a YAML policy file over the defaults, so partial files only
// override the keys they name.
func Load(path string) (*Policy, error) {
	p := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks field ranges and the cross-field constraints the struct
// tags cannot express.
func (p *Policy) Validate() error {
	if err := policyValidate.Struct(p); err != nil {
		return fmt.Errorf("policy validation: %w", err)
	}
	if p.SignalTimeout <= 0 {
		return fmt.Errorf("policy validation: signal_timeout must be positive")
	}
	if p.Cache.LongTTL <= 0 || p.Cache.ShortTTL <= 0 || p.Cache.SnapshotTTL <= 0 {
		return fmt.Errorf("policy validation: cache TTLs must be positive")
	}
	if p.Tiers.DangerAt <= p.Tiers.CautionAt {
		return fmt.Errorf("policy validation: danger threshold %d must exceed caution threshold %d",
			p.Tiers.DangerAt, p.Tiers.CautionAt)
	}
	for i, row := range p.Classifier.WeightTable {
		for _, trust := range row.Trusts {
			if _, err := valueobject.DomainTrustFromString(trust); err != nil {
				return fmt.Errorf("policy validation: weight table row %d: %w", i, err)
			}
		}
	}
	return nil
}
