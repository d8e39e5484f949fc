package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

// ConsensusContext captures what the non-classifier signals collectively say
// about a target before the classifier's opinion is priced in.
type ConsensusContext struct {
	DomainTrust valueobject.DomainTrust

	// ExternalConsensus is the fraction of Ok signals that found nothing,
	// in [0, 1]. Only meaningful when ConsensusDefined is true.
	ExternalConsensus float64

	// ConsensusDefined is false when zero signals produced a usable
	// result. Absence of signals is not agreement.
	ConsensusDefined bool

	// OkSignals counts the results that entered the consensus.
	OkSignals int
}

// WeightRule is one row of the classifier weight table. Rows are evaluated in
// order and the first row whose trust set and consensus range match wins, so
// the table reads as a staircase from most corroborated to least.
type WeightRule struct {
	Trusts           []valueobject.DomainTrust
	MinConsensus     float64
	MatchesUndefined bool
	Weight           float64
}

func (r WeightRule) appliesTo(trust valueobject.DomainTrust) bool {
	for _, t := range r.Trusts {
		if t.Equal(trust) {
			return true
		}
	}
	return false
}

// DefaultWeightRules returns the built-in weight staircase:
//
//	KnownSafe, any consensus          -> 0.05
//	Unknown, consensus >= 0.8         -> 0.10
//	Unknown, consensus >= 0.4         -> 0.30
//	Unknown or KnownRisky, otherwise  -> 0.50
//
// The last row is the regression guard: a confident classifier with every
// external signal absent must still land at full weight, never be zeroed.
func DefaultWeightRules() []WeightRule {
	return []WeightRule{
		{Trusts: []valueobject.DomainTrust{valueobject.TrustKnownSafe}, MinConsensus: 0, MatchesUndefined: true, Weight: 0.05},
		{Trusts: []valueobject.DomainTrust{valueobject.TrustUnknown}, MinConsensus: 0.8, Weight: 0.10},
		{Trusts: []valueobject.DomainTrust{valueobject.TrustUnknown}, MinConsensus: 0.4, Weight: 0.30},
		{Trusts: []valueobject.DomainTrust{valueobject.TrustUnknown, valueobject.TrustKnownRisky}, MinConsensus: 0, MatchesUndefined: true, Weight: 0.50},
	}
}

// ConsensusConfig parameterizes the consensus engine.
type ConsensusConfig struct {
	// AllowedDomains lists registrable domains considered KnownSafe. The
	// list is fixed at construction; user feedback never mutates it.
	AllowedDomains []string

	// Rules is the classifier weight table. Empty means the defaults.
	Rules []WeightRule

	// ClassifierScale is the maximum number of points the classifier can
	// contribute at weight 1.0. Zero means the default of 70.
	ClassifierScale int
}

// ConsensusEngine derives domain trust and external consensus from signal
// results and prices the classifier's influence with a declarative rule
// table. The table is data, not branching logic, so operators can read and
// retune the staircase without touching code.
type ConsensusEngine struct {
	allowed map[string]bool
	rules   []WeightRule
	scale   float64
}

// NewConsensusEngine validates the weight table and builds the engine. The
// table must cover every trust level for both defined and undefined
// consensus; a partial table would silently zero the classifier.
func NewConsensusEngine(cfg ConsensusConfig) (*ConsensusEngine, error) {
	rules := cfg.Rules
	if len(rules) == 0 {
		rules = DefaultWeightRules()
	}
	scale := cfg.ClassifierScale
	if scale == 0 {
		scale = 70
	}
	if scale < 0 || scale > 100 {
		return nil, fmt.Errorf("classifier scale must be in [0, 100], got %d", scale)
	}

	for i, rule := range rules {
		if len(rule.Trusts) == 0 {
			return nil, fmt.Errorf("weight rule %d matches no trust level", i)
		}
		if rule.Weight < 0 || rule.Weight > 1 {
			return nil, fmt.Errorf("weight rule %d has weight %v outside [0, 1]", i, rule.Weight)
		}
		if rule.MinConsensus < 0 || rule.MinConsensus > 1 {
			return nil, fmt.Errorf("weight rule %d has min consensus %v outside [0, 1]", i, rule.MinConsensus)
		}
	}

	trusts := []valueobject.DomainTrust{
		valueobject.TrustKnownSafe,
		valueobject.TrustUnknown,
		valueobject.TrustKnownRisky,
	}
	for _, trust := range trusts {
		bottom, undefined := false, false
		for _, rule := range rules {
			if !rule.appliesTo(trust) {
				continue
			}
			if rule.MinConsensus == 0 {
				bottom = true
			}
			if rule.MatchesUndefined {
				undefined = true
			}
		}
		if !bottom || !undefined {
			return nil, fmt.Errorf("weight table does not cover trust level %s", trust)
		}
	}

	allowed := make(map[string]bool, len(cfg.AllowedDomains))
	for _, d := range cfg.AllowedDomains {
		allowed[strings.ToLower(d)] = true
	}

	return &ConsensusEngine{allowed: allowed, rules: rules, scale: float64(scale)}, nil
}

// BuildContext derives the consensus context from the non-classifier signal
// results. Unavailable and Error results are excluded entirely: a signal that
// said nothing neither agrees nor disagrees.
func (e *ConsensusEngine) BuildContext(target valueobject.Target, results []valueobject.SignalResult) ConsensusContext {
	trust := valueobject.TrustUnknown
	if e.allowed[strings.ToLower(target.RegistrableDomain())] {
		trust = valueobject.TrustKnownSafe
	} else {
		for _, r := range results {
			if r.IsOk() && r.Verdict.IsMalicious() {
				trust = valueobject.TrustKnownRisky
				break
			}
		}
	}

	ok, clean := 0, 0
	for _, r := range results {
		if !r.IsOk() {
			continue
		}
		ok++
		if !r.HasFinding() {
			clean++
		}
	}

	cctx := ConsensusContext{DomainTrust: trust, OkSignals: ok}
	if ok > 0 {
		cctx.ExternalConsensus = float64(clean) / float64(ok)
		cctx.ConsensusDefined = true
	}
	return cctx
}

// ClassifierWeight resolves the weight for the given context from the rule
// table. The construction-time coverage check guarantees a match exists.
func (e *ConsensusEngine) ClassifierWeight(cctx ConsensusContext) float64 {
	for _, rule := range e.rules {
		if !rule.appliesTo(cctx.DomainTrust) {
			continue
		}
		if !cctx.ConsensusDefined {
			if rule.MatchesUndefined {
				return rule.Weight
			}
			continue
		}
		if cctx.ExternalConsensus >= rule.MinConsensus {
			return rule.Weight
		}
	}
	return e.rules[len(e.rules)-1].Weight
}

// ClassifierContribution converts a probability and a resolved weight into
// score points: round(p * scale * weight).
func (e *ConsensusEngine) ClassifierContribution(probability, weight float64) int {
	return int(math.Round(probability * e.scale * weight))
}
