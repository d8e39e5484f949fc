package policy

import (
	"fmt"
	"time"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/port"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/service"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

// Snapshot is a compiled, immutable view of one policy revision. The domain
// services inside are built once per load, so request handling never pays
// for validation or table parsing. Callers must treat a snapshot as
// read-only; reloads swap in a fresh one.
type Snapshot struct {
	Policy *Policy

	Heuristics *service.HeuristicAnalyzer
	Consensus  *service.ConsensusEngine
	Aggregator *service.RiskAggregator

	SignalTimeout time.Duration

	ttls map[port.CacheClass]time.Duration
}

// TTLFor returns the freshness window for a cache class. Unknown classes
// get the short TTL, the most conservative choice.
func (s *Snapshot) TTLFor(class port.CacheClass) time.Duration {
	if ttl, ok := s.ttls[class]; ok {
		return ttl
	}
	return s.ttls[port.CacheShort]
}

// Compile builds the domain services a policy describes. It is the second
// validation gate: Validate checks field ranges, Compile catches structural
// problems such as a weight table that leaves a trust level uncovered.
func Compile(p *Policy) (*Snapshot, error) {
	rules, err := weightRules(p.Classifier.WeightTable)
	if err != nil {
		return nil, err
	}

	consensus, err := service.NewConsensusEngine(service.ConsensusConfig{
		AllowedDomains:  p.AllowList,
		Rules:           rules,
		ClassifierScale: p.Classifier.Scale,
	})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}

	heuristics := service.NewHeuristicAnalyzer(service.HeuristicRules{
		SuspiciousTLDs:   p.Heuristics.SuspiciousTLDs,
		PhishingKeywords: p.Heuristics.PhishingKeywords,
		UrgencyKeywords:  p.Heuristics.UrgencyKeywords,
		ShortenerDomains: p.Heuristics.ShortenerDomains,
		MaxHostLabels:    p.Heuristics.MaxHostLabels,
		MaxURLLength:     p.Heuristics.MaxURLLength,
	})

	aggregator := service.NewRiskAggregator(service.AggregationPolicy{
		CautionThreshold:      p.Tiers.CautionAt,
		DangerThreshold:       p.Tiers.DangerAt,
		DangerSuppressBelow:   p.Floors.DangerSuppressBelow,
		DangerSecondaryFloor:  p.Floors.DangerSecondary,
		CautionSuppressBelow:  p.Floors.CautionSuppressBelow,
		CautionSecondaryFloor: p.Floors.CautionSecondary,
	})

	return &Snapshot{
		Policy:        p,
		Heuristics:    heuristics,
		Consensus:     consensus,
		Aggregator:    aggregator,
		SignalTimeout: p.SignalTimeout.Std(),
		ttls: map[port.CacheClass]time.Duration{
			port.CacheLong:     p.Cache.LongTTL.Std(),
			port.CacheShort:    p.Cache.ShortTTL.Std(),
			port.CacheSnapshot: p.Cache.SnapshotTTL.Std(),
		},
	}, nil
}

func weightRules(rows []WeightRow) ([]service.WeightRule, error) {
	rules := make([]service.WeightRule, 0, len(rows))
	for i, row := range rows {
		trusts := make([]valueobject.DomainTrust, 0, len(row.Trusts))
		for _, s := range row.Trusts {
			trust, err := valueobject.DomainTrustFromString(s)
			if err != nil {
				return nil, fmt.Errorf("compile policy: weight table row %d: %w", i, err)
			}
			trusts = append(trusts, trust)
		}
		rules = append(rules, service.WeightRule{
			Trusts:           trusts,
			MinConsensus:     row.MinConsensus,
			MatchesUndefined: row.MatchesUndefined,
			Weight:           row.Weight,
		})
	}
	return rules, nil
}
