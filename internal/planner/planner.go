// Package planner turns an investigation depth tier into the ordered list of
// (provider, query type) pairs a scan executes. It performs no I/O.
package planner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nexconsult/investigacao-api/internal/models"
)

// ErrUnknownDepth is returned for a tier missing from the depth map
var ErrUnknownDepth = errors.New("unknown depth tier")

// ProviderPriority places a provider inside a tier. Lower priorities win a
// query type; equal priorities keep declaration order.
type ProviderPriority struct {
	Provider models.ProviderID `yaml:"provider" json:"provider"`
	Priority int               `yaml:"priority" json:"priority"`
}

// TierPlan lists the providers and the query types allowed at one tier
type TierPlan struct {
	Providers  []ProviderPriority `yaml:"providers" json:"providers"`
	QueryTypes []models.QueryType `yaml:"query_types" json:"query_types"`
}

// allows reports whether qt is in the tier's allowed set
func (t TierPlan) allows(qt models.QueryType) bool {
	for _, allowed := range t.QueryTypes {
		if allowed == qt {
			return true
		}
	}
	return false
}

// ordered returns the providers sorted by priority. The sort is stable so
// declaration order breaks ties.
func (t TierPlan) ordered() []ProviderPriority {
	out := make([]ProviderPriority, len(t.Providers))
	copy(out, t.Providers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// DepthProviderMap is the static tier configuration
type DepthProviderMap map[models.DepthTier]TierPlan

// Catalogue maps each known provider to the query types it answers, in the
// provider's declared order
type Catalogue map[models.ProviderID][]models.QueryType

// PlannedQuery is one entry of a scan plan
type PlannedQuery struct {
	Provider  models.ProviderID `json:"provider"`
	QueryType models.QueryType  `json:"query_type"`
}

func (q PlannedQuery) String() string {
	return string(q.Provider) + "/" + string(q.QueryType)
}

// Validate checks that every tier query type is known and answerable by at
// least one of the tier's providers present in the catalogue
func (m DepthProviderMap) Validate(catalogue Catalogue) error {
	var errs []error
	for _, tier := range sortedTiers(m) {
		plan := m[tier]
		if len(plan.QueryTypes) == 0 {
			errs = append(errs, fmt.Errorf("tier %s: no query types", tier))
		}
		for _, qt := range plan.QueryTypes {
			if !qt.Valid() {
				errs = append(errs, fmt.Errorf("tier %s: unknown query type %s", tier, qt))
				continue
			}
			if !answerable(plan, catalogue, qt) {
				errs = append(errs, fmt.Errorf("tier %s: query type %s is not answered by any listed provider", tier, qt))
			}
		}
	}
	return errors.Join(errs...)
}

func answerable(plan TierPlan, catalogue Catalogue, qt models.QueryType) bool {
	for _, pp := range plan.Providers {
		for _, declared := range catalogue[pp.Provider] {
			if declared == qt {
				return true
			}
		}
	}
	return false
}

func sortedTiers(m DepthProviderMap) []models.DepthTier {
	tiers := make([]models.DepthTier, 0, len(m))
	for tier := range m {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
	return tiers
}

// Planner computes scan plans against a fixed catalogue
type Planner struct {
	depths    DepthProviderMap
	catalogue Catalogue
}

// New validates depths against catalogue and returns a planner
func New(depths DepthProviderMap, catalogue Catalogue) (*Planner, error) {
	if err := depths.Validate(catalogue); err != nil {
		return nil, fmt.Errorf("invalid depth map: %w", err)
	}
	return &Planner{depths: depths, catalogue: catalogue}, nil
}

// Plan returns the deduplicated (provider, query type) pairs for a tier and
// target type. Pairs are ordered by provider priority, then by the provider's
// declared query-type order. A query type is assigned to the first provider
// that answers it, except multi-source types which every answering provider
// receives. Providers missing from the catalogue are skipped.
func (p *Planner) Plan(tier models.DepthTier, targetType models.TargetType) ([]PlannedQuery, error) {
	plan, ok := p.depths[tier]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDepth, tier)
	}

	assigned := make(map[models.QueryType]bool)
	seen := make(map[PlannedQuery]bool)
	out := []PlannedQuery{}

	for _, pp := range plan.ordered() {
		declared, known := p.catalogue[pp.Provider]
		if !known {
			continue
		}
		for _, qt := range declared {
			if !plan.allows(qt) || !qt.AppliesTo(targetType) {
				continue
			}
			if assigned[qt] && !qt.IsMultiSource() {
				continue
			}
			entry := PlannedQuery{Provider: pp.Provider, QueryType: qt}
			if seen[entry] {
				continue
			}
			seen[entry] = true
			assigned[qt] = true
			out = append(out, entry)
		}
	}
	return out, nil
}

// Tiers returns the configured tiers in a stable order
func (p *Planner) Tiers() []models.DepthTier {
	return sortedTiers(p.depths)
}

// Tier returns the configuration of one tier
func (p *Planner) Tier(tier models.DepthTier) (TierPlan, bool) {
	plan, ok := p.depths[tier]
	return plan, ok
}
