package criteria

import (
	"sort"

	"github.com/yungbote/triage-backend/internal/domain/triage"
)

// Weights is an immutable snapshot of reviewer preference factors taken once
// per request. Unknown criteria weigh DefaultFactor.
type Weights struct {
	factors map[string]int
}

func NewWeights(prefs []triage.CriteriaPreference) Weights {
	factors := make(map[string]int, len(prefs))
	for _, p := range prefs {
		factors[p.Criterion] = ClampFactor(p.Factor)
	}
	return Weights{factors: factors}
}

func (w Weights) Factor(criterion string) int {
	if f, ok := w.factors[criterion]; ok {
		return f
	}
	return triage.DefaultFactor
}

func ClampFactor(f int) int {
	switch {
	case f < triage.MinFactor:
		return triage.MinFactor
	case f > triage.MaxFactor:
		return triage.MaxFactor
	}
	return f
}

// Preference is one catalog entry merged with its stored factor.
type Preference struct {
	Criterion
	Factor int `json:"factor"`
}

// Merge lists every catalog criterion in catalog order with its effective factor,
// followed by stored preferences for criteria the catalog does not know.
func Merge(cat *Catalog, w Weights) []Preference {
	out := make([]Preference, 0, len(cat.Criteria))
	for _, cr := range cat.Criteria {
		out = append(out, Preference{Criterion: cr, Factor: w.Factor(cr.Name)})
	}
	var extra []string
	for name := range w.factors {
		if !cat.Has(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, Preference{Criterion: Criterion{Name: name}, Factor: w.factors[name]})
	}
	return out
}
