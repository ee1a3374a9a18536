package readiness

import (
	"sort"
	"time"
)

// FactorLabel identifies one of the four tracked signal categories
type FactorLabel string

const (
	FactorAcademic             FactorLabel = "academic"
	FactorResumeQuality        FactorLabel = "resume_quality"
	FactorInterviewPerformance FactorLabel = "interview_performance"
	FactorAttendance           FactorLabel = "attendance"
)

// CanonicalOrder is the fixed declaration order of the four factors. It is
// the tie-break for ranking, never the arrival order of provider responses.
var CanonicalOrder = [4]FactorLabel{
	FactorAcademic,
	FactorResumeQuality,
	FactorInterviewPerformance,
	FactorAttendance,
}

// factorWeights are fixed fractions summing to 1.0. There is no dynamic
// renormalization; all four weights are always present.
var factorWeights = map[FactorLabel]float64{
	FactorAcademic:             0.30,
	FactorResumeQuality:        0.25,
	FactorInterviewPerformance: 0.25,
	FactorAttendance:           0.20,
}

// Weight returns the fixed weight for a factor label
func Weight(label FactorLabel) float64 {
	return factorWeights[label]
}

// canonicalIndex returns the position of a label in CanonicalOrder
func canonicalIndex(label FactorLabel) int {
	for i, l := range CanonicalOrder {
		if l == label {
			return i
		}
	}
	return len(CanonicalOrder)
}

// ContributingFactor is one tracked signal with its weighted impact
type ContributingFactor struct {
	Label  FactorLabel `json:"label"`
	Weight float64     `json:"weight"`
	Score  float64     `json:"score"`
	Impact float64     `json:"impact"`
	Detail string      `json:"detail"`
}

// NewFactor builds a factor with its impact derived from score and weight.
// Impact is never stored independently; it is recomputed here whenever score
// or weight changes.
func NewFactor(label FactorLabel, score float64, detail string) ContributingFactor {
	weight := factorWeights[label]
	return ContributingFactor{
		Label:  label,
		Weight: weight,
		Score:  score,
		Impact: score * weight,
		Detail: detail,
	}
}

// WithScore returns a copy of the factor with a new score and recomputed impact
func (f ContributingFactor) WithScore(score float64) ContributingFactor {
	f.Score = score
	f.Impact = score * f.Weight
	return f
}

// ReadinessProfile is the per-subject composite result, upserted on every
// compute (create-or-replace, not append-only)
type ReadinessProfile struct {
	SubjectID  string               `json:"subject_id"`
	Composite  int                  `json:"composite"`
	Factors    []ContributingFactor `json:"factors"`
	ComputedAt time.Time            `json:"computed_at"`
}

// Factor returns the named factor from the profile
func (p *ReadinessProfile) Factor(label FactorLabel) (ContributingFactor, bool) {
	for _, f := range p.Factors {
		if f.Label == label {
			return f, true
		}
	}
	return ContributingFactor{}, false
}

// TopFactors ranks factors by impact descending, ties broken by the canonical
// order. The input is first arranged canonically so the stable sort can never
// leak arrival order.
func TopFactors(factors []ContributingFactor, k int) []ContributingFactor {
	ranked := make([]ContributingFactor, len(factors))
	copy(ranked, factors)

	sort.SliceStable(ranked, func(i, j int) bool {
		return canonicalIndex(ranked[i].Label) < canonicalIndex(ranked[j].Label)
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Impact > ranked[j].Impact
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}

// clamp bounds v to [lo, hi]
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
