// Package classify scores geocoded candidates and assigns each to the real
// or fictional/unresolved set with a reason.
package classify

import (
	"fmt"
	"strings"

	"github.com/ppiankov/bookgeo/internal/model"
)

// Reasons attached to records that never got a usable geocode. They are
// distinct so the output tells "the service said no" apart from "the
// service was down".
const (
	ReasonNoMatch      = "no geocode match"
	ReasonServiceError = "geocoding service unavailable"
)

// Policy holds the scoring weights.
type Policy struct {
	// Threshold separates REAL from FICTIONAL_OR_UNRESOLVED.
	Threshold float64

	// BaseScores maps each location type to its starting confidence.
	// Unknown types score zero.
	BaseScores map[model.LocationType]float64

	// MentionBoostStep is added per mention beyond the first, up to
	// MentionBoostCap. The cap keeps a heavily repeated fictional name from
	// crossing the threshold on volume alone.
	MentionBoostStep float64
	MentionBoostCap  float64

	// NameMismatchPenalty is subtracted when the candidate name does not
	// appear in the geocoded address, guarding against plausible-looking
	// but unrelated matches.
	NameMismatchPenalty float64
}

// DefaultPolicy returns the standard weights.
func DefaultPolicy() Policy {
	return Policy{
		Threshold: 0.5,
		BaseScores: map[model.LocationType]float64{
			model.LocationRooftop:           1.0,
			model.LocationRangeInterpolated: 0.75,
			model.LocationGeometricCenter:   0.5,
			model.LocationApproximate:       0.25,
		},
		MentionBoostStep:    0.03,
		MentionBoostCap:     0.15,
		NameMismatchPenalty: 0.2,
	}
}

// PolicyFromConfig merges configured weights over the defaults. Zero values
// keep the default, so a partially filled config works.
func PolicyFromConfig(cfg model.ClassifyConfig) Policy {
	p := DefaultPolicy()
	if cfg.Threshold > 0 {
		p.Threshold = cfg.Threshold
	}
	for name, score := range cfg.BaseScores {
		p.BaseScores[model.LocationType(name)] = score
	}
	if cfg.MentionBoostStep > 0 {
		p.MentionBoostStep = cfg.MentionBoostStep
	}
	if cfg.MentionBoostCap > 0 {
		p.MentionBoostCap = cfg.MentionBoostCap
	}
	if cfg.NameMismatchPenalty > 0 {
		p.NameMismatchPenalty = cfg.NameMismatchPenalty
	}
	return p
}

// Classifier scores candidates against geocode results. Classify is pure:
// the same inputs always produce the same verdict.
type Classifier struct {
	policy Policy
}

// New creates a Classifier with the given policy.
func New(policy Policy) *Classifier {
	return &Classifier{policy: policy}
}

// Classify scores one candidate. The confidence is always in [0, 1].
func (c *Classifier) Classify(cand model.PlaceCandidate, geo model.GeocodeResult) (float64, model.Classification, string) {
	if !geo.Resolved() {
		if geo.ServiceError {
			return 0, model.ClassFictionalOrUnresolved, ReasonServiceError
		}
		return 0, model.ClassFictionalOrUnresolved, ReasonNoMatch
	}

	base := c.policy.BaseScores[geo.LocationType]

	boost := c.policy.MentionBoostStep * float64(cand.MentionCount-1)
	if boost > c.policy.MentionBoostCap {
		boost = c.policy.MentionBoostCap
	}
	if boost < 0 {
		boost = 0
	}

	score := base + boost
	mismatch := !containsFold(geo.FormattedAddress, cand.NormalizedName)
	if mismatch {
		score -= c.policy.NameMismatchPenalty
	}
	score = clamp(score)

	if score >= c.policy.Threshold {
		return score, model.ClassReal, fmt.Sprintf("geocoded (%s)", geo.LocationType)
	}

	// Name the factor that kept the candidate under the threshold: the
	// penalty dominated only if the score would have passed without it.
	if mismatch && base+boost >= c.policy.Threshold {
		return score, model.ClassFictionalOrUnresolved, "name mismatch with geocoded address"
	}
	return score, model.ClassFictionalOrUnresolved, fmt.Sprintf("low geocoding precision (%s)", geo.LocationType)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}
