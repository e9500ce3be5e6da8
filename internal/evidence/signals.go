package evidence

// DesirabilitySignal is the automated assessment of customer demand at one
// iteration. no_signal is the neutral value and never yields an evidence item.
type DesirabilitySignal string

const (
	DesirabilityNoSignal         DesirabilitySignal = "no_signal"
	DesirabilityNoInterest       DesirabilitySignal = "no_interest"
	DesirabilityWeakInterest     DesirabilitySignal = "weak_interest"
	DesirabilityStrongCommitment DesirabilitySignal = "strong_commitment"
)

// FeasibilitySignal is the automated assessment of buildability.
type FeasibilitySignal string

const (
	FeasibilityNoSignal          FeasibilitySignal = "no_signal"
	FeasibilityUnknown           FeasibilitySignal = "unknown"
	FeasibilityBuildableWithRisk FeasibilitySignal = "buildable_with_risk"
	FeasibilityProvenBuildable   FeasibilitySignal = "proven_buildable"
)

// ViabilitySignal is the automated assessment of business viability.
type ViabilitySignal string

const (
	ViabilityNoSignal     ViabilitySignal = "no_signal"
	ViabilityZombieMarket ViabilitySignal = "zombie_market"
	ViabilityMarginal     ViabilitySignal = "marginal"
	ViabilitySustainable  ViabilitySignal = "sustainable"
	ViabilityFundable     ViabilitySignal = "fundable"
)

// DesirabilitySignals, FeasibilitySignals and ViabilitySignals enumerate every
// declared value of each dimension's signal enum, neutral included. The
// strength and trend tables below must stay total over these slices; the
// exhaustiveness tests walk them.
var (
	DesirabilitySignals = []DesirabilitySignal{
		DesirabilityNoSignal, DesirabilityNoInterest, DesirabilityWeakInterest, DesirabilityStrongCommitment,
	}
	FeasibilitySignals = []FeasibilitySignal{
		FeasibilityNoSignal, FeasibilityUnknown, FeasibilityBuildableWithRisk, FeasibilityProvenBuildable,
	}
	ViabilitySignals = []ViabilitySignal{
		ViabilityNoSignal, ViabilityZombieMarket, ViabilityMarginal, ViabilitySustainable, ViabilityFundable,
	}
)

// Signal→strength tables. These encode domain judgment and materially change
// gate outcomes; change them deliberately, never derive them. Neutral values
// map to weak so the tables stay total, but neutral signals never emit items
// in the first place.
var desirabilityStrength = map[DesirabilitySignal]Strength{
	DesirabilityNoSignal:         StrengthWeak,
	DesirabilityNoInterest:       StrengthWeak,
	DesirabilityWeakInterest:     StrengthMedium,
	DesirabilityStrongCommitment: StrengthStrong,
}

var feasibilityStrength = map[FeasibilitySignal]Strength{
	FeasibilityNoSignal:          StrengthWeak,
	FeasibilityUnknown:           StrengthWeak,
	FeasibilityBuildableWithRisk: StrengthMedium,
	FeasibilityProvenBuildable:   StrengthStrong,
}

var viabilityStrength = map[ViabilitySignal]Strength{
	ViabilityNoSignal:     StrengthWeak,
	ViabilityZombieMarket: StrengthWeak,
	ViabilityMarginal:     StrengthWeak,
	ViabilitySustainable:  StrengthMedium,
	ViabilityFundable:     StrengthStrong,
}

// Trend ordinal tables. Deliberately separate from the strength tables: they
// preserve finer granularity (zombie_market and marginal collapse to the same
// strength bucket but rank differently on a trend chart).
var desirabilityScale = map[DesirabilitySignal]int{
	DesirabilityNoSignal:         0,
	DesirabilityNoInterest:       1,
	DesirabilityWeakInterest:     2,
	DesirabilityStrongCommitment: 3,
}

var feasibilityScale = map[FeasibilitySignal]int{
	FeasibilityNoSignal:          0,
	FeasibilityUnknown:           1,
	FeasibilityBuildableWithRisk: 2,
	FeasibilityProvenBuildable:   3,
}

var viabilityScale = map[ViabilitySignal]int{
	ViabilityNoSignal:     0,
	ViabilityZombieMarket: 1,
	ViabilityMarginal:     2,
	ViabilitySustainable:  3,
	ViabilityFundable:     4,
}

// fitTypeDimension maps the free-form fit_type field of user evidence onto a
// dimension. Unrecognized or absent fit types default to Desirability; the
// fallback is documented behavior, not data loss.
var fitTypeDimension = map[string]Dimension{
	"desirability":  Desirability,
	"problem_fit":   Desirability,
	"demand":        Desirability,
	"feasibility":   Feasibility,
	"technical_fit": Feasibility,
	"viability":     Viability,
	"market_fit":    Viability,
	"business_fit":  Viability,
}

// DimensionForFitType resolves a user evidence fit type to its dimension.
func DimensionForFitType(fitType string) Dimension {
	if d, ok := fitTypeDimension[fitType]; ok {
		return d
	}
	return Desirability
}

// StrengthForDesirability maps a desirability signal to its strength bucket.
func StrengthForDesirability(s DesirabilitySignal) Strength {
	if st, ok := desirabilityStrength[s]; ok {
		return st
	}
	return StrengthWeak
}

// StrengthForFeasibility maps a feasibility signal to its strength bucket.
func StrengthForFeasibility(s FeasibilitySignal) Strength {
	if st, ok := feasibilityStrength[s]; ok {
		return st
	}
	return StrengthWeak
}

// StrengthForViability maps a viability signal to its strength bucket.
func StrengthForViability(s ViabilitySignal) Strength {
	if st, ok := viabilityStrength[s]; ok {
		return st
	}
	return StrengthWeak
}

// ScaleForDesirability projects a desirability signal onto the trend ordinal.
func ScaleForDesirability(s DesirabilitySignal) int { return desirabilityScale[s] }

// ScaleForFeasibility projects a feasibility signal onto the trend ordinal.
func ScaleForFeasibility(s FeasibilitySignal) int { return feasibilityScale[s] }

// ScaleForViability projects a viability signal onto the trend ordinal.
func ScaleForViability(s ViabilitySignal) int { return viabilityScale[s] }
