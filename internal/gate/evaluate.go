package gate

import (
	"sort"

	"github.com/foundline/crucible/internal/evidence"
	"github.com/foundline/crucible/internal/policy"
)

// Stable machine-readable reason tags. The UI and the tests key off these;
// renaming one is a breaking change.
const (
	ReasonInsufficientExperiments    = "insufficient_experiments"
	ReasonInsufficientWeakEvidence   = "insufficient_weak_evidence"
	ReasonInsufficientMediumEvidence = "insufficient_medium_evidence"
	ReasonInsufficientStrongEvidence = "insufficient_strong_evidence"
	ReasonMetricBelowThresholdPrefix = "metric_below_threshold:"
	ReasonUnverifiedMetricPrefix     = "unverified_metric:"
)

// Decision is the outcome of evaluating one gate.
type Decision struct {
	Pass          bool     `json:"pass"`
	NeedsApproval bool     `json:"needs_approval"`
	Reasons       []string `json:"reasons"`
}

// Evaluate decides pass/fail for a gate. Pure and total: it never errors, an
// empty evidence set simply fails with the corresponding reasons.
//
// Criteria, each independent:
//   - distinct evidence sources >= MinExperiments
//   - per-strength item counts within the required dimensions, each >= its
//     minimum
//   - every threshold key with a same-named supplied metric requires
//     metric >= threshold; keys with no supplied metric are recorded as
//     unverified but never fail the gate
//
// Pass is the conjunction of the evaluated criteria. NeedsApproval mirrors
// the policy flag and is independent of Pass: a gate can demand a human even
// when every automatic criterion holds.
func Evaluate(items []evidence.UnifiedItem, pol policy.GatePolicy, metrics map[string]float64) Decision {
	required := make(map[evidence.Dimension]bool, len(pol.RequiredFitTypes))
	for _, d := range pol.RequiredFitTypes {
		required[d] = true
	}

	sources := make(map[string]bool)
	counts := map[evidence.Strength]int{}
	for _, it := range items {
		if !required[it.Dimension] {
			continue
		}
		sources[it.SourceKey()] = true
		counts[it.Strength]++
	}

	var reasons []string
	if len(sources) < pol.MinExperiments {
		reasons = append(reasons, ReasonInsufficientExperiments)
	}
	if counts[evidence.StrengthWeak] < pol.MinWeakEvidence {
		reasons = append(reasons, ReasonInsufficientWeakEvidence)
	}
	if counts[evidence.StrengthMedium] < pol.MinMediumEvidence {
		reasons = append(reasons, ReasonInsufficientMediumEvidence)
	}
	if counts[evidence.StrengthStrong] < pol.MinStrongEvidence {
		reasons = append(reasons, ReasonInsufficientStrongEvidence)
	}

	pass := len(reasons) == 0

	// Threshold keys in sorted order so reasons are deterministic.
	keys := make([]string, 0, len(pol.Thresholds))
	for k := range pol.Thresholds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value, supplied := metrics[key]
		if !supplied {
			// Forward-compatible: an unrecognized threshold key is never a
			// hard failure, but the caller should know it went unchecked.
			reasons = append(reasons, ReasonUnverifiedMetricPrefix+key)
			continue
		}
		if value < pol.Thresholds[key] {
			reasons = append(reasons, ReasonMetricBelowThresholdPrefix+key)
			pass = false
		}
	}

	return Decision{
		Pass:          pass,
		NeedsApproval: pol.RequiresApproval,
		Reasons:       reasons,
	}
}
