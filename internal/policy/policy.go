package policy

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/foundline/crucible/internal/evidence"
)

// GatePolicy is the effective, fully resolved policy for one gate. Every
// field is populated; IsCustom reports whether any override contributed.
type GatePolicy struct {
	ID                uuid.UUID            `json:"id,omitempty"`
	Gate              evidence.Dimension   `json:"gate"`
	IsCustom          bool                 `json:"is_custom"`
	MinExperiments    int                  `json:"min_experiments"`
	RequiredFitTypes  []evidence.Dimension `json:"required_fit_types"`
	MinWeakEvidence   int                  `json:"min_weak_evidence"`
	MinMediumEvidence int                  `json:"min_medium_evidence"`
	MinStrongEvidence int                  `json:"min_strong_evidence"`
	Thresholds        map[string]float64   `json:"thresholds"`
	OverrideRoles     []string             `json:"override_roles"`
	RequiresApproval  bool                 `json:"requires_approval"`
}

// Override is a stored per-gate customization. Nil fields inherit the
// default individually; an override may customize a single field.
type Override struct {
	ID                uuid.UUID            `json:"id"`
	Gate              evidence.Dimension   `json:"gate"`
	MinExperiments    *int                 `json:"min_experiments,omitempty"`
	RequiredFitTypes  []evidence.Dimension `json:"required_fit_types,omitempty"`
	MinWeakEvidence   *int                 `json:"min_weak_evidence,omitempty"`
	MinMediumEvidence *int                 `json:"min_medium_evidence,omitempty"`
	MinStrongEvidence *int                 `json:"min_strong_evidence,omitempty"`
	Thresholds        map[string]float64   `json:"thresholds,omitempty"`
	OverrideRoles     []string             `json:"override_roles,omitempty"`
	RequiresApproval  *bool                `json:"requires_approval,omitempty"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// Update is the partial write shape accepted by the policy surface. It shares
// Override's field semantics minus identity.
type Update struct {
	MinExperiments    *int                 `json:"min_experiments,omitempty"`
	RequiredFitTypes  []evidence.Dimension `json:"required_fit_types,omitempty"`
	MinWeakEvidence   *int                 `json:"min_weak_evidence,omitempty"`
	MinMediumEvidence *int                 `json:"min_medium_evidence,omitempty"`
	MinStrongEvidence *int                 `json:"min_strong_evidence,omitempty"`
	Thresholds        map[string]float64   `json:"thresholds,omitempty"`
	OverrideRoles     []string             `json:"override_roles,omitempty"`
	RequiresApproval  *bool                `json:"requires_approval,omitempty"`
}

// Defaults returns the hard-coded policy for a gate. Absence of an override
// row means "use these", never "policy missing".
func Defaults(gate evidence.Dimension) GatePolicy {
	switch gate {
	case evidence.Feasibility:
		return GatePolicy{
			Gate:              evidence.Feasibility,
			MinExperiments:    2,
			RequiredFitTypes:  []evidence.Dimension{evidence.Feasibility},
			MinWeakEvidence:   0,
			MinMediumEvidence: 1,
			MinStrongEvidence: 1,
			Thresholds: map[string]float64{
				"prototype_success_rate": 0.6,
			},
			OverrideRoles:    []string{"founder", "lead_reviewer"},
			RequiresApproval: false,
		}
	case evidence.Viability:
		return GatePolicy{
			Gate:              evidence.Viability,
			MinExperiments:    2,
			RequiredFitTypes:  []evidence.Dimension{evidence.Viability},
			MinWeakEvidence:   0,
			MinMediumEvidence: 2,
			MinStrongEvidence: 1,
			Thresholds: map[string]float64{
				"ltv_cac_ratio": 3.0,
				"gross_margin":  0.4,
			},
			OverrideRoles:    []string{"founder"},
			RequiresApproval: true,
		}
	default: // Desirability
		return GatePolicy{
			Gate:              evidence.Desirability,
			MinExperiments:    3,
			RequiredFitTypes:  []evidence.Dimension{evidence.Desirability},
			MinWeakEvidence:   0,
			MinMediumEvidence: 2,
			MinStrongEvidence: 1,
			Thresholds: map[string]float64{
				"interview_count":  10,
				"problem_severity": 7,
			},
			OverrideRoles:    []string{"founder", "lead_reviewer"},
			RequiresApproval: false,
		}
	}
}

// ResolveEffective merges an override over the gate's defaults, field by
// field. A nil override yields the defaults with IsCustom=false.
func ResolveEffective(gate evidence.Dimension, ov *Override) GatePolicy {
	p := Defaults(gate)
	if ov == nil {
		return p
	}
	p.ID = ov.ID
	p.IsCustom = true
	if ov.MinExperiments != nil {
		p.MinExperiments = *ov.MinExperiments
	}
	if len(ov.RequiredFitTypes) > 0 {
		p.RequiredFitTypes = ov.RequiredFitTypes
	}
	if ov.MinWeakEvidence != nil {
		p.MinWeakEvidence = *ov.MinWeakEvidence
	}
	if ov.MinMediumEvidence != nil {
		p.MinMediumEvidence = *ov.MinMediumEvidence
	}
	if ov.MinStrongEvidence != nil {
		p.MinStrongEvidence = *ov.MinStrongEvidence
	}
	if ov.Thresholds != nil {
		p.Thresholds = ov.Thresholds
	}
	if ov.OverrideRoles != nil {
		p.OverrideRoles = ov.OverrideRoles
	}
	if ov.RequiresApproval != nil {
		p.RequiresApproval = *ov.RequiresApproval
	}
	return p
}

// Declared bounds for policy fields. Out-of-bounds writes are rejected, never
// clamped; surfacing the rejection is the caller's concern.
const (
	MinExperimentsFloor = 1
	MinExperimentsCeil  = 10
	MinEvidenceFloor    = 0
	MinEvidenceCeil     = 10
)

// ValidateUpdate checks a partial update against the declared bounds.
func ValidateUpdate(u *Update) error {
	if u == nil {
		return fmt.Errorf("empty policy update")
	}
	if u.MinExperiments != nil && (*u.MinExperiments < MinExperimentsFloor || *u.MinExperiments > MinExperimentsCeil) {
		return fmt.Errorf("min_experiments must be between %d and %d", MinExperimentsFloor, MinExperimentsCeil)
	}
	for name, v := range map[string]*int{
		"min_weak_evidence":   u.MinWeakEvidence,
		"min_medium_evidence": u.MinMediumEvidence,
		"min_strong_evidence": u.MinStrongEvidence,
	} {
		if v != nil && (*v < MinEvidenceFloor || *v > MinEvidenceCeil) {
			return fmt.Errorf("%s must be between %d and %d", name, MinEvidenceFloor, MinEvidenceCeil)
		}
	}
	if u.RequiredFitTypes != nil {
		if len(u.RequiredFitTypes) == 0 {
			return fmt.Errorf("required_fit_types must not be empty")
		}
		for _, d := range u.RequiredFitTypes {
			if !d.Valid() {
				return fmt.Errorf("invalid fit type: %s", d)
			}
		}
	}
	for key, v := range u.Thresholds {
		if key == "" {
			return fmt.Errorf("threshold keys must not be empty")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("threshold %s must be a finite non-negative number", key)
		}
	}
	return nil
}
