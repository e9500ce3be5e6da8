package evidence

import (
	"time"

	"github.com/google/uuid"
)

// Dimension is one of the three validation dimensions a venture is scored on.
// Gates are named after the dimension they protect.
type Dimension string

const (
	Desirability Dimension = "desirability"
	Feasibility  Dimension = "feasibility"
	Viability    Dimension = "viability"
)

// Dimensions lists every dimension in canonical order.
var Dimensions = []Dimension{Desirability, Feasibility, Viability}

func (d Dimension) Valid() bool {
	switch d {
	case Desirability, Feasibility, Viability:
		return true
	}
	return false
}

// Strength is the normalized confidence bucket assigned to any evidence item,
// regardless of origin.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

func (s Strength) Valid() bool {
	switch s {
	case StrengthWeak, StrengthMedium, StrengthStrong:
		return true
	}
	return false
}

// Category classifies how a piece of user evidence was collected.
type Category string

const (
	CategorySurvey     Category = "survey"
	CategoryInterview  Category = "interview"
	CategoryExperiment Category = "experiment"
	CategoryAnalytics  Category = "analytics"
	CategoryResearch   Category = "research"
)

func (c Category) Valid() bool {
	switch c {
	case CategorySurvey, CategoryInterview, CategoryExperiment, CategoryAnalytics, CategoryResearch:
		return true
	}
	return false
}

// Origin tags which side of the platform produced an evidence item.
type Origin string

const (
	OriginUser      Origin = "user"
	OriginAutomated Origin = "automated"
)

// Evidence is a user-authored evidence record, already normalized by the
// boundary package. CreatedAt and UpdatedAt are never zero.
type Evidence struct {
	ID              uuid.UUID `json:"id"`
	ProjectID       uuid.UUID `json:"project_id"`
	Title           string    `json:"title"`
	Category        Category  `json:"category"`
	Summary         string    `json:"summary,omitempty"`
	Strength        Strength  `json:"strength"`
	FitType         string    `json:"fit_type,omitempty"`
	IsContradiction bool      `json:"is_contradiction"`
	SourceType      string    `json:"source_type,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ValidationState is one iteration of the automated analysis pipeline's
// assessment of a project. Each dimension carries its own signal enum and an
// optional structured payload; a nil payload means the pipeline produced no
// evidence for that dimension at this iteration.
type ValidationState struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Iteration int       `json:"iteration"`

	DesirabilitySignal   DesirabilitySignal     `json:"desirability_signal"`
	DesirabilityEvidence map[string]interface{} `json:"desirability_evidence,omitempty"`
	FeasibilitySignal    FeasibilitySignal      `json:"feasibility_signal"`
	FeasibilityEvidence  map[string]interface{} `json:"feasibility_evidence,omitempty"`
	ViabilitySignal      ViabilitySignal        `json:"viability_signal"`
	ViabilityEvidence    map[string]interface{} `json:"viability_evidence,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// UnifiedItem is the tagged union over user-origin and automated-origin
// evidence. Exactly one of User/Automated is non-nil, matching Origin.
// Timestamp is always a valid instant: construction falls back to the current
// time rather than propagating a missing source timestamp.
type UnifiedItem struct {
	ID        string    `json:"id"`
	Origin    Origin    `json:"origin"`
	Dimension Dimension `json:"dimension"`
	Strength  Strength  `json:"strength"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`

	User      *UserPayload      `json:"user,omitempty"`
	Automated *AutomatedPayload `json:"automated,omitempty"`
}

// UserPayload carries the origin-specific fields of a user evidence item.
type UserPayload struct {
	Category        Category `json:"category"`
	Summary         string   `json:"summary,omitempty"`
	SourceType      string   `json:"source_type,omitempty"`
	IsContradiction bool     `json:"is_contradiction"`
}

// AutomatedPayload carries the origin-specific fields of an item derived from
// a ValidationState dimension.
type AutomatedPayload struct {
	StateID   uuid.UUID              `json:"state_id"`
	Iteration int                    `json:"iteration"`
	Signal    string                 `json:"signal"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// SourceKey identifies the evidence-producing source of an item. Gate
// evaluation counts distinct source keys as "experiments": user items group by
// their source type (falling back to the item itself when untyped), automated
// items group by the validation state that produced them.
func (it UnifiedItem) SourceKey() string {
	switch it.Origin {
	case OriginUser:
		if it.User != nil && it.User.SourceType != "" {
			return "source:" + it.User.SourceType
		}
		return "evidence:" + it.ID
	case OriginAutomated:
		if it.Automated != nil {
			return "state:" + it.Automated.StateID.String()
		}
		return "state:" + it.ID
	}
	return "unknown:" + it.ID
}
