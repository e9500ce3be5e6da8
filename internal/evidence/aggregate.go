package evidence

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TransformUserEvidence converts a normalized user evidence record into a
// unified item. The dimension comes from the fit-type table; a zero UpdatedAt
// (which the boundary package should already have prevented) falls back to now
// so the merge invariant on timestamps holds unconditionally.
func TransformUserEvidence(e Evidence) UnifiedItem {
	ts := e.UpdatedAt
	if ts.IsZero() {
		ts = e.CreatedAt
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return UnifiedItem{
		ID:        e.ID.String(),
		Origin:    OriginUser,
		Dimension: DimensionForFitType(e.FitType),
		Strength:  e.Strength,
		Timestamp: ts,
		Title:     e.Title,
		User: &UserPayload{
			Category:        e.Category,
			Summary:         e.Summary,
			SourceType:      e.SourceType,
			IsContradiction: e.IsContradiction,
		},
	}
}

// TransformAutomatedState derives 0–3 unified items from one validation state,
// one per dimension whose evidence payload is present and whose signal is not
// the dimension's neutral value.
func TransformAutomatedState(s ValidationState) []UnifiedItem {
	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	items := make([]UnifiedItem, 0, 3)
	emit := func(dim Dimension, signal string, strength Strength, payload map[string]interface{}) {
		items = append(items, UnifiedItem{
			ID:        s.ID.String() + ":" + string(dim),
			Origin:    OriginAutomated,
			Dimension: dim,
			Strength:  strength,
			Timestamp: ts,
			Title:     automatedTitle(dim, s.Iteration),
			Automated: &AutomatedPayload{
				StateID:   s.ID,
				Iteration: s.Iteration,
				Signal:    signal,
				Payload:   payload,
			},
		})
	}

	if s.DesirabilityEvidence != nil && s.DesirabilitySignal != DesirabilityNoSignal {
		emit(Desirability, string(s.DesirabilitySignal), StrengthForDesirability(s.DesirabilitySignal), s.DesirabilityEvidence)
	}
	if s.FeasibilityEvidence != nil && s.FeasibilitySignal != FeasibilityNoSignal {
		emit(Feasibility, string(s.FeasibilitySignal), StrengthForFeasibility(s.FeasibilitySignal), s.FeasibilityEvidence)
	}
	if s.ViabilityEvidence != nil && s.ViabilitySignal != ViabilityNoSignal {
		emit(Viability, string(s.ViabilitySignal), StrengthForViability(s.ViabilitySignal), s.ViabilityEvidence)
	}
	return items
}

// Merge concatenates both origins into one timeline, most recent first. The
// sort is stable, so equal timestamps keep user items ahead of automated ones
// in input order. len(out) == len(user) + len(automated) always.
func Merge(user, automated []UnifiedItem) []UnifiedItem {
	out := make([]UnifiedItem, 0, len(user)+len(automated))
	out = append(out, user...)
	out = append(out, automated...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Filters narrows a unified timeline. Zero values mean "no constraint".
type Filters struct {
	Dimension          Dimension
	Origin             Origin
	Strength           Strength
	ContradictionsOnly bool
	From               *time.Time
	To                 *time.Time
	Search             string
}

// Filter applies every set constraint conjunctively. Contradictions exist only
// on user-origin items; the date range is inclusive on both ends; free-text
// search always matches titles and additionally summaries for user items.
func Filter(items []UnifiedItem, f Filters) []UnifiedItem {
	out := make([]UnifiedItem, 0, len(items))
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, it := range items {
		if f.Dimension != "" && it.Dimension != f.Dimension {
			continue
		}
		if f.Origin != "" && it.Origin != f.Origin {
			continue
		}
		if f.Strength != "" && it.Strength != f.Strength {
			continue
		}
		if f.ContradictionsOnly {
			if it.Origin != OriginUser || it.User == nil || !it.User.IsContradiction {
				continue
			}
		}
		if f.From != nil && it.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && it.Timestamp.After(*f.To) {
			continue
		}
		if search != "" && !matchesSearch(it, search) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchesSearch(it UnifiedItem, search string) bool {
	if strings.Contains(strings.ToLower(it.Title), search) {
		return true
	}
	if it.Origin == OriginUser && it.User != nil {
		return strings.Contains(strings.ToLower(it.User.Summary), search)
	}
	return false
}

// Summary aggregates a timeline in a single pass.
type Summary struct {
	Total          int               `json:"total"`
	ByDimension    map[Dimension]int `json:"by_dimension"`
	ByStrength     map[Strength]int  `json:"by_strength"`
	ByOrigin       map[Origin]int    `json:"by_origin"`
	Contradictions int               `json:"contradictions"`
}

// Summarize counts items by dimension, strength and origin, plus user-origin
// contradictions. One linear pass, each item counted once per axis.
func Summarize(items []UnifiedItem) Summary {
	s := Summary{
		ByDimension: make(map[Dimension]int),
		ByStrength:  make(map[Strength]int),
		ByOrigin:    make(map[Origin]int),
	}
	for _, it := range items {
		s.Total++
		s.ByDimension[it.Dimension]++
		s.ByStrength[it.Strength]++
		s.ByOrigin[it.Origin]++
		if it.Origin == OriginUser && it.User != nil && it.User.IsContradiction {
			s.Contradictions++
		}
	}
	return s
}

// TrendPoint is one validation-state iteration projected onto the per-
// dimension ordinal scales.
type TrendPoint struct {
	Iteration     int       `json:"iteration"`
	Timestamp     time.Time `json:"timestamp"`
	Desirability  int       `json:"desirability"`
	Feasibility   int       `json:"feasibility"`
	Viability     int       `json:"viability"`
	EvidenceCount int       `json:"evidence_count"`
}

// Trend orders validation states ascending by timestamp and projects each onto
// the ordinal scales. States with a zero UpdatedAt are timestamped now so the
// series never carries an invalid instant.
func Trend(states []ValidationState) []TrendPoint {
	points := make([]TrendPoint, 0, len(states))
	for _, s := range states {
		ts := s.UpdatedAt
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		count := 0
		if s.DesirabilityEvidence != nil {
			count++
		}
		if s.FeasibilityEvidence != nil {
			count++
		}
		if s.ViabilityEvidence != nil {
			count++
		}
		points = append(points, TrendPoint{
			Iteration:     s.Iteration,
			Timestamp:     ts,
			Desirability:  ScaleForDesirability(s.DesirabilitySignal),
			Feasibility:   ScaleForFeasibility(s.FeasibilitySignal),
			Viability:     ScaleForViability(s.ViabilitySignal),
			EvidenceCount: count,
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points
}

func automatedTitle(dim Dimension, iteration int) string {
	label := map[Dimension]string{
		Desirability: "Desirability analysis",
		Feasibility:  "Feasibility analysis",
		Viability:    "Viability analysis",
	}[dim]
	return fmt.Sprintf("%s (iteration %d)", label, iteration)
}
