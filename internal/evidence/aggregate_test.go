package evidence

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func ts(offset int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Hour)
}

func userItem(id string, dim Dimension, strength Strength, at time.Time) UnifiedItem {
	return UnifiedItem{
		ID: id, Origin: OriginUser, Dimension: dim, Strength: strength,
		Timestamp: at, Title: "item " + id,
		User: &UserPayload{Category: CategoryInterview, SourceType: "interview"},
	}
}

func TestTransformUserEvidence(t *testing.T) {
	e := Evidence{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Title:     "Pricing survey",
		Category:  CategorySurvey,
		Strength:  StrengthMedium,
		FitType:   "viability",
		CreatedAt: ts(0),
		UpdatedAt: ts(1),
	}
	it := TransformUserEvidence(e)
	if it.Origin != OriginUser || it.User == nil || it.Automated != nil {
		t.Fatal("expected a user-origin item with only the user payload set")
	}
	if it.Dimension != Viability {
		t.Errorf("expected viability, got %s", it.Dimension)
	}
	if !it.Timestamp.Equal(ts(1)) {
		t.Errorf("expected updated_at as timestamp, got %v", it.Timestamp)
	}

	t.Run("unknown fit type defaults to desirability", func(t *testing.T) {
		e.FitType = "mystery"
		if got := TransformUserEvidence(e).Dimension; got != Desirability {
			t.Errorf("got %s, want desirability", got)
		}
	})

	t.Run("zero timestamps fall back to now", func(t *testing.T) {
		e.CreatedAt, e.UpdatedAt = time.Time{}, time.Time{}
		it := TransformUserEvidence(e)
		if it.Timestamp.IsZero() {
			t.Error("expected a valid timestamp")
		}
	})
}

func TestTransformAutomatedState(t *testing.T) {
	payload := map[string]interface{}{"detail": "x"}
	s := ValidationState{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Iteration: 2,
		UpdatedAt: ts(0),

		DesirabilitySignal:   DesirabilityStrongCommitment,
		DesirabilityEvidence: payload,
		FeasibilitySignal:    FeasibilityUnknown,
		FeasibilityEvidence:  nil, // payload missing: no item
		ViabilitySignal:      ViabilityNoSignal,
		ViabilityEvidence:    payload, // neutral signal: no item
	}

	items := TransformAutomatedState(s)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.Dimension != Desirability || it.Strength != StrengthStrong {
		t.Errorf("unexpected item: %+v", it)
	}
	if it.Automated == nil || it.Automated.Iteration != 2 {
		t.Error("expected automated payload with iteration 2")
	}

	t.Run("all dimensions emit", func(t *testing.T) {
		s.FeasibilityEvidence = payload
		s.ViabilitySignal = ViabilityMarginal
		if got := len(TransformAutomatedState(s)); got != 3 {
			t.Errorf("expected 3 items, got %d", got)
		}
	})

	t.Run("empty state emits nothing", func(t *testing.T) {
		empty := ValidationState{ID: uuid.New(), Iteration: 1, UpdatedAt: ts(0)}
		if got := len(TransformAutomatedState(empty)); got != 0 {
			t.Errorf("expected 0 items, got %d", got)
		}
	})
}

func TestMerge(t *testing.T) {
	u := []UnifiedItem{
		userItem("a", Desirability, StrengthWeak, ts(2)),
		userItem("b", Desirability, StrengthWeak, ts(0)),
	}
	a := []UnifiedItem{
		{ID: "c", Origin: OriginAutomated, Timestamp: ts(1), Automated: &AutomatedPayload{}},
	}

	out := Merge(u, a)
	if len(out) != len(u)+len(a) {
		t.Fatalf("merge not length-preserving: %d != %d", len(out), len(u)+len(a))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Timestamp.After(out[i-1].Timestamp) {
			t.Fatalf("not sorted descending at index %d", i)
		}
	}
	if out[0].ID != "a" || out[1].ID != "c" || out[2].ID != "b" {
		t.Errorf("unexpected order: %s %s %s", out[0].ID, out[1].ID, out[2].ID)
	}

	t.Run("empty inputs", func(t *testing.T) {
		if got := Merge(nil, nil); len(got) != 0 {
			t.Errorf("expected empty merge, got %d items", len(got))
		}
		if got := Merge(u, nil); len(got) != len(u) {
			t.Errorf("expected %d items, got %d", len(u), len(got))
		}
	})
}

func TestFilter(t *testing.T) {
	contradiction := userItem("c1", Desirability, StrengthWeak, ts(1))
	contradiction.User.IsContradiction = true
	contradiction.Title = "churn contradicts retention claim"

	items := []UnifiedItem{
		userItem("u1", Desirability, StrengthStrong, ts(3)),
		contradiction,
		{
			ID: "a1", Origin: OriginAutomated, Dimension: Feasibility,
			Strength: StrengthMedium, Timestamp: ts(2), Title: "Feasibility analysis (iteration 1)",
			Automated: &AutomatedPayload{Signal: string(FeasibilityBuildableWithRisk)},
		},
	}

	tests := []struct {
		name    string
		filters Filters
		wantIDs []string
	}{
		{"no filters", Filters{}, []string{"u1", "c1", "a1"}},
		{"by dimension", Filters{Dimension: Feasibility}, []string{"a1"}},
		{"by origin", Filters{Origin: OriginUser}, []string{"u1", "c1"}},
		{"by strength", Filters{Strength: StrengthStrong}, []string{"u1"}},
		{"contradictions only", Filters{ContradictionsOnly: true}, []string{"c1"}},
		{"search matches title", Filters{Search: "churn"}, []string{"c1"}},
		{"search case-insensitive", Filters{Search: "FEASIBILITY"}, []string{"a1"}},
		{"date range inclusive", Filters{From: timePtr(ts(1)), To: timePtr(ts(2))}, []string{"c1", "a1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Filter(items, tt.filters)
			if len(out) != len(tt.wantIDs) {
				t.Fatalf("got %d items, want %d", len(out), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if out[i].ID != id {
					t.Errorf("position %d: got %s, want %s", i, out[i].ID, id)
				}
			}
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestSummarize(t *testing.T) {
	contradiction := userItem("c1", Viability, StrengthWeak, ts(0))
	contradiction.User.IsContradiction = true

	items := []UnifiedItem{
		userItem("u1", Desirability, StrengthStrong, ts(1)),
		userItem("u2", Desirability, StrengthMedium, ts(2)),
		contradiction,
		{ID: "a1", Origin: OriginAutomated, Dimension: Feasibility, Strength: StrengthMedium, Timestamp: ts(3), Automated: &AutomatedPayload{}},
	}

	s := Summarize(items)
	if s.Total != 4 {
		t.Errorf("total: got %d, want 4", s.Total)
	}
	if s.ByDimension[Desirability] != 2 || s.ByDimension[Feasibility] != 1 || s.ByDimension[Viability] != 1 {
		t.Errorf("by dimension: %+v", s.ByDimension)
	}
	if s.ByStrength[StrengthMedium] != 2 || s.ByStrength[StrengthStrong] != 1 || s.ByStrength[StrengthWeak] != 1 {
		t.Errorf("by strength: %+v", s.ByStrength)
	}
	if s.ByOrigin[OriginUser] != 3 || s.ByOrigin[OriginAutomated] != 1 {
		t.Errorf("by origin: %+v", s.ByOrigin)
	}
	if s.Contradictions != 1 {
		t.Errorf("contradictions: got %d, want 1", s.Contradictions)
	}
}

func TestTrend(t *testing.T) {
	states := []ValidationState{
		{
			ID: uuid.New(), Iteration: 2, UpdatedAt: ts(5),
			DesirabilitySignal: DesirabilityStrongCommitment,
			ViabilitySignal:    ViabilityMarginal,
			ViabilityEvidence:  map[string]interface{}{"x": 1},
		},
		{
			ID: uuid.New(), Iteration: 1, UpdatedAt: ts(0),
			DesirabilitySignal:   DesirabilityWeakInterest,
			DesirabilityEvidence: map[string]interface{}{"x": 1},
			FeasibilitySignal:    FeasibilityUnknown,
			FeasibilityEvidence:  map[string]interface{}{"x": 1},
		},
	}

	points := Trend(states)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Iteration != 1 || points[1].Iteration != 2 {
		t.Errorf("expected ascending order, got iterations %d, %d", points[0].Iteration, points[1].Iteration)
	}
	if points[0].Desirability != 2 || points[0].Feasibility != 1 || points[0].Viability != 0 {
		t.Errorf("unexpected first point projection: %+v", points[0])
	}
	if points[0].EvidenceCount != 2 || points[1].EvidenceCount != 1 {
		t.Errorf("unexpected evidence counts: %d, %d", points[0].EvidenceCount, points[1].EvidenceCount)
	}
}

func TestTrendWithMissingTimestamp(t *testing.T) {
	// A state with a null updated_at and a non-neutral desirability signal
	// must still yield one valid trend point; missing dates used to blow up
	// the chart downstream.
	states := []ValidationState{
		{
			ID:                   uuid.New(),
			Iteration:            1,
			DesirabilitySignal:   DesirabilityStrongCommitment,
			DesirabilityEvidence: map[string]interface{}{"quotes": 3},
		},
	}

	points := Trend(states)
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	p := points[0]
	if p.Iteration != 1 {
		t.Errorf("iteration: got %d, want 1", p.Iteration)
	}
	if p.Timestamp.IsZero() {
		t.Error("expected a valid timestamp, got zero")
	}
	if p.Timestamp.Format(time.RFC3339) == "" {
		t.Error("expected a formattable date")
	}
}
