package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/foundline/crucible/internal/boundary"
	"github.com/foundline/crucible/internal/evidence"
	"github.com/foundline/crucible/internal/store"
)

type EvidenceHandler struct {
	store  store.Store
	parser *boundary.Parser
	logger *slog.Logger
}

func NewEvidenceHandler(s store.Store, p *boundary.Parser, logger *slog.Logger) *EvidenceHandler {
	return &EvidenceHandler{store: s, parser: p, logger: logger}
}

// loadTimeline runs the full ingest pipeline for one project: raw rows →
// boundary validation → transformation → merged timeline. The memo lives for
// this call only, so concurrent requests never share it.
func (h *EvidenceHandler) loadTimeline(ctx context.Context, projectID uuid.UUID) ([]evidence.UnifiedItem, error) {
	memo := boundary.NewMemo()

	evRows, err := h.store.ListEvidenceRows(ctx, projectID)
	if err != nil {
		return nil, err
	}
	records, err := h.parser.ParseEvidenceRows(memo, projectID.String()+":evidence", evRows)
	if err != nil {
		return nil, err
	}

	stRows, err := h.store.ListValidationStateRows(ctx, projectID)
	if err != nil {
		return nil, err
	}
	states, err := h.parser.ParseStateRows(memo, projectID.String()+":states", stRows)
	if err != nil {
		return nil, err
	}

	userItems := make([]evidence.UnifiedItem, 0, len(records))
	for _, rec := range records {
		userItems = append(userItems, evidence.TransformUserEvidence(rec))
	}
	var autoItems []evidence.UnifiedItem
	for _, s := range states {
		autoItems = append(autoItems, evidence.TransformAutomatedState(s)...)
	}
	return evidence.Merge(userItems, autoItems), nil
}

// List handles GET /api/v1/projects/{id}/evidence
func (h *EvidenceHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid project id")
		return
	}

	items, err := h.loadTimeline(r.Context(), projectID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	items = evidence.Filter(items, filtersFromQuery(r))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"items":      items,
		"count":      len(items),
	})
}

// Summary handles GET /api/v1/projects/{id}/evidence/summary
func (h *EvidenceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid project id")
		return
	}

	items, err := h.loadTimeline(r.Context(), projectID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"summary":    evidence.Summarize(items),
	})
}

// Trend handles GET /api/v1/projects/{id}/evidence/trend
func (h *EvidenceHandler) Trend(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid project id")
		return
	}

	rows, err := h.store.ListValidationStateRows(r.Context(), projectID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	states, err := h.parser.ParseStateRows(nil, "", rows)
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"points":     evidence.Trend(states),
	})
}

func filtersFromQuery(r *http.Request) evidence.Filters {
	q := r.URL.Query()
	f := evidence.Filters{
		Dimension: evidence.Dimension(q.Get("dimension")),
		Origin:    evidence.Origin(q.Get("origin")),
		Strength:  evidence.Strength(q.Get("strength")),
		Search:    q.Get("q"),
	}
	if q.Get("contradictions") == "true" {
		f.ContradictionsOnly = true
	}
	if ts := parseQueryTime(q.Get("from")); ts != nil {
		f.From = ts
	}
	if ts := parseQueryTime(q.Get("to")); ts != nil {
		f.To = ts
	}
	return f
}

func parseQueryTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, v); err == nil {
			return &ts
		}
	}
	return nil
}
