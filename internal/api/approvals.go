package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/foundline/crucible/internal/approval"
)

type ApprovalsHandler struct {
	coordinator *approval.Coordinator
}

func NewApprovalsHandler(c *approval.Coordinator) *ApprovalsHandler {
	return &ApprovalsHandler{coordinator: c}
}

// Get handles GET /api/v1/approvals/{id}
func (h *ApprovalsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	req, err := h.coordinator.Get(r.Context(), id, actorFromRequest(r))
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request": req,
		"subject": map[string]interface{}{
			"project_id":   req.ProjectID,
			"gate":         req.Gate,
			"execution_id": req.ExecutionID,
			"task_id":      req.TaskID,
		},
	})
}

// History handles GET /api/v1/approvals/{id}/history
func (h *ApprovalsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	entries, err := h.coordinator.History(r.Context(), id, actorFromRequest(r))
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_id": id,
		"entries":    entries,
	})
}

type DecideRequest struct {
	Action   string `json:"action"`
	Decision string `json:"decision,omitempty"`
	Feedback string `json:"feedback,omitempty"`
}

// Decide handles PATCH /api/v1/approvals/{id}. An already-decided request
// returns 409 and leaves the stored decision untouched.
func (h *ApprovalsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	var body DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.coordinator.Decide(r.Context(), id, actorFromRequest(r), approval.DecideInput{
		Action:   body.Action,
		Decision: body.Decision,
		Feedback: body.Feedback,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request":      req,
		"confirmation": approval.Confirmation(req),
	})
}
