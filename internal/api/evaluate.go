package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/foundline/crucible/internal/gate"
	"github.com/foundline/crucible/internal/orchestrator"
	"github.com/foundline/crucible/internal/policy"
	"github.com/foundline/crucible/internal/store"
)

type EvaluateHandler struct {
	store    store.Store
	evidence *EvidenceHandler
	orch     orchestrator.Client
	logger   *slog.Logger
}

func NewEvaluateHandler(s store.Store, eh *EvidenceHandler, o orchestrator.Client, logger *slog.Logger) *EvaluateHandler {
	return &EvaluateHandler{store: s, evidence: eh, orch: o, logger: logger}
}

type EvaluateRequest struct {
	ProjectID   string             `json:"project_id"`
	ExecutionID string             `json:"execution_id,omitempty"`
	TaskID      string             `json:"task_id,omitempty"`
	Reviewer    string             `json:"reviewer,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// Evaluate handles POST /api/v1/gates/{gate}/evaluate. When the effective
// policy requires approval, a pending approval request is opened and returned
// with the decision; the caller hands its ID to whoever resumes the run.
func (h *EvaluateHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	g, ok := gateParam(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid gate")
		return
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid project_id")
		return
	}

	items, err := h.evidence.loadTimeline(r.Context(), projectID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	ov, err := h.store.GetPolicyOverride(r.Context(), g)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	effective := policy.ResolveEffective(g, ov)
	decision := gate.Evaluate(items, effective, req.Metrics)

	if h.orch != nil {
		_ = h.orch.Publish(orchestrator.SubjectGateDecided(projectID.String()), orchestrator.GateDecidedEvent{
			ProjectID:     projectID.String(),
			Gate:          string(g),
			Pass:          decision.Pass,
			NeedsApproval: decision.NeedsApproval,
			Reasons:       decision.Reasons,
			EvaluatedAt:   time.Now().UTC(),
		})
	}

	response := map[string]interface{}{
		"gate":     g,
		"decision": decision,
		"policy":   effective,
	}

	if decision.NeedsApproval {
		approvalReq := &store.ApprovalRequest{
			ProjectID:   projectID,
			Gate:        g,
			ExecutionID: req.ExecutionID,
			TaskID:      req.TaskID,
			Status:      store.ApprovalPending,
			RequestedBy: r.Header.Get("X-Actor-ID"),
			Reviewer:    req.Reviewer,
		}
		if err := h.store.CreateApprovalRequest(r.Context(), approvalReq); err != nil {
			writeDomainErr(w, err)
			return
		}
		response["approval_request"] = approvalReq

		if h.orch != nil {
			_ = h.orch.Publish(orchestrator.SubjectApprovalRequested(approvalReq.ID.String()), orchestrator.ApprovalRequestedEvent{
				RequestID:   approvalReq.ID.String(),
				ProjectID:   projectID.String(),
				Gate:        string(g),
				ExecutionID: req.ExecutionID,
				TaskID:      req.TaskID,
				RequestedBy: approvalReq.RequestedBy,
			})
		}
	}

	writeJSON(w, http.StatusOK, response)
}
