package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/foundline/crucible/internal/orchestrator"
	"github.com/foundline/crucible/internal/policy"
	"github.com/foundline/crucible/internal/store"
)

var (
	ErrAccessDenied  = errors.New("access denied")
	ErrInvalidAction = errors.New("action must be approve or reject")
)

// Actor is whoever is viewing or deciding a request.
type Actor struct {
	ID   string
	Type string // "user" or "agent"
	Role string
}

// DecideInput is the decision payload. Decision defaults to the action when
// empty; Feedback is passed through to the orchestrator verbatim.
type DecideInput struct {
	Action   string
	Decision string
	Feedback string
}

// decisionVocab maps caller-supplied decision labels into the vocabulary the
// orchestrator expects. Labels already in the orchestrator's vocabulary pass
// through unchanged.
var decisionVocab = map[string]string{
	"approve":  "approved",
	"reject":   "rejected",
	"approved": "approved",
	"rejected": "rejected",
}

// MapDecision resolves the label sent to the orchestrator. An empty label
// falls back to the action itself.
func MapDecision(action, label string) string {
	if label == "" {
		label = action
	}
	if mapped, ok := decisionVocab[label]; ok {
		return mapped
	}
	return label
}

// Coordinator records and decides human approval requests tied to gate
// decisions. All computation is per-request; the only shared mutable state is
// the request status, guarded by the store's compare-and-set.
type Coordinator struct {
	store         store.Store
	orch          orchestrator.Client
	notifyTimeout time.Duration
	logger        *slog.Logger
}

func NewCoordinator(s store.Store, o orchestrator.Client, notifyTimeout time.Duration, logger *slog.Logger) *Coordinator {
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}
	return &Coordinator{store: s, orch: o, notifyTimeout: notifyTimeout, logger: logger}
}

// Get returns a request after an access check and records the view in the
// audit log.
func (c *Coordinator) Get(ctx context.Context, id uuid.UUID, actor Actor) (*store.ApprovalRequest, error) {
	req, err := c.store.GetApprovalRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, req, actor); err != nil {
		return nil, err
	}
	c.appendHistory(ctx, req.ID, actor, "viewed", nil)
	return req, nil
}

// History returns the append-only audit log for a request.
func (c *Coordinator) History(ctx context.Context, id uuid.UUID, actor Actor) ([]*store.ApprovalHistoryEntry, error) {
	req, err := c.store.GetApprovalRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, req, actor); err != nil {
		return nil, err
	}
	return c.store.ListApprovalHistory(ctx, id)
}

// Decide applies a one-shot decision. The store's conditional update is the
// single atomic transition; a request that is no longer pending surfaces
// store.ErrConflict with the stored decision untouched. The orchestrator
// notification is gated on that update succeeding, which makes it at most
// once per request, and its failure never unwinds the recorded decision.
func (c *Coordinator) Decide(ctx context.Context, id uuid.UUID, actor Actor, in DecideInput) (*store.ApprovalRequest, error) {
	req, err := c.store.GetApprovalRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	override, err := c.authorizeDecision(ctx, req, actor)
	if err != nil {
		return nil, err
	}

	var status store.ApprovalStatus
	switch in.Action {
	case "approve":
		status = store.ApprovalApproved
	case "reject":
		status = store.ApprovalRejected
	default:
		return nil, ErrInvalidAction
	}
	decision := MapDecision(in.Action, in.Decision)

	updated, err := c.store.DecideApprovalRequest(ctx, id, status, decision, in.Feedback, actor.ID)
	if err != nil {
		return nil, err
	}

	details := map[string]interface{}{
		"action":   in.Action,
		"decision": decision,
	}
	if override {
		// An override is never implicit: it is recorded here, on the
		// decision that carried it.
		details["override"] = true
		details["override_role"] = actor.Role
	}
	c.appendHistory(ctx, id, actor, "decided", details)

	c.notify(updated)
	return updated, nil
}

// authorize admits the request owner and the owner's delegated reviewer.
func (c *Coordinator) authorize(ctx context.Context, req *store.ApprovalRequest, actor Actor) error {
	if actor.ID != "" && (actor.ID == req.RequestedBy || actor.ID == req.Reviewer) {
		return nil
	}
	if ok, _ := c.hasOverrideRole(ctx, req, actor); ok {
		return nil
	}
	return ErrAccessDenied
}

// authorizeDecision reports whether the actor decides via an override role
// rather than ownership or delegation.
func (c *Coordinator) authorizeDecision(ctx context.Context, req *store.ApprovalRequest, actor Actor) (bool, error) {
	if actor.ID != "" && (actor.ID == req.RequestedBy || actor.ID == req.Reviewer) {
		return false, nil
	}
	ok, err := c.hasOverrideRole(ctx, req, actor)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrAccessDenied
	}
	return true, nil
}

func (c *Coordinator) hasOverrideRole(ctx context.Context, req *store.ApprovalRequest, actor Actor) (bool, error) {
	if actor.Role == "" {
		return false, nil
	}
	ov, err := c.store.GetPolicyOverride(ctx, req.Gate)
	if err != nil {
		return false, err
	}
	effective := policy.ResolveEffective(req.Gate, ov)
	for _, role := range effective.OverrideRoles {
		if role == actor.Role {
			return true, nil
		}
	}
	return false, nil
}

func (c *Coordinator) appendHistory(ctx context.Context, requestID uuid.UUID, actor Actor, action string, details map[string]interface{}) {
	entry := &store.ApprovalHistoryEntry{
		RequestID: requestID,
		Actor:     actor.ID,
		ActorType: actor.Type,
		Action:    action,
		Details:   details,
	}
	if err := c.store.AppendApprovalHistory(ctx, entry); err != nil && c.logger != nil {
		c.logger.Error("failed to append approval history", "request_id", requestID, "action", action, "error", err)
	}
}

// notify tells the orchestrator to resume the paused run. Best effort with
// its own timeout; any retry of a lost notification belongs to an external
// reconciler, and the decision record stays authoritative either way.
func (c *Coordinator) notify(req *store.ApprovalRequest) {
	if c.orch == nil || req.ExecutionID == "" {
		return
	}
	event := orchestrator.RunResumeEvent{
		ExecutionID: req.ExecutionID,
		TaskID:      req.TaskID,
		Decision:    req.Decision,
		Feedback:    req.Feedback,
		DecidedBy:   req.DecidedBy,
	}
	if err := c.orch.PublishSync(orchestrator.SubjectRunResume(req.ExecutionID), event, c.notifyTimeout); err != nil {
		if c.logger != nil {
			c.logger.Error("orchestrator notification failed",
				"request_id", req.ID,
				"execution_id", req.ExecutionID,
				"error", err,
			)
		}
		return
	}
	_ = c.orch.Publish(orchestrator.SubjectApprovalDecided(req.ID.String()), orchestrator.ApprovalDecidedEvent{
		RequestID: req.ID.String(),
		Status:    string(req.Status),
		Decision:  req.Decision,
		DecidedBy: req.DecidedBy,
	})
}

// Confirmation renders the human-readable confirmation returned by the
// approval surface.
func Confirmation(req *store.ApprovalRequest) string {
	switch req.Status {
	case store.ApprovalApproved:
		return fmt.Sprintf("Request approved by %s. The validation run will resume.", req.DecidedBy)
	case store.ApprovalRejected:
		return fmt.Sprintf("Request rejected by %s. The validation run will not advance.", req.DecidedBy)
	}
	return "Request is pending."
}
