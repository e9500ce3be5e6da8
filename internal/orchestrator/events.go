package orchestrator

import "time"

// RunResumeEvent tells the orchestrator to resume a paused validation run.
// Decision carries the orchestrator's own vocabulary (approved/rejected);
// the approval coordinator owns the mapping.
type RunResumeEvent struct {
	ExecutionID string `json:"execution_id"`
	TaskID      string `json:"task_id"`
	Decision    string `json:"decision"`
	Feedback    string `json:"feedback,omitempty"`
	DecidedBy   string `json:"decided_by"`
}

type GateDecidedEvent struct {
	ProjectID     string    `json:"project_id"`
	Gate          string    `json:"gate"`
	Pass          bool      `json:"pass"`
	NeedsApproval bool      `json:"needs_approval"`
	Reasons       []string  `json:"reasons,omitempty"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
}

type ApprovalRequestedEvent struct {
	RequestID   string `json:"request_id"`
	ProjectID   string `json:"project_id"`
	Gate        string `json:"gate"`
	ExecutionID string `json:"execution_id"`
	TaskID      string `json:"task_id"`
	RequestedBy string `json:"requested_by"`
}

type ApprovalDecidedEvent struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Decision  string `json:"decision"`
	DecidedBy string `json:"decided_by"`
}
