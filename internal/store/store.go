package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/foundline/crucible/internal/boundary"
	"github.com/foundline/crucible/internal/evidence"
	"github.com/foundline/crucible/internal/policy"
)

// ErrNotFound reports a missing row; ErrConflict reports a lost
// compare-and-set on an approval decision. Both are client errors, not
// infrastructure failures.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict: request already decided")
)

// ApprovalStatus is the one-shot approval state machine:
// pending → approved | rejected, terminal.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalRequest ties a human decision to a gate outcome. Decision and
// DecidedAt are immutable once set.
type ApprovalRequest struct {
	ID          uuid.UUID          `json:"id"`
	ProjectID   uuid.UUID          `json:"project_id"`
	Gate        evidence.Dimension `json:"gate"`
	ExecutionID string             `json:"execution_id"`
	TaskID      string             `json:"task_id"`
	Status      ApprovalStatus     `json:"status"`
	Decision    string             `json:"decision,omitempty"`
	Feedback    string             `json:"feedback,omitempty"`
	RequestedBy string             `json:"requested_by"`
	Reviewer    string             `json:"reviewer,omitempty"`
	DecidedBy   string             `json:"decided_by,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	DecidedAt   *time.Time         `json:"decided_at,omitempty"`
}

// ApprovalHistoryEntry is one immutable line of the approval audit log. The
// log is append-only; this engine never edits or prunes it.
type ApprovalHistoryEntry struct {
	ID        uuid.UUID              `json:"id"`
	RequestID uuid.UUID              `json:"request_id"`
	Actor     string                 `json:"actor"`
	ActorType string                 `json:"actor_type"`
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type Store interface {
	// Raw row source. Rows keep the source's snake_case shape; the boundary
	// package owns the translation.
	ListEvidenceRows(ctx context.Context, projectID uuid.UUID) ([]boundary.Row, error)
	ListValidationStateRows(ctx context.Context, projectID uuid.UUID) ([]boundary.Row, error)

	// Gate policy overrides. Get returns (nil, nil) when no override exists.
	GetPolicyOverride(ctx context.Context, gate evidence.Dimension) (*policy.Override, error)
	UpsertPolicyOverride(ctx context.Context, gate evidence.Dimension, u *policy.Update) (*policy.Override, error)
	DeletePolicyOverride(ctx context.Context, gate evidence.Dimension) error

	// Approvals.
	CreateApprovalRequest(ctx context.Context, req *ApprovalRequest) error
	GetApprovalRequest(ctx context.Context, id uuid.UUID) (*ApprovalRequest, error)
	// DecideApprovalRequest performs the atomic pending→terminal transition.
	// It returns ErrConflict when the request is no longer pending and
	// ErrNotFound when it does not exist.
	DecideApprovalRequest(ctx context.Context, id uuid.UUID, status ApprovalStatus, decision, feedback, decidedBy string) (*ApprovalRequest, error)
	AppendApprovalHistory(ctx context.Context, entry *ApprovalHistoryEntry) error
	ListApprovalHistory(ctx context.Context, requestID uuid.UUID) ([]*ApprovalHistoryEntry, error)

	Close() error
}
