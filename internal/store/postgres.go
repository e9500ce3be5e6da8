package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foundline/crucible/internal/boundary"
	"github.com/foundline/crucible/internal/evidence"
	"github.com/foundline/crucible/internal/policy"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- raw row source ---

// The SELECT lists come straight from the boundary mapping tables, so a
// column rename happens in exactly one place.
func (s *PostgresStore) ListEvidenceRows(ctx context.Context, projectID uuid.UUID) ([]boundary.Row, error) {
	return s.queryRows(ctx, fmt.Sprintf(
		`SELECT %s FROM venture_evidence WHERE project_id = $1 ORDER BY created_at DESC`,
		strings.Join(boundary.EvidenceColumns(), ", ")), projectID)
}

func (s *PostgresStore) ListValidationStateRows(ctx context.Context, projectID uuid.UUID) ([]boundary.Row, error) {
	return s.queryRows(ctx, fmt.Sprintf(
		`SELECT %s FROM validation_states WHERE project_id = $1 ORDER BY iteration ASC`,
		strings.Join(boundary.StateColumns(), ", ")), projectID)
}

func (s *PostgresStore) queryRows(ctx context.Context, query string, args ...interface{}) ([]boundary.Row, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []boundary.Row
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(boundary.Row, len(values))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// --- gate policy overrides ---

const overrideColumns = `id, gate, min_experiments, required_fit_types,
	min_weak_evidence, min_medium_evidence, min_strong_evidence,
	thresholds, override_roles, requires_approval, updated_at`

func (s *PostgresStore) GetPolicyOverride(ctx context.Context, gate evidence.Dimension) (*policy.Override, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+overrideColumns+`
		FROM gate_policy_overrides WHERE gate = $1`, string(gate))
	ov, err := scanOverride(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ov, nil
}

func (s *PostgresStore) UpsertPolicyOverride(ctx context.Context, gate evidence.Dimension, u *policy.Update) (*policy.Override, error) {
	var thresholdsJSON []byte
	if u.Thresholds != nil {
		thresholdsJSON, _ = json.Marshal(u.Thresholds)
	}
	var fitTypes []string
	for _, d := range u.RequiredFitTypes {
		fitTypes = append(fitTypes, string(d))
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO gate_policy_overrides (gate, min_experiments, required_fit_types,
			min_weak_evidence, min_medium_evidence, min_strong_evidence,
			thresholds, override_roles, requires_approval, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (gate) DO UPDATE SET
			min_experiments     = COALESCE(EXCLUDED.min_experiments, gate_policy_overrides.min_experiments),
			required_fit_types  = COALESCE(EXCLUDED.required_fit_types, gate_policy_overrides.required_fit_types),
			min_weak_evidence   = COALESCE(EXCLUDED.min_weak_evidence, gate_policy_overrides.min_weak_evidence),
			min_medium_evidence = COALESCE(EXCLUDED.min_medium_evidence, gate_policy_overrides.min_medium_evidence),
			min_strong_evidence = COALESCE(EXCLUDED.min_strong_evidence, gate_policy_overrides.min_strong_evidence),
			thresholds          = COALESCE(EXCLUDED.thresholds, gate_policy_overrides.thresholds),
			override_roles      = COALESCE(EXCLUDED.override_roles, gate_policy_overrides.override_roles),
			requires_approval   = COALESCE(EXCLUDED.requires_approval, gate_policy_overrides.requires_approval),
			updated_at          = now()
		RETURNING `+overrideColumns,
		string(gate), u.MinExperiments, fitTypes,
		u.MinWeakEvidence, u.MinMediumEvidence, u.MinStrongEvidence,
		thresholdsJSON, u.OverrideRoles, u.RequiresApproval,
	)
	return scanOverride(row)
}

// DeletePolicyOverride reverts the gate to its defaults. Deleting a gate that
// has no override is a no-op, which makes reset idempotent.
func (s *PostgresStore) DeletePolicyOverride(ctx context.Context, gate evidence.Dimension) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM gate_policy_overrides WHERE gate = $1`, string(gate))
	return err
}

func scanOverride(row pgx.Row) (*policy.Override, error) {
	ov := &policy.Override{}
	var gate string
	var fitTypes []string
	var thresholdsJSON []byte
	err := row.Scan(
		&ov.ID, &gate, &ov.MinExperiments, &fitTypes,
		&ov.MinWeakEvidence, &ov.MinMediumEvidence, &ov.MinStrongEvidence,
		&thresholdsJSON, &ov.OverrideRoles, &ov.RequiresApproval, &ov.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ov.Gate = evidence.Dimension(gate)
	for _, ft := range fitTypes {
		ov.RequiredFitTypes = append(ov.RequiredFitTypes, evidence.Dimension(ft))
	}
	if len(thresholdsJSON) > 0 {
		if err := json.Unmarshal(thresholdsJSON, &ov.Thresholds); err != nil {
			return nil, fmt.Errorf("decode thresholds: %w", err)
		}
	}
	return ov, nil
}

// --- approvals ---

const approvalColumns = `id, project_id, gate, execution_id, task_id,
	status, decision, feedback, requested_by, reviewer, decided_by,
	created_at, decided_at`

func (s *PostgresStore) CreateApprovalRequest(ctx context.Context, req *ApprovalRequest) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO approval_requests (project_id, gate, execution_id, task_id,
			status, requested_by, reviewer)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		req.ProjectID, string(req.Gate), req.ExecutionID, req.TaskID,
		string(ApprovalPending), req.RequestedBy, req.Reviewer,
	).Scan(&req.ID, &req.CreatedAt)
}

func (s *PostgresStore) GetApprovalRequest(ctx context.Context, id uuid.UUID) (*ApprovalRequest, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+approvalColumns+`
		FROM approval_requests WHERE id = $1`, id)
	req, err := scanApproval(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// DecideApprovalRequest is the compare-and-set at the heart of the one-shot
// state machine: the UPDATE is conditioned on the row still being pending,
// and a losing concurrent attempt observes zero rows affected.
func (s *PostgresStore) DecideApprovalRequest(ctx context.Context, id uuid.UUID, status ApprovalStatus, decision, feedback, decidedBy string) (*ApprovalRequest, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE approval_requests
		SET status = $2, decision = $3, feedback = $4, decided_by = $5, decided_at = now()
		WHERE id = $1 AND status = 'pending'`,
		id, string(status), decision, feedback, decidedBy)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or someone decided first.
		if _, err := s.GetApprovalRequest(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	return s.GetApprovalRequest(ctx, id)
}

func (s *PostgresStore) AppendApprovalHistory(ctx context.Context, entry *ApprovalHistoryEntry) error {
	detailsJSON, _ := json.Marshal(entry.Details)
	return s.pool.QueryRow(ctx, `
		INSERT INTO approval_history (request_id, actor, actor_type, action, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		entry.RequestID, entry.Actor, entry.ActorType, entry.Action, detailsJSON,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (s *PostgresStore) ListApprovalHistory(ctx context.Context, requestID uuid.UUID) ([]*ApprovalHistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, request_id, actor, actor_type, action, details, created_at
		FROM approval_history WHERE request_id = $1 ORDER BY created_at ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ApprovalHistoryEntry
	for rows.Next() {
		entry := &ApprovalHistoryEntry{}
		var detailsJSON []byte
		if err := rows.Scan(&entry.ID, &entry.RequestID, &entry.Actor, &entry.ActorType,
			&entry.Action, &detailsJSON, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(detailsJSON) > 0 {
			_ = json.Unmarshal(detailsJSON, &entry.Details)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func scanApproval(row pgx.Row) (*ApprovalRequest, error) {
	req := &ApprovalRequest{}
	var gate, status string
	var decision, feedback, reviewer, decidedBy *string
	err := row.Scan(
		&req.ID, &req.ProjectID, &gate, &req.ExecutionID, &req.TaskID,
		&status, &decision, &feedback, &req.RequestedBy, &reviewer, &decidedBy,
		&req.CreatedAt, &req.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Gate = evidence.Dimension(gate)
	req.Status = ApprovalStatus(status)
	if decision != nil {
		req.Decision = *decision
	}
	if feedback != nil {
		req.Feedback = *feedback
	}
	if reviewer != nil {
		req.Reviewer = *reviewer
	}
	if decidedBy != nil {
		req.DecidedBy = *decidedBy
	}
	return req, nil
}
