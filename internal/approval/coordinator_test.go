package approval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/foundline/crucible/internal/boundary"
	"github.com/foundline/crucible/internal/evidence"
	"github.com/foundline/crucible/internal/policy"
	"github.com/foundline/crucible/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory Store with the same compare-and-set semantics as
// the Postgres implementation.
type fakeStore struct {
	mu        sync.Mutex
	requests  map[uuid.UUID]*store.ApprovalRequest
	history   []*store.ApprovalHistoryEntry
	overrides map[evidence.Dimension]*policy.Override
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:  make(map[uuid.UUID]*store.ApprovalRequest),
		overrides: make(map[evidence.Dimension]*policy.Override),
	}
}

func (f *fakeStore) ListEvidenceRows(ctx context.Context, projectID uuid.UUID) ([]boundary.Row, error) {
	return nil, nil
}
func (f *fakeStore) ListValidationStateRows(ctx context.Context, projectID uuid.UUID) ([]boundary.Row, error) {
	return nil, nil
}
func (f *fakeStore) GetPolicyOverride(ctx context.Context, gate evidence.Dimension) (*policy.Override, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overrides[gate], nil
}
func (f *fakeStore) UpsertPolicyOverride(ctx context.Context, gate evidence.Dimension, u *policy.Update) (*policy.Override, error) {
	return nil, nil
}
func (f *fakeStore) DeletePolicyOverride(ctx context.Context, gate evidence.Dimension) error {
	return nil
}

func (f *fakeStore) CreateApprovalRequest(ctx context.Context, req *store.ApprovalRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.ID = uuid.New()
	req.Status = store.ApprovalPending
	req.CreatedAt = time.Now()
	clone := *req
	f.requests[req.ID] = &clone
	return nil
}

func (f *fakeStore) GetApprovalRequest(ctx context.Context, id uuid.UUID) (*store.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (f *fakeStore) DecideApprovalRequest(ctx context.Context, id uuid.UUID, status store.ApprovalStatus, decision, feedback, decidedBy string) (*store.ApprovalRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if req.Status != store.ApprovalPending {
		return nil, store.ErrConflict
	}
	now := time.Now()
	req.Status = status
	req.Decision = decision
	req.Feedback = feedback
	req.DecidedBy = decidedBy
	req.DecidedAt = &now
	clone := *req
	return &clone, nil
}

func (f *fakeStore) AppendApprovalHistory(ctx context.Context, entry *store.ApprovalHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	f.history = append(f.history, entry)
	return nil
}

func (f *fakeStore) ListApprovalHistory(ctx context.Context, requestID uuid.UUID) ([]*store.ApprovalHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.ApprovalHistoryEntry
	for _, e := range f.history {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

type fakeOrchestrator struct {
	mu       sync.Mutex
	subjects []string
	fail     bool
}

func (f *fakeOrchestrator) Publish(subject string, data interface{}) error {
	return f.record(subject)
}

func (f *fakeOrchestrator) PublishSync(subject string, data interface{}, timeout time.Duration) error {
	return f.record(subject)
}

func (f *fakeOrchestrator) record(subject string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("nats: connection closed")
	}
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeOrchestrator) Close() {}

func (f *fakeOrchestrator) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subjects...)
}

func newRequest(t *testing.T, s *fakeStore) *store.ApprovalRequest {
	t.Helper()
	req := &store.ApprovalRequest{
		ProjectID:   uuid.New(),
		Gate:        evidence.Viability,
		ExecutionID: "exec-42",
		TaskID:      "task-7",
		RequestedBy: "owner-1",
		Reviewer:    "reviewer-1",
	}
	if err := s.CreateApprovalRequest(context.Background(), req); err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

func TestDecideApprove(t *testing.T) {
	s := newFakeStore()
	orch := &fakeOrchestrator{}
	c := NewCoordinator(s, orch, time.Second, discardLogger())
	req := newRequest(t, s)

	updated, err := c.Decide(context.Background(), req.ID, Actor{ID: "owner-1", Type: "user"}, DecideInput{
		Action:   "approve",
		Feedback: "solid cohort data",
	})
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if updated.Status != store.ApprovalApproved {
		t.Errorf("status: got %s", updated.Status)
	}
	if updated.Decision != "approved" {
		t.Errorf("decision not mapped to orchestrator vocabulary: %s", updated.Decision)
	}
	if updated.DecidedAt == nil {
		t.Error("expected decided_at set")
	}

	subjects := orch.published()
	if len(subjects) == 0 || subjects[0] != "validation.run.exec-42.resume" {
		t.Errorf("expected resume notification, got %v", subjects)
	}

	entries, _ := s.ListApprovalHistory(context.Background(), req.ID)
	if len(entries) != 1 || entries[0].Action != "decided" {
		t.Errorf("expected one decided history entry, got %+v", entries)
	}
}

func TestDecideIsOneShot(t *testing.T) {
	s := newFakeStore()
	orch := &fakeOrchestrator{}
	c := NewCoordinator(s, orch, time.Second, discardLogger())
	req := newRequest(t, s)

	first, err := c.Decide(context.Background(), req.ID, Actor{ID: "owner-1"}, DecideInput{Action: "approve"})
	if err != nil {
		t.Fatalf("first decide failed: %v", err)
	}

	// A second decision against the approved request must conflict and leave
	// the stored decision untouched.
	_, err = c.Decide(context.Background(), req.ID, Actor{ID: "owner-1"}, DecideInput{Action: "reject"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	stored, _ := s.GetApprovalRequest(context.Background(), req.ID)
	if stored.Status != store.ApprovalApproved || stored.Decision != first.Decision {
		t.Errorf("stored decision changed: %+v", stored)
	}
	if !stored.DecidedAt.Equal(*first.DecidedAt) {
		t.Error("decided_at changed on conflicting decide")
	}

	// Notification fired exactly once.
	count := 0
	for _, subj := range orch.published() {
		if subj == "validation.run.exec-42.resume" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one resume notification, got %d", count)
	}
}

func TestDecideAccessControl(t *testing.T) {
	s := newFakeStore()
	c := NewCoordinator(s, &fakeOrchestrator{}, time.Second, discardLogger())
	req := newRequest(t, s)

	t.Run("stranger denied", func(t *testing.T) {
		_, err := c.Decide(context.Background(), req.ID, Actor{ID: "someone-else"}, DecideInput{Action: "approve"})
		if !errors.Is(err, ErrAccessDenied) {
			t.Errorf("expected access denied, got %v", err)
		}
	})

	t.Run("reviewer allowed", func(t *testing.T) {
		req2 := newRequest(t, s)
		if _, err := c.Decide(context.Background(), req2.ID, Actor{ID: "reviewer-1"}, DecideInput{Action: "reject"}); err != nil {
			t.Errorf("reviewer should decide: %v", err)
		}
	})

	t.Run("override role forces progression and is recorded", func(t *testing.T) {
		req3 := newRequest(t, s)
		actor := Actor{ID: "board-member", Type: "user", Role: "founder"}
		if _, err := c.Decide(context.Background(), req3.ID, actor, DecideInput{Action: "approve"}); err != nil {
			t.Fatalf("override role should decide: %v", err)
		}
		entries, _ := s.ListApprovalHistory(context.Background(), req3.ID)
		found := false
		for _, e := range entries {
			if e.Action == "decided" && e.Details["override"] == true {
				found = true
			}
		}
		if !found {
			t.Error("override decision must be recorded explicitly in history")
		}
	})

	t.Run("unknown role denied", func(t *testing.T) {
		req4 := newRequest(t, s)
		_, err := c.Decide(context.Background(), req4.ID, Actor{ID: "x", Role: "intern"}, DecideInput{Action: "approve"})
		if !errors.Is(err, ErrAccessDenied) {
			t.Errorf("expected access denied, got %v", err)
		}
	})
}

func TestDecideInvalidAction(t *testing.T) {
	s := newFakeStore()
	c := NewCoordinator(s, &fakeOrchestrator{}, time.Second, discardLogger())
	req := newRequest(t, s)

	_, err := c.Decide(context.Background(), req.ID, Actor{ID: "owner-1"}, DecideInput{Action: "defer"})
	if !errors.Is(err, ErrInvalidAction) {
		t.Errorf("expected invalid action, got %v", err)
	}

	stored, _ := s.GetApprovalRequest(context.Background(), req.ID)
	if stored.Status != store.ApprovalPending {
		t.Error("invalid action must not transition the request")
	}
}

func TestNotificationFailureDoesNotUndoDecision(t *testing.T) {
	s := newFakeStore()
	orch := &fakeOrchestrator{fail: true}
	c := NewCoordinator(s, orch, time.Second, discardLogger())
	req := newRequest(t, s)

	updated, err := c.Decide(context.Background(), req.ID, Actor{ID: "owner-1"}, DecideInput{Action: "approve"})
	if err != nil {
		t.Fatalf("decision must survive a failed notification: %v", err)
	}
	if updated.Status != store.ApprovalApproved {
		t.Errorf("status: got %s", updated.Status)
	}

	stored, _ := s.GetApprovalRequest(context.Background(), req.ID)
	if stored.Status != store.ApprovalApproved {
		t.Error("stored decision rolled back after notification failure")
	}
}

func TestGetRecordsView(t *testing.T) {
	s := newFakeStore()
	c := NewCoordinator(s, &fakeOrchestrator{}, time.Second, discardLogger())
	req := newRequest(t, s)

	if _, err := c.Get(context.Background(), req.ID, Actor{ID: "owner-1", Type: "user"}); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	entries, _ := s.ListApprovalHistory(context.Background(), req.ID)
	if len(entries) != 1 || entries[0].Action != "viewed" {
		t.Errorf("expected one viewed entry, got %+v", entries)
	}

	t.Run("not found distinct from denied", func(t *testing.T) {
		_, err := c.Get(context.Background(), uuid.New(), Actor{ID: "owner-1"})
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		_, err = c.Get(context.Background(), req.ID, Actor{ID: "stranger"})
		if !errors.Is(err, ErrAccessDenied) {
			t.Errorf("expected access denied, got %v", err)
		}
	})
}

func TestMapDecision(t *testing.T) {
	tests := []struct {
		action, label, want string
	}{
		{"approve", "", "approved"},
		{"reject", "", "rejected"},
		{"approve", "approve", "approved"},
		{"approve", "approved", "approved"},
		{"reject", "rejected", "rejected"},
		{"approve", "conditionally_approved", "conditionally_approved"},
	}
	for _, tt := range tests {
		if got := MapDecision(tt.action, tt.label); got != tt.want {
			t.Errorf("MapDecision(%q, %q) = %q, want %q", tt.action, tt.label, got, tt.want)
		}
	}
}
