package store

import (
	"errors"
	"testing"
)

func TestApprovalStatusValues(t *testing.T) {
	statuses := []ApprovalStatus{ApprovalPending, ApprovalApproved, ApprovalRejected}
	expected := []string{"pending", "approved", "rejected"}
	for i, s := range statuses {
		if string(s) != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], s)
		}
	}
}

func TestDomainErrorsAreDistinct(t *testing.T) {
	if errors.Is(ErrNotFound, ErrConflict) {
		t.Error("ErrNotFound and ErrConflict must be distinguishable")
	}
}

func TestApprovalRequestZeroValue(t *testing.T) {
	req := ApprovalRequest{}
	if req.DecidedAt != nil {
		t.Error("expected nil decided_at on an undecided request")
	}
	if req.Decision != "" {
		t.Error("expected empty decision on an undecided request")
	}
}
