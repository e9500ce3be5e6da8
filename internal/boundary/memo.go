package boundary

import (
	"sync"

	"github.com/foundline/crucible/internal/evidence"
)

// Memo caches parse results per batch identity within a single request cycle.
// It is an optional performance aid, never a cache of record: it may be
// dropped at any time, holds no ownership over the underlying rows, and must
// not be shared across requests.
type Memo struct {
	mu       sync.Mutex
	evidence map[string][]evidence.Evidence
	states   map[string][]evidence.ValidationState
}

// NewMemo returns an empty memo. A nil *Memo is valid and disables caching.
func NewMemo() *Memo {
	return &Memo{
		evidence: make(map[string][]evidence.Evidence),
		states:   make(map[string][]evidence.ValidationState),
	}
}

func (m *Memo) getEvidence(batchID string) ([]evidence.Evidence, bool) {
	if m == nil || batchID == "" {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.evidence[batchID]
	return out, ok
}

func (m *Memo) putEvidence(batchID string, out []evidence.Evidence) {
	if m == nil || batchID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evidence[batchID] = out
}

func (m *Memo) getStates(batchID string) ([]evidence.ValidationState, bool) {
	if m == nil || batchID == "" {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.states[batchID]
	return out, ok
}

func (m *Memo) putStates(batchID string, out []evidence.ValidationState) {
	if m == nil || batchID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[batchID] = out
}

// Drop discards everything the memo holds.
func (m *Memo) Drop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evidence = make(map[string][]evidence.Evidence)
	m.states = make(map[string][]evidence.ValidationState)
}
