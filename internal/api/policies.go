package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foundline/crucible/internal/evidence"
	"github.com/foundline/crucible/internal/policy"
	"github.com/foundline/crucible/internal/store"
)

type PoliciesHandler struct {
	store store.Store
}

func NewPoliciesHandler(s store.Store) *PoliciesHandler {
	return &PoliciesHandler{store: s}
}

func gateParam(r *http.Request) (evidence.Dimension, bool) {
	gate := evidence.Dimension(chi.URLParam(r, "gate"))
	return gate, gate.Valid()
}

// Get handles GET /api/v1/gates/{gate}/policy
func (h *PoliciesHandler) Get(w http.ResponseWriter, r *http.Request) {
	gate, ok := gateParam(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid gate")
		return
	}

	ov, err := h.store.GetPolicyOverride(r.Context(), gate)
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"policy":   policy.ResolveEffective(gate, ov),
		"defaults": policy.Defaults(gate),
	})
}

// Put handles PUT /api/v1/gates/{gate}/policy. The body is a partial update;
// out-of-bounds fields are rejected, never clamped.
func (h *PoliciesHandler) Put(w http.ResponseWriter, r *http.Request) {
	gate, ok := gateParam(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid gate")
		return
	}

	var update policy.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := policy.ValidateUpdate(&update); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	ov, err := h.store.UpsertPolicyOverride(r.Context(), gate, &update)
	if err != nil {
		writeDomainErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"policy": policy.ResolveEffective(gate, ov),
	})
}

// Delete handles DELETE /api/v1/gates/{gate}/policy. Removing the override
// reverts to defaults; deleting an absent override is fine.
func (h *PoliciesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	gate, ok := gateParam(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid gate")
		return
	}

	if err := h.store.DeletePolicyOverride(r.Context(), gate); err != nil {
		writeDomainErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"policy": policy.Defaults(gate),
	})
}
