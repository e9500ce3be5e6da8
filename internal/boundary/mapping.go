package boundary

import "sort"

// Row is one raw record from the row source, keyed by the source's snake_case
// column names. The tables below are the single place the source naming
// convention is translated into the normalized model; nothing downstream may
// rely on the source shape structurally.
type Row map[string]interface{}

// EvidenceFieldMap maps evidence row columns to normalized Evidence fields.
var EvidenceFieldMap = map[string]string{
	"id":               "ID",
	"project_id":       "ProjectID",
	"title":            "Title",
	"category":         "Category",
	"summary":          "Summary",
	"strength":         "Strength",
	"fit_type":         "FitType",
	"is_contradiction": "IsContradiction",
	"source_type":      "SourceType",
	"created_at":       "CreatedAt",
	"updated_at":       "UpdatedAt",
}

// StateFieldMap maps validation-state row columns to normalized
// ValidationState fields.
var StateFieldMap = map[string]string{
	"id":                    "ID",
	"project_id":            "ProjectID",
	"iteration":             "Iteration",
	"desirability_signal":   "DesirabilitySignal",
	"desirability_evidence": "DesirabilityEvidence",
	"feasibility_signal":    "FeasibilitySignal",
	"feasibility_evidence":  "FeasibilityEvidence",
	"viability_signal":      "ViabilitySignal",
	"viability_evidence":    "ViabilityEvidence",
	"updated_at":            "UpdatedAt",
}

// evidenceRequired lists the evidence columns that must be present and
// well-formed for a row to validate.
var evidenceRequired = []string{"id", "project_id", "title", "category", "strength"}

// stateRequired lists the validation-state columns that must be present and
// well-formed for a row to validate.
var stateRequired = []string{"id", "project_id", "iteration"}

// EvidenceColumns returns the source column names of the evidence mapping in
// sorted order. The store builds its SELECT list from this, so the mapping
// table stays the single source of truth for the row shape.
func EvidenceColumns() []string { return sortedKeys(EvidenceFieldMap) }

// StateColumns returns the source column names of the validation-state
// mapping in sorted order.
func StateColumns() []string { return sortedKeys(StateFieldMap) }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
