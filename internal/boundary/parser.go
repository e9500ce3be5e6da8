package boundary

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foundline/crucible/internal/evidence"
)

// Mode selects how the parser treats malformed rows.
type Mode string

const (
	// ModeOpen validates rows independently: malformed rows are dropped and
	// their issues sampled into diagnostics, valid rows are still returned.
	ModeOpen Mode = "open"
	// ModeClosed aborts the whole batch on the first malformed row.
	ModeClosed Mode = "closed"
)

// Options configures a Parser.
type Options struct {
	Mode Mode
	// Strict forces closed-mode behavior regardless of Mode. Used in staging
	// and test environments.
	Strict bool
	// MaxLoggedIssues bounds how many issues one diagnostic line carries.
	MaxLoggedIssues int
	// SampleRate is the probability that a batch's drop diagnostics are
	// logged at all, bounding validation overhead on hot paths.
	SampleRate float64
}

// ValidationError aborts a closed-mode batch. It names the first offending
// row; no partial results accompany it.
type ValidationError struct {
	Entity string
	Row    int
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("boundary validation failed: %s row %d: %s", e.Entity, e.Row, strings.Join(e.Issues, "; "))
}

// Parser validates and normalizes raw rows into typed entities. It is
// stateless apart from its options and safe for concurrent use; the optional
// per-batch memo is supplied by the caller.
type Parser struct {
	opts   Options
	logger *slog.Logger
	sample func() float64
}

// NewParser builds a Parser. Zero-valued options get safe defaults: open
// mode, 5 logged issues, full sampling.
func NewParser(opts Options, logger *slog.Logger) *Parser {
	if opts.Mode == "" {
		opts.Mode = ModeOpen
	}
	if opts.MaxLoggedIssues <= 0 {
		opts.MaxLoggedIssues = 5
	}
	if opts.SampleRate <= 0 || opts.SampleRate > 1 {
		opts.SampleRate = 1.0
	}
	return &Parser{opts: opts, logger: logger, sample: rand.Float64}
}

func (p *Parser) closed() bool {
	return p.opts.Strict || p.opts.Mode == ModeClosed
}

// ParseEvidenceRows normalizes user evidence rows. A non-empty batchID with a
// non-nil memo makes the batch parse-once: repeated calls for the same batch
// identity return the memoized result without re-reading the rows.
func (p *Parser) ParseEvidenceRows(memo *Memo, batchID string, rows []Row) ([]evidence.Evidence, error) {
	if out, ok := memo.getEvidence(batchID); ok {
		return out, nil
	}

	out := make([]evidence.Evidence, 0, len(rows))
	var dropped []droppedRow
	for i, row := range rows {
		e, issues := parseEvidenceRow(row)
		if len(issues) > 0 {
			if p.closed() {
				return nil, &ValidationError{Entity: "evidence", Row: i, Issues: issues}
			}
			dropped = append(dropped, droppedRow{index: i, issues: issues})
			continue
		}
		out = append(out, e)
	}
	p.logDropped("evidence", len(rows), dropped)

	memo.putEvidence(batchID, out)
	return out, nil
}

// ParseStateRows normalizes automated validation-state rows, with the same
// mode and memo semantics as ParseEvidenceRows.
func (p *Parser) ParseStateRows(memo *Memo, batchID string, rows []Row) ([]evidence.ValidationState, error) {
	if out, ok := memo.getStates(batchID); ok {
		return out, nil
	}

	out := make([]evidence.ValidationState, 0, len(rows))
	var dropped []droppedRow
	for i, row := range rows {
		s, issues := parseStateRow(row)
		if len(issues) > 0 {
			if p.closed() {
				return nil, &ValidationError{Entity: "validation_state", Row: i, Issues: issues}
			}
			dropped = append(dropped, droppedRow{index: i, issues: issues})
			continue
		}
		out = append(out, s)
	}
	p.logDropped("validation_state", len(rows), dropped)

	memo.putStates(batchID, out)
	return out, nil
}

type droppedRow struct {
	index  int
	issues []string
}

func (p *Parser) logDropped(entity string, total int, dropped []droppedRow) {
	if len(dropped) == 0 || p.logger == nil {
		return
	}
	if p.sample() >= p.opts.SampleRate {
		return
	}
	samples := make([]string, 0, p.opts.MaxLoggedIssues)
	for _, d := range dropped {
		for _, issue := range d.issues {
			if len(samples) >= p.opts.MaxLoggedIssues {
				break
			}
			samples = append(samples, fmt.Sprintf("row %d: %s", d.index, issue))
		}
		if len(samples) >= p.opts.MaxLoggedIssues {
			break
		}
	}
	p.logger.Warn("dropped malformed rows",
		"entity", entity,
		"total_rows", total,
		"dropped", len(dropped),
		"sample_issues", samples,
	)
}

func missingColumns(row Row, required []string) []string {
	var issues []string
	for _, col := range required {
		if v, ok := row[col]; !ok || v == nil {
			issues = append(issues, "missing column: "+col)
		}
	}
	return issues
}

func parseEvidenceRow(row Row) (evidence.Evidence, []string) {
	if issues := missingColumns(row, evidenceRequired); len(issues) > 0 {
		return evidence.Evidence{}, issues
	}
	var issues []string

	id, ok := uuidField(row, "id")
	if !ok {
		issues = append(issues, "missing or invalid id")
	}
	projectID, ok := uuidField(row, "project_id")
	if !ok {
		issues = append(issues, "missing or invalid project_id")
	}
	title, ok := stringField(row, "title")
	if !ok || title == "" {
		issues = append(issues, "missing title")
	}
	category := evidence.Category(stringOr(row, "category", ""))
	if !category.Valid() {
		issues = append(issues, "invalid category: "+string(category))
	}
	strength := evidence.Strength(stringOr(row, "strength", ""))
	if !strength.Valid() {
		issues = append(issues, "invalid strength: "+string(strength))
	}
	if len(issues) > 0 {
		return evidence.Evidence{}, issues
	}

	createdAt := timeField(row, "created_at")
	updatedAt := timeField(row, "updated_at")

	return evidence.Evidence{
		ID:              id,
		ProjectID:       projectID,
		Title:           title,
		Category:        category,
		Summary:         stringOr(row, "summary", ""),
		Strength:        strength,
		FitType:         stringOr(row, "fit_type", ""),
		IsContradiction: boolOr(row, "is_contradiction", false),
		SourceType:      stringOr(row, "source_type", ""),
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

func parseStateRow(row Row) (evidence.ValidationState, []string) {
	if issues := missingColumns(row, stateRequired); len(issues) > 0 {
		return evidence.ValidationState{}, issues
	}
	var issues []string

	id, ok := uuidField(row, "id")
	if !ok {
		issues = append(issues, "missing or invalid id")
	}
	projectID, ok := uuidField(row, "project_id")
	if !ok {
		issues = append(issues, "missing or invalid project_id")
	}
	iteration, ok := intField(row, "iteration")
	if !ok || iteration < 1 {
		issues = append(issues, "iteration must be a positive integer")
	}

	dSig, err := desirabilitySignal(stringOr(row, "desirability_signal", string(evidence.DesirabilityNoSignal)))
	if err != nil {
		issues = append(issues, err.Error())
	}
	fSig, err := feasibilitySignal(stringOr(row, "feasibility_signal", string(evidence.FeasibilityNoSignal)))
	if err != nil {
		issues = append(issues, err.Error())
	}
	vSig, err := viabilitySignal(stringOr(row, "viability_signal", string(evidence.ViabilityNoSignal)))
	if err != nil {
		issues = append(issues, err.Error())
	}
	if len(issues) > 0 {
		return evidence.ValidationState{}, issues
	}

	return evidence.ValidationState{
		ID:                   id,
		ProjectID:            projectID,
		Iteration:            iteration,
		DesirabilitySignal:   dSig,
		DesirabilityEvidence: payloadField(row, "desirability_evidence"),
		FeasibilitySignal:    fSig,
		FeasibilityEvidence:  payloadField(row, "feasibility_evidence"),
		ViabilitySignal:      vSig,
		ViabilityEvidence:    payloadField(row, "viability_evidence"),
		UpdatedAt:            timeField(row, "updated_at"),
	}, nil
}

func desirabilitySignal(v string) (evidence.DesirabilitySignal, error) {
	for _, s := range evidence.DesirabilitySignals {
		if string(s) == v {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid desirability_signal: %s", v)
}

func feasibilitySignal(v string) (evidence.FeasibilitySignal, error) {
	for _, s := range evidence.FeasibilitySignals {
		if string(s) == v {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid feasibility_signal: %s", v)
}

func viabilitySignal(v string) (evidence.ViabilitySignal, error) {
	for _, s := range evidence.ViabilitySignals {
		if string(s) == v {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid viability_signal: %s", v)
}

// --- field extraction ---

func stringField(row Row, key string) (string, bool) {
	v, ok := row[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func stringOr(row Row, key, fallback string) string {
	if s, ok := stringField(row, key); ok {
		return s
	}
	return fallback
}

func boolOr(row Row, key string, fallback bool) bool {
	if v, ok := row[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

func uuidField(row Row, key string) (uuid.UUID, bool) {
	v, ok := row[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	switch t := v.(type) {
	case uuid.UUID:
		return t, true
	case [16]byte:
		return uuid.UUID(t), true
	case string:
		id, err := uuid.Parse(t)
		return id, err == nil
	}
	return uuid.Nil, false
}

func intField(row Row, key string) (int, bool) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	}
	return 0, false
}

// timeField parses a timestamp defensively. Unparseable or absent values
// resolve to the current instant, never to an error: a null updated_at must
// not take down the aggregation path downstream.
func timeField(row Row, key string) time.Time {
	v, ok := row[key]
	if !ok || v == nil {
		return time.Now().UTC()
	}
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Now().UTC()
		}
		return t
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts
			}
		}
	case int64:
		return time.Unix(t, 0).UTC()
	case float64:
		return time.Unix(int64(t), 0).UTC()
	}
	return time.Now().UTC()
}

// payloadField decodes an opaque structured payload. nil stays nil; unusable
// values also resolve to nil, which downstream treats as "no evidence".
func payloadField(row Row, key string) map[string]interface{} {
	v, ok := row[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case map[string]interface{}:
		return t
	case []byte:
		var m map[string]interface{}
		if err := json.Unmarshal(t, &m); err == nil {
			return m
		}
	case string:
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(t), &m); err == nil {
			return m
		}
	}
	return nil
}
