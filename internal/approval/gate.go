package approval

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/covehq/wavegate/internal/signal"
)

// DefaultTimeout is the approval validity window, measured from the
// fact's timestamp. A fact exactly at the boundary is still valid.
const DefaultTimeout = 24 * time.Hour

// Code identifies why an approval check failed. Policy outcomes are
// values, never Go errors: callers always get a Result to act on.
type Code string

const (
	CodeApprovalRequired   Code = "approval_required"
	CodeApprovalExpired    Code = "approval_expired"
	CodeForbiddenOperation Code = "forbidden_operation"
	CodeSeparationOfDuties Code = "separation_of_duties_violation"
)

// Fact is the structured content of an approval signal.
type Fact struct {
	Operation   string    `json:"operation"`
	Approver    string    `json:"approver"`
	Requester   string    `json:"requester"`
	Timestamp   time.Time `json:"timestamp"`
	RiskLevel   string    `json:"risk_level,omitempty"`
	Description string    `json:"description,omitempty"`
}

// CheckOptions tune approval verification.
type CheckOptions struct {
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
	// StrictOperationMatch requires the fact's recorded operation to
	// equal the requested one.
	StrictOperationMatch bool
	// EnforceSoD rejects facts whose approver matches their requester
	// (case-insensitive) during chain validation.
	EnforceSoD bool
}

func (o CheckOptions) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

// CheckResult reports whether a valid approval fact exists. Expired
// distinguishes a stale fact from a missing one; both mean Exists=false.
type CheckResult struct {
	Exists  bool
	Expired bool
	Fact    *Fact
}

// Result is the outcome of requiring approval for one operation.
type Result struct {
	Approved bool
	Level    Level
	Code     Code
	Message  string
	Fact     *Fact
}

// ChainResult reports multi-step chain validation. Missing preserves the
// order of unmet steps.
type ChainResult struct {
	Valid   bool
	Missing []Result
}

// Request describes an approval being asked for.
type Request struct {
	Wave        int
	Operation   string
	Requester   string
	Description string
	RiskLevel   string
}

// Gate verifies operation approvals against a signal store.
type Gate struct {
	store signal.Store
	audit AuditFunc
	now   func() time.Time
}

// NewGate creates a Gate over the given store.
func NewGate(store signal.Store) *Gate {
	return &Gate{store: store, now: time.Now}
}

// Check reports whether a valid approval fact exists for the given wave,
// level, and operation. L5 is auto-allowed and never consults the store;
// L0 can never be satisfied. A missing field, a stale timestamp, or (in
// strict mode) a mismatched operation all read as no approval.
func (g *Gate) Check(wave int, level Level, operation string, opts CheckOptions) CheckResult {
	switch level {
	case L5:
		return CheckResult{Exists: true}
	case L0:
		return CheckResult{}
	}

	raw, err := g.store.Read(signal.ApprovalName(wave, level.Role()))
	if err != nil {
		return CheckResult{}
	}
	var f Fact
	if err := json.Unmarshal(raw, &f); err != nil {
		return CheckResult{}
	}
	if strings.TrimSpace(f.Approver) == "" || f.Timestamp.IsZero() {
		return CheckResult{}
	}
	if opts.StrictOperationMatch && !strings.EqualFold(f.Operation, operation) {
		return CheckResult{}
	}
	if g.now().Sub(f.Timestamp) > opts.timeout() {
		return CheckResult{Expired: true, Fact: &f}
	}
	return CheckResult{Exists: true, Fact: &f}
}

// Require classifies the operation and verifies its approval. Forbidden
// operations are refused regardless of any fact present.
func (g *Gate) Require(wave int, operation string, opts CheckOptions) Result {
	level := Classify(operation)
	if level == L0 {
		return Result{
			Level:   L0,
			Code:    CodeForbiddenOperation,
			Message: fmt.Sprintf("operation %q is forbidden and can never be approved", operation),
		}
	}

	cr := g.Check(wave, level, operation, opts)
	switch {
	case cr.Exists:
		return Result{Approved: true, Level: level, Fact: cr.Fact}
	case cr.Expired:
		return Result{
			Level:   level,
			Code:    CodeApprovalExpired,
			Message: fmt.Sprintf("%s approval for %q has expired", level.Role(), operation),
			Fact:    cr.Fact,
		}
	default:
		return Result{
			Level:   level,
			Code:    CodeApprovalRequired,
			Message: fmt.Sprintf("operation %q requires %s approval (%s)", operation, level.Role(), level),
		}
	}
}

// ValidateChain runs Require for each step in order, collecting every
// unmet step. With EnforceSoD set, a fact whose approver matches its
// requester fails that step outright; no further checks run for it.
func (g *Gate) ValidateChain(wave int, steps []string, opts CheckOptions) ChainResult {
	var missing []Result
	for _, op := range steps {
		res := g.Require(wave, op, opts)
		if res.Approved && opts.EnforceSoD && res.Fact != nil &&
			strings.EqualFold(res.Fact.Approver, res.Fact.Requester) {
			res = Result{
				Level:   res.Level,
				Code:    CodeSeparationOfDuties,
				Message: fmt.Sprintf("approver %q matches requester for %q", res.Fact.Approver, op),
				Fact:    res.Fact,
			}
		}
		if !res.Approved {
			missing = append(missing, res)
		}
	}
	return ChainResult{Valid: len(missing) == 0, Missing: missing}
}

// CreateRequest writes a level-appropriate APPROVAL-NEEDED fact and
// returns the signal name it was written under. Forbidden and
// auto-allowed operations have nothing to request.
func (g *Gate) CreateRequest(req Request) (string, error) {
	level := Classify(req.Operation)
	if level == L0 {
		return "", fmt.Errorf("operation %q is forbidden and can never be approved", req.Operation)
	}
	if level == L5 {
		return "", fmt.Errorf("operation %q is auto-allowed, no approval needed", req.Operation)
	}

	name := signal.ApprovalRequestName(req.Wave, level.Role())
	err := g.store.WriteFact(name, map[string]any{
		"request_id":  uuid.NewString(),
		"operation":   req.Operation,
		"level":       level.String(),
		"requester":   req.Requester,
		"description": req.Description,
		"risk_level":  req.RiskLevel,
	})
	if err != nil {
		return "", fmt.Errorf("write approval request: %w", err)
	}
	return name, nil
}

// Approve writes the approval fact that satisfies level for the given
// wave. This is the approver-side action the CLI exposes.
func (g *Gate) Approve(wave int, operation, approver, requester, riskLevel string) (string, error) {
	level := Classify(operation)
	if level == L0 {
		return "", fmt.Errorf("operation %q is forbidden and can never be approved", operation)
	}
	if level == L5 {
		return "", fmt.Errorf("operation %q is auto-allowed, no approval needed", operation)
	}

	name := signal.ApprovalName(wave, level.Role())
	err := g.store.WriteFact(name, map[string]any{
		"operation":  operation,
		"approver":   approver,
		"requester":  requester,
		"risk_level": riskLevel,
	})
	if err != nil {
		return "", fmt.Errorf("write approval fact: %w", err)
	}
	return name, nil
}
