// Package budget tracks cumulative agent spend against a hard limit and
// trips a durable system-wide stop when the limit is crossed.
package budget

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/covehq/wavegate/internal/signal"
)

// Status is the derived budget state.
type Status string

const (
	StatusOK       Status = "OK"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
	StatusExceeded Status = "EXCEEDED"
)

// Thresholds are fractions of the limit delimiting half-open status
// intervals: [0,warning) OK, [warning,critical) WARNING,
// [critical,exceeded) CRITICAL, [exceeded,∞) EXCEEDED.
type Thresholds struct {
	Warning  float64 `yaml:"warning"`
	Critical float64 `yaml:"critical"`
	Exceeded float64 `yaml:"exceeded"`
}

// DefaultThresholds returns the 70/90/100% defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 0.70, Critical: 0.90, Exceeded: 1.00}
}

// StatusFor maps a spend ratio to a status. Boundaries belong to the
// higher status: spend exactly at the warning fraction is WARNING.
func (t Thresholds) StatusFor(ratio float64) Status {
	switch {
	case ratio >= t.Exceeded:
		return StatusExceeded
	case ratio >= t.Critical:
		return StatusCritical
	case ratio >= t.Warning:
		return StatusWarning
	default:
		return StatusOK
	}
}

// Labels identify whose spend this breaker tracks, carried into audit
// records when the breaker trips.
type Labels struct {
	Agent string
	Wave  int
	Story string
}

// Config configures a Breaker.
type Config struct {
	Limit      float64
	Thresholds Thresholds // zero value means DefaultThresholds
	Labels     Labels
}

// Notification carries a threshold-crossing event to the host hook.
type Notification struct {
	Status     Status
	Spent      float64
	Limit      float64
	Percentage float64
}

// NotifyFunc receives threshold notifications synchronously.
type NotifyFunc func(Notification)

// AuditRecord is the structured payload emitted when the breaker trips.
type AuditRecord struct {
	Timestamp  time.Time
	Event      string
	Action     string
	Agent      string
	Wave       int
	Story      string
	Spent      float64
	Budget     float64
	Percentage float64
}

// AuditFunc receives audit records synchronously.
type AuditFunc func(AuditRecord)

// Error is a machine-readable refusal reason.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Decision is the outcome of a budget check, shaped for direct use by a
// request-gating layer. Budget exhaustion is a valid blocked outcome,
// not a Go error.
type Decision struct {
	Status     Status
	Blocked    bool
	StatusCode int
	Percentage float64
	Error      *Error
	Headers    map[string]string
}

// Breaker owns one running spend total. Recording is pure arithmetic;
// only the EXCEEDED transition has a filesystem side effect, and that
// write is idempotent: whichever concurrent commit lands last, the
// content derives purely from current state.
type Breaker struct {
	store      signal.Store
	thresholds Thresholds
	labels     Labels
	notify     NotifyFunc
	audit      AuditFunc
	now        func() time.Time

	mu    sync.Mutex
	limit float64
	spent float64
}

// New creates a Breaker over the given store.
func New(store signal.Store, cfg Config) *Breaker {
	th := cfg.Thresholds
	if th == (Thresholds{}) {
		th = DefaultThresholds()
	}
	return &Breaker{
		store:      store,
		thresholds: th,
		labels:     cfg.Labels,
		now:        time.Now,
		limit:      cfg.Limit,
	}
}

// OnNotify registers the threshold notification hook.
func (b *Breaker) OnNotify(fn NotifyFunc) {
	b.notify = fn
}

// OnAudit registers the audit hook.
func (b *Breaker) OnAudit(fn AuditFunc) {
	b.audit = fn
}

// RecordSpend adds to the running total. The total is monotonically
// non-decreasing; non-positive amounts are ignored. No I/O happens here.
func (b *Breaker) RecordSpend(amount float64) {
	if amount <= 0 {
		return
	}
	b.mu.Lock()
	b.spent += amount
	b.mu.Unlock()
}

// Spent returns the running total.
func (b *Breaker) Spent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spent
}

// Limit returns the configured hard limit.
func (b *Breaker) Limit() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit
}

// CheckAndEnforce computes the budget status and, on EXCEEDED, durably
// trips the system-wide stop. Re-checking an already-exceeded budget
// rewrites the same sentinel rather than erroring or duplicating.
// Filesystem failures propagate; the caller owns retry policy.
func (b *Breaker) CheckAndEnforce() (Decision, error) {
	b.mu.Lock()
	spent, limit := b.spent, b.limit
	b.mu.Unlock()

	var ratio float64
	switch {
	case limit > 0:
		ratio = spent / limit
	case spent > 0:
		ratio = math.Inf(1)
	}
	pct := ratio * 100
	if math.IsInf(pct, 1) {
		// Zero limit with positive spend still classifies as exceeded,
		// but +Inf breaks hosts that JSON-marshal the record.
		pct = 100
	}
	status := b.thresholds.StatusFor(ratio)

	switch status {
	case StatusWarning, StatusCritical:
		b.send(Notification{Status: status, Spent: spent, Limit: limit, Percentage: pct})

	case StatusExceeded:
		reason := fmt.Sprintf("BUDGET EXCEEDED: spent %.2f of %.2f limit", spent, limit)
		sentinel := signal.SentinelText("E4", reason,
			fmt.Sprintf("spent: %.2f", spent),
			fmt.Sprintf("limit: %.2f", limit),
		)
		if err := b.store.Write(signal.SentinelName, sentinel); err != nil {
			return Decision{}, fmt.Errorf("write emergency sentinel: %w", err)
		}
		b.send(Notification{Status: status, Spent: spent, Limit: limit, Percentage: pct})
		if b.audit != nil {
			b.audit(AuditRecord{
				Timestamp:  b.now().UTC(),
				Event:      "budget_exceeded",
				Action:     "emergency_stop_triggered",
				Agent:      b.labels.Agent,
				Wave:       b.labels.Wave,
				Story:      b.labels.Story,
				Spent:      spent,
				Budget:     limit,
				Percentage: pct,
			})
		}
		return Decision{
			Status:     StatusExceeded,
			Blocked:    true,
			StatusCode: 503,
			Percentage: pct,
			Error:      &Error{Type: "budget_exceeded", Message: reason},
			Headers:    map[string]string{"Retry-After": "3600"},
		}, nil
	}

	return Decision{Status: status, StatusCode: 200, Percentage: pct}, nil
}

// ClearEmergencyStop removes the sentinel. Refuses without explicit
// confirmation, mirroring the escalator's clear discipline.
func (b *Breaker) ClearEmergencyStop(confirm bool) error {
	if !confirm {
		return fmt.Errorf("refusing to clear emergency stop without explicit confirmation")
	}
	return b.store.Delete(signal.SentinelName)
}

// Reset zeroes the running total.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.spent = 0
	b.mu.Unlock()
}

func (b *Breaker) send(n Notification) {
	if b.notify != nil {
		b.notify(n)
	}
}

// TriggerEmergencyStop writes the system sentinel directly, independent
// of any instance's tracked spend. Operator escape hatch.
func TriggerEmergencyStop(store signal.Store, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("emergency stop reason is required")
	}
	return store.Write(signal.SentinelName, signal.SentinelText("E4", reason))
}
