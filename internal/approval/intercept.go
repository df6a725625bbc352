package approval

// DecisionError is the machine-readable reason a request was refused.
type DecisionError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Decision is what a transport adapter turns into an actual protocol
// response. This package never speaks HTTP itself.
type Decision struct {
	Allowed    bool
	StatusCode int
	Result     Result
	Error      *DecisionError
}

// AuditEvent is the payload handed to the audit hook for every
// intercepted operation.
type AuditEvent struct {
	Operation string
	Level     Level
	Approved  bool
}

// AuditFunc is invoked synchronously with each gate decision.
type AuditFunc func(AuditEvent)

// OnDecision registers the audit hook. Pass nil to remove it.
func (g *Gate) OnDecision(fn AuditFunc) {
	g.audit = fn
}

// Intercept runs Require for an inbound operation and shapes the outcome
// for a request-gating layer: a 403-equivalent refusal carrying the
// policy code, or an allow with the approval result attached.
func (g *Gate) Intercept(wave int, operation string, opts CheckOptions) Decision {
	res := g.Require(wave, operation, opts)
	if g.audit != nil {
		g.audit(AuditEvent{Operation: operation, Level: res.Level, Approved: res.Approved})
	}

	if !res.Approved {
		return Decision{
			StatusCode: 403,
			Result:     res,
			Error:      &DecisionError{Type: string(res.Code), Message: res.Message},
		}
	}
	return Decision{Allowed: true, StatusCode: 200, Result: res}
}
