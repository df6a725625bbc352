package escalate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/covehq/wavegate/internal/signal"
)

// Level is the escalation scope, ordered by severity: a higher level
// covers strictly more agents.
type Level int

const (
	E1 Level = iota + 1 // single agent
	E2                  // domain
	E3                  // wave
	E4                  // entire system
)

// String returns the canonical level identifier.
func (l Level) String() string {
	if l < E1 || l > E4 {
		return fmt.Sprintf("unknown(%d)", int(l))
	}
	return fmt.Sprintf("E%d", int(l))
}

// Event is one entry in the append-only escalation history.
type Event struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Action    string    `json:"action"` // "trigger" or "clear"
	Target    string    `json:"target"`
	Reason    string    `json:"reason,omitempty"`
	Agents    []string  `json:"agents,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Result reports what a trigger affected.
type Result struct {
	Level  Level
	Agents []string
}

// Status is the derived overall view: the highest severity among
// triggered-and-uncleared scopes and the union of agents they cover.
type Status struct {
	Level  Level
	Agents []string
	Active bool
}

// ClearOptions selects the scope being cleared. Confirm must be
// explicitly true; nothing here self-heals.
type ClearOptions struct {
	Confirm bool
	Agent   string
	Domain  string
	Wave    int
}

// NotifyFunc is invoked synchronously after every trigger and clear.
type NotifyFunc func(Event)

// Escalator writes scoped stop facts and owns its in-memory history.
// Cross-instance visibility goes through the shared coordination
// directory, never through memory.
type Escalator struct {
	store  signal.Store
	topo   Topology
	notify NotifyFunc
	now    func() time.Time

	mu      sync.Mutex
	history []Event
	active  map[string]Event // scope key → uncleared trigger
}

// New creates an Escalator over the given store and topology.
func New(store signal.Store, topo Topology) *Escalator {
	return &Escalator{
		store:  store,
		topo:   topo,
		now:    time.Now,
		active: make(map[string]Event),
	}
}

// OnEscalation registers the notify hook. Pass nil to remove it.
func (e *Escalator) OnEscalation(fn NotifyFunc) {
	e.notify = fn
}

// TriggerAgent halts a single agent (E1). Unknown agents are a
// configuration error.
func (e *Escalator) TriggerAgent(agentID, reason string) (Result, error) {
	if !e.topo.HasAgent(agentID) {
		return Result{}, fmt.Errorf("unknown agent %q", agentID)
	}
	if err := e.writeAgentStop(agentID, E1, reason); err != nil {
		return Result{}, err
	}
	return e.record(E1, agentID, reason, []string{agentID}), nil
}

// TriggerDomain halts every agent in a named domain (E2). Unknown
// domains are a configuration error.
func (e *Escalator) TriggerDomain(domain, reason string) (Result, error) {
	agents, ok := e.topo.DomainAgents(domain)
	if !ok {
		return Result{}, fmt.Errorf("unknown domain %q", domain)
	}
	for _, agent := range agents {
		if err := e.writeAgentStop(agent, E2, reason); err != nil {
			return Result{}, err
		}
	}
	return e.record(E2, domain, reason, agents), nil
}

// TriggerWave halts every agent in a numbered wave (E3): one stop fact
// per agent plus the wave-level fact. Unknown waves are a configuration
// error.
func (e *Escalator) TriggerWave(wave int, reason string) (Result, error) {
	agents, ok := e.topo.WaveAgents(wave)
	if !ok {
		return Result{}, fmt.Errorf("unknown wave %d", wave)
	}
	for _, agent := range agents {
		if err := e.writeAgentStop(agent, E3, reason); err != nil {
			return Result{}, err
		}
	}
	err := e.store.WriteFact(signal.WaveStopName(wave), map[string]any{
		"level":  E3.String(),
		"target": strconv.Itoa(wave),
		"reason": reason,
	})
	if err != nil {
		return Result{}, err
	}
	return e.record(E3, strconv.Itoa(wave), reason, agents), nil
}

// TriggerSystem halts everything (E4): the system sentinel plus one stop
// fact per known agent. A reason is mandatory.
func (e *Escalator) TriggerSystem(reason string) (Result, error) {
	if strings.TrimSpace(reason) == "" {
		return Result{}, fmt.Errorf("system-wide emergency stop requires a reason")
	}
	if err := e.store.Write(signal.SentinelName, signal.SentinelText(E4.String(), reason)); err != nil {
		return Result{}, err
	}
	agents := e.topo.AllAgents()
	for _, agent := range agents {
		if err := e.writeAgentStop(agent, E4, reason); err != nil {
			return Result{}, err
		}
	}
	return e.record(E4, "system", reason, agents), nil
}

// Status derives the overall view from uncleared triggers: max severity
// and the union of affected agents.
func (e *Escalator) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	var st Status
	union := make(map[string]bool)
	for _, ev := range e.active {
		st.Active = true
		if ev.Level > st.Level {
			st.Level = ev.Level
		}
		for _, a := range ev.Agents {
			union[a] = true
		}
	}
	for a := range union {
		st.Agents = append(st.Agents, a)
	}
	sort.Strings(st.Agents)
	return st
}

// Stopped reports whether any stop fact in the store covers the given
// agent in the given wave: the system sentinel, the wave fact, or the
// agent's own fact. This is the read path request handling composes with
// the approval gate and the budget breaker.
func (e *Escalator) Stopped(agentID string, wave int) bool {
	if e.store.Exists(signal.SentinelName) {
		return true
	}
	if e.store.Exists(signal.WaveStopName(wave)) {
		return true
	}
	return e.store.Exists(signal.AgentStopName(agentID))
}

// Clear removes exactly the facts the corresponding trigger wrote.
// It refuses to act unless Confirm is explicitly set.
func (e *Escalator) Clear(level Level, opts ClearOptions) error {
	if !opts.Confirm {
		return fmt.Errorf("refusing to clear %s without explicit confirmation", level)
	}

	var target string
	switch level {
	case E1:
		if opts.Agent == "" {
			return fmt.Errorf("clearing E1 requires an agent")
		}
		if err := e.store.Delete(signal.AgentStopName(opts.Agent)); err != nil {
			return err
		}
		target = opts.Agent

	case E2:
		agents, ok := e.topo.DomainAgents(opts.Domain)
		if !ok {
			return fmt.Errorf("unknown domain %q", opts.Domain)
		}
		for _, agent := range agents {
			if err := e.store.Delete(signal.AgentStopName(agent)); err != nil {
				return err
			}
		}
		target = opts.Domain

	case E3:
		agents, ok := e.topo.WaveAgents(opts.Wave)
		if !ok {
			return fmt.Errorf("unknown wave %d", opts.Wave)
		}
		for _, agent := range agents {
			if err := e.store.Delete(signal.AgentStopName(agent)); err != nil {
				return err
			}
		}
		if err := e.store.Delete(signal.WaveStopName(opts.Wave)); err != nil {
			return err
		}
		target = strconv.Itoa(opts.Wave)

	case E4:
		if err := e.store.Delete(signal.SentinelName); err != nil {
			return err
		}
		target = "system"

	default:
		return fmt.Errorf("unknown emergency level %d", int(level))
	}

	e.mu.Lock()
	delete(e.active, scopeKey(level, target))
	ev := Event{
		ID:        uuid.NewString(),
		Level:     level,
		Action:    "clear",
		Target:    target,
		Timestamp: e.now().UTC(),
	}
	e.history = append(e.history, ev)
	e.mu.Unlock()

	if e.notify != nil {
		e.notify(ev)
	}
	return nil
}

// History returns the chronological escalation history.
func (e *Escalator) History() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.history))
	copy(out, e.history)
	return out
}

// Reset clears in-memory history and active state only. The filesystem
// is untouched; stop facts survive process reinitialization.
func (e *Escalator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
	e.active = make(map[string]Event)
}

func (e *Escalator) writeAgentStop(agentID string, level Level, reason string) error {
	return e.store.WriteFact(signal.AgentStopName(agentID), map[string]any{
		"level":  level.String(),
		"target": agentID,
		"reason": reason,
	})
}

func (e *Escalator) record(level Level, target, reason string, agents []string) Result {
	ev := Event{
		ID:        uuid.NewString(),
		Level:     level,
		Action:    "trigger",
		Target:    target,
		Reason:    reason,
		Agents:    agents,
		Timestamp: e.now().UTC(),
	}

	e.mu.Lock()
	e.history = append(e.history, ev)
	e.active[scopeKey(level, target)] = ev
	e.mu.Unlock()

	if e.notify != nil {
		e.notify(ev)
	}
	return Result{Level: level, Agents: agents}
}

func scopeKey(level Level, target string) string {
	return level.String() + ":" + target
}
