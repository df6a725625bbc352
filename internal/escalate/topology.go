// Package escalate writes and clears scoped stop facts in the
// coordination directory, cascading from a single agent up to the whole
// system, and tracks an ordered escalation history.
package escalate

import "sort"

// Topology is the static agent grouping the escalator resolves scopes
// against: named domains, numbered waves, and the full agent set. It is
// configuration supplied at construction, never computed here.
type Topology struct {
	Domains map[string][]string `yaml:"domains"`
	Waves   map[int][]string    `yaml:"waves"`
	Agents  []string            `yaml:"agents"`
}

// HasAgent reports whether the agent is known to the topology.
func (t Topology) HasAgent(id string) bool {
	for _, a := range t.Agents {
		if a == id {
			return true
		}
	}
	return false
}

// DomainAgents returns a sorted copy of the domain's agent set and
// whether the domain exists.
func (t Topology) DomainAgents(domain string) ([]string, bool) {
	agents, ok := t.Domains[domain]
	if !ok {
		return nil, false
	}
	return sortedCopy(agents), true
}

// WaveAgents returns a sorted copy of the wave's agent set and whether
// the wave exists.
func (t Topology) WaveAgents(wave int) ([]string, bool) {
	agents, ok := t.Waves[wave]
	if !ok {
		return nil, false
	}
	return sortedCopy(agents), true
}

// AllAgents returns a sorted copy of every known agent.
func (t Topology) AllAgents() []string {
	return sortedCopy(t.Agents)
}

func sortedCopy(agents []string) []string {
	out := make([]string, len(agents))
	copy(out, agents)
	sort.Strings(out)
	return out
}
