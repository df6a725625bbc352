package signal

import (
	"fmt"
	"strings"
	"time"
)

// SentinelName is the fixed name of the system-wide stop fact. Its
// existence halts every agent.
const SentinelName = "EMERGENCY-STOP"

// AgentStopName returns the per-agent stop fact name. Existence means the
// agent must halt.
func AgentStopName(agentID string) string {
	return "STOP-" + agentID + ".json"
}

// WaveStopName returns the per-wave stop fact name. Existence means every
// agent in the wave must halt. Written in addition to, not instead of,
// the per-agent facts.
func WaveStopName(wave int) string {
	return fmt.Sprintf("STOP-WAVE-%d.json", wave)
}

// ApprovalName returns the approval fact name for a wave and workflow
// role (HUMAN, CTO, PM, QA).
func ApprovalName(wave int, role string) string {
	return fmt.Sprintf("WAVE-%d-%s-APPROVED.json", wave, role)
}

// ApprovalRequestName returns the pending-approval fact name for a wave
// and workflow role.
func ApprovalRequestName(wave int, role string) string {
	return fmt.Sprintf("WAVE-%d-%s-APPROVAL-NEEDED.json", wave, role)
}

// SentinelText renders the plain-text system stop sentinel: a grep-able
// reason, the triggering level, a timestamp, and any extra key figures
// (budget spend, limits) one per line.
func SentinelText(level, reason string, extra ...string) []byte {
	var b strings.Builder
	b.WriteString("EMERGENCY STOP\n")
	b.WriteString("level: " + level + "\n")
	b.WriteString("reason: " + reason + "\n")
	b.WriteString("time: " + time.Now().UTC().Format(time.RFC3339) + "\n")
	for _, line := range extra {
		b.WriteString(line + "\n")
	}
	return []byte(b.String())
}
