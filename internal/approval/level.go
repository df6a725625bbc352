// Package approval classifies operations into approval levels and
// verifies approval facts in the coordination directory.
package approval

import "fmt"

// Level is the required sign-off for an operation. Higher is more
// permissive: L0 is forbidden outright, L5 needs no approval at all.
type Level int

const (
	L0 Level = iota // forbidden, never approvable
	L1              // human sign-off
	L2              // CTO approval
	L3              // PM approval
	L4              // QA review
	L5              // auto-allowed
)

// String returns the canonical level identifier.
func (l Level) String() string {
	if l < L0 || l > L5 {
		return fmt.Sprintf("unknown(%d)", int(l))
	}
	return fmt.Sprintf("L%d", int(l))
}

// Role returns the workflow role whose sign-off satisfies this level.
// L0 and L5 have no approving role.
func (l Level) Role() string {
	switch l {
	case L1:
		return "HUMAN"
	case L2:
		return "CTO"
	case L3:
		return "PM"
	case L4:
		return "QA"
	default:
		return ""
	}
}
