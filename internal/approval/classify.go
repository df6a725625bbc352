package approval

import "strings"

// Classify maps an operation identifier to its required approval level.
// Forbidden predicates are evaluated first and always win; known
// operations use the table; anything unrecognized requires human
// sign-off (fail-closed).
func Classify(operation string) Level {
	op := strings.ToLower(strings.TrimSpace(operation))
	for _, match := range forbidden {
		if match(op) {
			return L0
		}
	}
	if level, ok := knownOperations[op]; ok {
		return level
	}
	return L1
}

// forbidden are pure predicates for operations that no approval fact can
// ever unlock. Ordered, first match wins, checked before everything else.
var forbidden = []func(string) bool{
	isDatabaseDrop,
	isProtectedForcePush,
	isRecursiveRootDelete,
}

func isDatabaseDrop(op string) bool {
	if !strings.Contains(op, "drop") {
		return false
	}
	return strings.Contains(op, "database") || strings.Contains(op, "db") ||
		strings.Contains(op, "table") || strings.Contains(op, "schema")
}

var protectedBranches = []string{"main", "master", "prod", "release"}

func isProtectedForcePush(op string) bool {
	if !strings.Contains(op, "force") || !strings.Contains(op, "push") {
		return false
	}
	for _, branch := range protectedBranches {
		if strings.Contains(op, branch) {
			return true
		}
	}
	return false
}

func isRecursiveRootDelete(op string) bool {
	const marker = "rm -rf /"
	idx := strings.Index(op, marker)
	if idx < 0 {
		return strings.Contains(op, "recursive_root_delete")
	}
	rest := op[idx+len(marker):]
	return rest == "" || rest == "*" || strings.HasPrefix(rest, " ")
}

// knownOperations maps normalized operation names to levels. Consulted
// only after the forbidden predicates.
var knownOperations = map[string]Level{
	// L1, human sign-off: merges, migrations, schema, security config,
	// data deletion.
	"merge_to_main":          L1,
	"database_migration":     L1,
	"schema_change":          L1,
	"security_config_change": L1,
	"data_deletion":          L1,

	// L2, CTO: architectural surface changes.
	"create_module":           L2,
	"modify_shared_interface": L2,
	"introduce_pattern":       L2,
	"change_response_format":  L2,

	// L3, PM: story lifecycle approvals.
	"assign_story":             L3,
	"approve_gate_and_merge":   L3,
	"approve_story_completion": L3,

	// L4, QA review.
	"code_review":       L4,
	"run_tests":         L4,
	"verify_acceptance": L4,

	// L5, auto-allowed day-to-day agent work.
	"read_file":             L5,
	"write_file_in_domain":  L5,
	"install_packages":      L5,
	"build":                 L5,
	"test":                  L5,
	"commit_feature_branch": L5,
	"create_signal":         L5,
}
