// Package config loads the host configuration: coordination directory,
// agent topology, budget limits, and approval windows.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/covehq/wavegate/internal/budget"
	"github.com/covehq/wavegate/internal/escalate"
)

// BudgetConfig holds the hard spend limit and status thresholds.
type BudgetConfig struct {
	Limit      float64           `yaml:"limit"`
	Thresholds budget.Thresholds `yaml:"thresholds"`
}

// Config holds all configurable control-plane parameters.
type Config struct {
	CoordinationDir      string            `yaml:"coordination_dir"`
	Topology             escalate.Topology `yaml:"topology"`
	Budget               BudgetConfig      `yaml:"budget"`
	ApprovalTimeoutHours float64           `yaml:"approval_timeout_hours"`
	AuditLog             string            `yaml:"audit_log"`
}

// ApprovalTimeout returns the configured approval validity window.
func (c *Config) ApprovalTimeout() time.Duration {
	return time.Duration(c.ApprovalTimeoutHours * float64(time.Hour))
}

// Default returns the built-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return &Config{
		CoordinationDir: filepath.Join(home, ".wavegate", "coordination"),
		Budget: BudgetConfig{
			Thresholds: budget.DefaultThresholds(),
		},
		ApprovalTimeoutHours: 24,
		AuditLog:             filepath.Join(home, ".wavegate", "governance.jsonl"),
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "wavegate.yaml")
	}
	return filepath.Join(home, ".wavegate", "config.yaml")
}

// Load reads configuration from a YAML file. Empty path falls back to
// the default location; a missing file returns defaults; invalid YAML is
// an error. YAML overwrites only the fields it specifies.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// DefaultYAML returns a commented template for `wavegate init`.
func DefaultYAML() string {
	return `# wavegate configuration
# Generated by: wavegate init
#
# The coordination directory is the single source of truth across
# processes: stop facts, approval facts, and the emergency sentinel all
# live here as flat files.
coordination_dir: ~/.wavegate/coordination

# Static agent topology. The escalator resolves domains and waves against
# this; it never computes membership on its own.
topology:
  domains:
    frontend: [fe-dev-1, fe-dev-2]
    backend: [be-dev-1, be-dev-2]
    qa: [qa-1]
  waves:
    1: [fe-dev-1, be-dev-1]
    2: [fe-dev-2, be-dev-2, qa-1]
  agents: [fe-dev-1, fe-dev-2, be-dev-1, be-dev-2, qa-1]

# Hard spend limit (USD) and status thresholds as fractions of the limit.
# spent/limit in [warning, critical) -> WARNING
# spent/limit in [critical, exceeded) -> CRITICAL
# spent/limit >= exceeded -> EXCEEDED (system-wide stop)
budget:
  limit: 100.00
  thresholds:
    warning: 0.70
    critical: 0.90
    exceeded: 1.00

# Approval facts older than this window are treated as expired.
approval_timeout_hours: 24

# Hash-chained JSONL governance log.
audit_log: ~/.wavegate/governance.jsonl
`
}
