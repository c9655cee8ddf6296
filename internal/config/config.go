package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	cferrors "github.com/systmms/credfresh/internal/errors"
	"github.com/systmms/credfresh/internal/logging"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the corresponding option is omitted.
const (
	DefaultCheckIntervalHours = 6
	DefaultWarningDays        = 7
	DefaultCriticalDays       = 3
	DefaultRefreshTimeout     = 5 * time.Minute
)

// Config holds the runtime configuration
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition
}

// Definition represents the credfresh.yaml structure
type Definition struct {
	Version                int                      `yaml:"version"`
	CheckIntervalHours     int                      `yaml:"check_interval_hours"`
	ExpirationWarningDays  int                      `yaml:"expiration_warning_days"`
	ExpirationCriticalDays int                      `yaml:"expiration_critical_days"`
	Store                  StoreConfig              `yaml:"store"`
	Services               map[string]ServicePolicy `yaml:"services"`
	Notifications          *NotificationConfig      `yaml:"notifications,omitempty"`
}

// StoreConfig selects and configures the credential store backend
type StoreConfig struct {
	Type   string `yaml:"type"`             // file, keyring, aws-secretsmanager
	Path   string `yaml:"path,omitempty"`   // file backend
	Region string `yaml:"region,omitempty"` // aws backend
	Prefix string `yaml:"prefix,omitempty"` // keyring/aws namespace
}

// ServicePolicy holds per-service freshness policy and refresh configuration
type ServicePolicy struct {
	ExpirationDays int           `yaml:"expiration_days"`
	Critical       bool          `yaml:"critical"`
	Accounts       []string      `yaml:"accounts,omitempty"`
	Refresh        RefreshConfig `yaml:"refresh"`
}

// RefreshConfig configures the refresh strategy for a service
type RefreshConfig struct {
	Strategy  string   `yaml:"strategy"` // command, interactive
	Command   []string `yaml:"command,omitempty"`
	TimeoutMs int      `yaml:"timeout_ms,omitempty"`
}

// Timeout returns the bound on a single refresh attempt.
func (r RefreshConfig) Timeout() time.Duration {
	if r.TimeoutMs <= 0 {
		return DefaultRefreshTimeout
	}
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// NotificationConfig configures report delivery channels
type NotificationConfig struct {
	Webhook *WebhookConfig `yaml:"webhook,omitempty"`
}

// WebhookConfig configures webhook report delivery
type WebhookConfig struct {
	URL       string `yaml:"url"`
	TimeoutMs int    `yaml:"timeout_ms,omitempty"`
}

// Load reads, parses and validates the credfresh.yaml file.
// A failure here is fatal to the process: without per-service policy
// no freshness decision can be honored.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return cferrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create a credfresh.yaml or point --config at an existing one",
			}
		}
		return cferrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	if err := validateSchema(data); err != nil {
		return err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return cferrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 0 {
		return cferrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your credfresh.yaml file",
		}
	}

	def.applyDefaults()
	if err := def.validate(); err != nil {
		return err
	}

	c.Definition = &def
	return nil
}

func (d *Definition) applyDefaults() {
	if d.CheckIntervalHours <= 0 {
		d.CheckIntervalHours = DefaultCheckIntervalHours
	}
	if d.ExpirationWarningDays <= 0 {
		d.ExpirationWarningDays = DefaultWarningDays
	}
	if d.ExpirationCriticalDays <= 0 {
		d.ExpirationCriticalDays = DefaultCriticalDays
	}
	if d.Store.Type == "" {
		d.Store.Type = "file"
	}
	if d.Store.Prefix == "" {
		d.Store.Prefix = "credfresh"
	}
}

func (d *Definition) validate() error {
	if d.ExpirationCriticalDays > d.ExpirationWarningDays {
		return cferrors.ConfigError{
			Field:      "expiration_critical_days",
			Value:      d.ExpirationCriticalDays,
			Message:    "critical threshold exceeds warning threshold",
			Suggestion: "Set expiration_critical_days <= expiration_warning_days",
		}
	}

	switch d.Store.Type {
	case "file", "keyring", "aws-secretsmanager":
	default:
		return cferrors.ConfigError{
			Field:      "store.type",
			Value:      d.Store.Type,
			Message:    "unknown store backend",
			Suggestion: "Use one of: file, keyring, aws-secretsmanager",
		}
	}

	for name, policy := range d.Services {
		if policy.ExpirationDays <= 0 {
			return cferrors.ConfigError{
				Field:      fmt.Sprintf("services.%s.expiration_days", name),
				Value:      policy.ExpirationDays,
				Message:    "maximum bundle age must be positive",
				Suggestion: "Set expiration_days to the number of days the service's session stays valid",
			}
		}
		switch policy.Refresh.Strategy {
		case "", "command", "interactive":
		default:
			return cferrors.ConfigError{
				Field:      fmt.Sprintf("services.%s.refresh.strategy", name),
				Value:      policy.Refresh.Strategy,
				Message:    "unknown refresh strategy",
				Suggestion: "Use one of: command, interactive",
			}
		}
		if policy.Refresh.Strategy != "" && len(policy.Refresh.Command) == 0 {
			return cferrors.ConfigError{
				Field:      fmt.Sprintf("services.%s.refresh.command", name),
				Message:    "refresh strategy configured without an agent command",
				Suggestion: "Set refresh.command to the agent invocation for this service",
			}
		}
	}

	return nil
}

// GetService returns the policy for a named service.
func (c *Config) GetService(name string) (ServicePolicy, error) {
	if c.Definition == nil {
		return ServicePolicy{}, cferrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}
	policy, ok := c.Definition.Services[name]
	if !ok {
		return ServicePolicy{}, cferrors.UserError{
			Message:    fmt.Sprintf("Service '%s' not found in configuration", name),
			Suggestion: fmt.Sprintf("Add a 'services.%s' section to %s or check the spelling", name, c.Path),
		}
	}
	return policy, nil
}

// ServiceNames returns all configured service names in sorted order,
// so command output and orchestration runs are deterministic.
func (c *Config) ServiceNames() []string {
	if c.Definition == nil {
		return nil
	}
	names := make([]string, 0, len(c.Definition.Services))
	for name := range c.Definition.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Accounts returns the sub-accounts a policy declares, or the single
// anonymous account ("") when the service manages one bundle.
func (p ServicePolicy) BundleAccounts() []string {
	if len(p.Accounts) == 0 {
		return []string{""}
	}
	return p.Accounts
}
