package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models doable.yml.
type Config struct {
	Team struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
		Key  string `yaml:"key"`
	} `yaml:"team"`
	Defaults struct {
		ProjectColor     string `yaml:"project_color"`
		ProjectStatus    string `yaml:"project_status"`
		InviteRole       string `yaml:"invite_role"`
		InviteExpiryDays int    `yaml:"invite_expiry_days"`
	} `yaml:"defaults"`
	Workflow struct {
		States []WorkflowStateConfig `yaml:"states"`
	} `yaml:"workflow"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type WorkflowStateConfig struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Color string `yaml:"color"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

var validStateTypes = map[string]bool{
	"unstarted": true,
	"started":   true,
	"completed": true,
	"canceled":  true,
}

var validRoles = map[string]bool{
	"admin":     true,
	"developer": true,
	"viewer":    true,
}

var validProjectStatuses = map[string]bool{
	"planned":   true,
	"active":    true,
	"paused":    true,
	"completed": true,
	"canceled":  true,
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run doable init first", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Team.ID == "" {
		return fmt.Errorf("config.team.id is required")
	}
	if c.Team.Key == "" {
		return fmt.Errorf("config.team.key is required")
	}
	if c.Defaults.ProjectStatus != "" && !validProjectStatuses[c.Defaults.ProjectStatus] {
		return fmt.Errorf("config.defaults.project_status %q is not a valid status", c.Defaults.ProjectStatus)
	}
	if c.Defaults.InviteRole != "" && !validRoles[c.Defaults.InviteRole] {
		return fmt.Errorf("config.defaults.invite_role %q is not a valid role", c.Defaults.InviteRole)
	}
	if c.Defaults.InviteExpiryDays < 0 {
		return fmt.Errorf("config.defaults.invite_expiry_days must not be negative")
	}
	for i, st := range c.Workflow.States {
		if st.Name == "" {
			return fmt.Errorf("workflow state %d has empty name", i)
		}
		if !validStateTypes[st.Type] {
			return fmt.Errorf("workflow state %s has invalid type %q", st.Name, st.Type)
		}
	}
	for i, hook := range c.Webhooks {
		if hook.Enabled != nil && !*hook.Enabled {
			continue
		}
		if hook.URL == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("webhook %d has negative timeout", i)
		}
	}
	return nil
}

// ProjectColor returns the configured default project color.
func (c *Config) ProjectColor() string {
	if c != nil && c.Defaults.ProjectColor != "" {
		return c.Defaults.ProjectColor
	}
	return "#6366f1"
}

// ProjectStatus returns the configured default project status.
func (c *Config) ProjectStatus() string {
	if c != nil && c.Defaults.ProjectStatus != "" {
		return c.Defaults.ProjectStatus
	}
	return "active"
}

// InviteRole returns the configured default invitation role.
func (c *Config) InviteRole() string {
	if c != nil && c.Defaults.InviteRole != "" {
		return c.Defaults.InviteRole
	}
	return "developer"
}

// InviteExpiryDays returns the configured invitation lifetime.
func (c *Config) InviteExpiryDays() int {
	if c != nil && c.Defaults.InviteExpiryDays > 0 {
		return c.Defaults.InviteExpiryDays
	}
	return 14
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "doable.yml")
}

// GenerateDefault returns default config YAML for a team.
func GenerateDefault(teamID, teamName, teamKey string) string {
	return fmt.Sprintf(defaultTemplate, teamID, teamName, teamKey)
}

// Default returns the default Config struct for a team.
func Default(teamID, teamName, teamKey string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(teamID, teamName, teamKey))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `team:
  id: %s
  name: %s
  key: %s

defaults:
  project_color: "#6366f1"
  project_status: active
  invite_role: developer
  invite_expiry_days: 14

workflow:
  states:
    - name: Backlog
      type: unstarted
      color: "#94a3b8"
    - name: Todo
      type: unstarted
      color: "#e2e8f0"
    - name: In Progress
      type: started
      color: "#facc15"
    - name: In Review
      type: started
      color: "#38bdf8"
    - name: Done
      type: completed
      color: "#4ade80"
    - name: Canceled
      type: canceled
      color: "#f87171"
`
