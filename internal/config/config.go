package config

import (
	"fmt"
	"strings"
)

// ConfigError represents a configuration error. It is fatal at startup.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Jira: JiraConfig{
			MaxResults: 50,
		},
		Ollama: OllamaConfig{
			BaseURL:     "http://localhost:11434",
			Model:       "gemma3:1b",
			TimeoutSecs: 120,
		},
		Agents: AgentsConfig{
			MaxToolIterations: 5,
		},
		Reports: ReportsConfig{
			TicketLimit:    50,
			RecentProjects: 5,
		},
		Gateway: GatewayConfig{
			Port: 8787,
			Bind: "loopback",
			Auth: GatewayAuth{
				Mode: "token",
			},
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}

// RequireJira checks that the JIRA connection settings are complete.
// Returns a ConfigError naming every missing variable so the caller can fail
// once with the full list.
func RequireJira(cfg *Config) error {
	var missing []string
	if cfg.Jira.URL == "" {
		missing = append(missing, "JIRA_URL")
	}
	if cfg.Jira.Username == "" {
		missing = append(missing, "JIRA_USERNAME")
	}
	if cfg.Jira.APIToken == "" {
		missing = append(missing, "JIRA_API_TOKEN")
	}
	if len(missing) > 0 {
		return &ConfigError{Message: "missing required settings: " + strings.Join(missing, ", ")}
	}
	return nil
}
