package config

import (
	"fmt"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Jira validation (URL only when set; credentials are checked by
	// RequireJira at the point of use)
	if cfg.Jira.URL != "" {
		if u, err := url.Parse(cfg.Jira.URL); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, ValidationIssue{
				Path:    "jira.url",
				Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.Jira.URL),
			})
		}
	}
	if cfg.Jira.MaxResults < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "jira.maxResults",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Jira.MaxResults),
		})
	}

	// Ollama validation
	if cfg.Ollama.BaseURL != "" {
		if u, err := url.Parse(cfg.Ollama.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, ValidationIssue{
				Path:    "ollama.baseUrl",
				Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.Ollama.BaseURL),
			})
		}
	}
	if cfg.Ollama.TimeoutSecs < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "ollama.timeoutSecs",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Ollama.TimeoutSecs),
		})
	}
	if cfg.Ollama.Temperature != nil && (*cfg.Ollama.Temperature < 0 || *cfg.Ollama.Temperature > 2) {
		issues = append(issues, ValidationIssue{
			Path:    "ollama.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %g", *cfg.Ollama.Temperature),
		})
	}

	// Gateway validation
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}

	validAuthModes := []string{"token", "password"}
	if cfg.Gateway.Auth.Mode != "" && !slices.Contains(validAuthModes, cfg.Gateway.Auth.Mode) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.auth.mode",
			Message: fmt.Sprintf("must be one of %v, got %q", validAuthModes, cfg.Gateway.Auth.Mode),
		})
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	// Reports validation
	if cfg.Reports.TicketLimit < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "reports.ticketLimit",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Reports.TicketLimit),
		})
	}
	if cfg.Reports.RecentProjects < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "reports.recentProjects",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Reports.RecentProjects),
		})
	}

	return issues
}
