package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidateBadURLs(t *testing.T) {
	cfg := Defaults()
	cfg.Jira.URL = "not a url"
	cfg.Ollama.BaseURL = "also-not-a-url"

	issues := Validate(&cfg)
	paths := issuePaths(issues)
	assert.Contains(t, paths, "jira.url")
	assert.Contains(t, paths, "ollama.baseUrl")
}

func TestValidateGateway(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Port = 70000
	cfg.Gateway.Bind = "tailnet"
	cfg.Gateway.Auth.Mode = "oauth"

	issues := Validate(&cfg)
	paths := issuePaths(issues)
	assert.Contains(t, paths, "gateway.port")
	assert.Contains(t, paths, "gateway.bind")
	assert.Contains(t, paths, "gateway.auth.mode")
}

func TestValidateLogging(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "verbose"
	cfg.Logging.ConsoleStyle = "rainbow"

	issues := Validate(&cfg)
	paths := issuePaths(issues)
	assert.Contains(t, paths, "logging.level")
	assert.Contains(t, paths, "logging.consoleStyle")
}

func TestValidateTemperatureRange(t *testing.T) {
	cfg := Defaults()
	temp := 3.5
	cfg.Ollama.Temperature = &temp

	issues := Validate(&cfg)
	assert.Contains(t, issuePaths(issues), "ollama.temperature")
}

func TestValidateNegativeLimits(t *testing.T) {
	cfg := Defaults()
	cfg.Jira.MaxResults = -1
	cfg.Reports.TicketLimit = -5
	cfg.Reports.RecentProjects = -2

	issues := Validate(&cfg)
	paths := issuePaths(issues)
	assert.Contains(t, paths, "jira.maxResults")
	assert.Contains(t, paths, "reports.ticketLimit")
	assert.Contains(t, paths, "reports.recentProjects")
}

func TestValidationIssueString(t *testing.T) {
	issue := ValidationIssue{Path: "x.y", Message: "bad"}
	assert.Equal(t, "x.y: bad", issue.String())
}

func issuePaths(issues []ValidationIssue) []string {
	paths := make([]string, 0, len(issues))
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	return paths
}
