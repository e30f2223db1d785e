// Package tools provides agent tool implementations backed by JIRA.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rbarrantes/triage/internal/agent"
	"github.com/rbarrantes/triage/internal/jira"
	"github.com/rbarrantes/triage/internal/logging"
)

// defaultSearchLimit bounds tool-initiated searches so a single tool call
// can't flood the model's context window.
const defaultSearchLimit = 25

// RegisterJiraTools wires all JIRA tools into the registry.
func RegisterJiraTools(reg *agent.ToolRegistry, client *jira.Client, log *logging.Logger) {
	reg.Register(&SearchTool{client: client, log: log.Sub("tools.jira_search")})
	reg.Register(&ProjectsTool{client: client, log: log.Sub("tools.jira_projects")})
	reg.Register(&CreateIssueTool{client: client, log: log.Sub("tools.jira_create_issue")})
}

// SearchTool runs a JQL query and returns matching tickets.
type SearchTool struct {
	client *jira.Client
	log    *logging.Logger
}

func (t *SearchTool) Name() string { return "jira_search" }

func (t *SearchTool) Description() string {
	return "Search JIRA tickets with a JQL query. Returns key, summary, status, priority, and assignee for each match."
}

func (t *SearchTool) InputSchema() string {
	return `{"type":"object","properties":{"jql":{"type":"string","description":"JQL query"},"limit":{"type":"integer","description":"max results (default 25)"}},"required":["jql"]}`
}

func (t *SearchTool) Execute(ctx context.Context, input string) (string, error) {
	var in struct {
		JQL   string `json:"jql"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(in.JQL) == "" {
		return "", fmt.Errorf("jql is required")
	}
	if in.Limit <= 0 || in.Limit > defaultSearchLimit {
		in.Limit = defaultSearchLimit
	}

	t.log.Debug().Str("jql", in.JQL).Int("limit", in.Limit).Msg("searching tickets")

	tickets, err := t.client.Search(ctx, in.JQL, in.Limit)
	if err != nil {
		return "", err
	}
	if len(tickets) == 0 {
		return "No tickets matched the query.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d ticket(s):\n", len(tickets))
	for _, tk := range tickets {
		fmt.Fprintf(&b, "- %s [%s/%s] %s (assignee: %s)\n",
			tk.Key, tk.Status, tk.Priority, tk.Summary, tk.Assignee)
	}
	return b.String(), nil
}

// ProjectsTool lists JIRA projects, optionally filtered by a search term.
type ProjectsTool struct {
	client *jira.Client
	log    *logging.Logger
}

func (t *ProjectsTool) Name() string { return "jira_projects" }

func (t *ProjectsTool) Description() string {
	return "List JIRA projects. Optionally filter by a search term matched against project key and name."
}

func (t *ProjectsTool) InputSchema() string {
	return `{"type":"object","properties":{"search":{"type":"string","description":"filter term"}}}`
}

func (t *ProjectsTool) Execute(ctx context.Context, input string) (string, error) {
	var in struct {
		Search string `json:"search"`
	}
	if input != "" {
		if err := json.Unmarshal([]byte(input), &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
	}

	projects, err := t.client.Projects(ctx)
	if err != nil {
		return "", err
	}
	if in.Search != "" {
		projects = jira.FilterProjects(projects, in.Search)
	}
	if len(projects) == 0 {
		return "No projects found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d project(s):\n", len(projects))
	for _, p := range projects {
		fmt.Fprintf(&b, "- %s: %s\n", p.Key, p.Name)
	}
	return b.String(), nil
}

// CreateIssueTool creates a new JIRA issue.
type CreateIssueTool struct {
	client *jira.Client
	log    *logging.Logger
}

func (t *CreateIssueTool) Name() string { return "jira_create_issue" }

func (t *CreateIssueTool) Description() string {
	return "Create a JIRA issue in a project. Returns the new issue key."
}

func (t *CreateIssueTool) InputSchema() string {
	return `{"type":"object","properties":{"project":{"type":"string","description":"project key"},"summary":{"type":"string"},"description":{"type":"string"},"issueType":{"type":"string","description":"issue type (default Task)"}},"required":["project","summary"]}`
}

func (t *CreateIssueTool) Execute(ctx context.Context, input string) (string, error) {
	var in struct {
		Project     string `json:"project"`
		Summary     string `json:"summary"`
		Description string `json:"description"`
		IssueType   string `json:"issueType"`
	}
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	key, err := t.client.CreateIssue(ctx, jira.CreateIssueRequest{
		ProjectKey:  in.Project,
		Summary:     in.Summary,
		Description: in.Description,
		IssueType:   in.IssueType,
	})
	if err != nil {
		return "", err
	}

	t.log.Info().Str("key", key).Msg("issue created")
	return fmt.Sprintf("Created issue %s", key), nil
}
