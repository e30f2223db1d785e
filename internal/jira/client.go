// Package jira is a thin client for the JIRA v2 REST API, scoped to what the
// triage pipeline needs: connection test, JQL search, project listing, and
// issue creation.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rbarrantes/triage/internal/logging"
)

// unfinishedStatuses are excluded when querying the open backlog.
const unfinishedClause = "status NOT IN (Done, Closed, Resolved)"

// Client talks to a single JIRA instance with basic auth.
type Client struct {
	baseURL  string
	username string
	token    string
	client   *http.Client
	log      *logging.Logger
}

// NewClient creates a JIRA client. baseURL is the instance root, e.g.
// "https://jira.example.com".
func NewClient(baseURL, username, token string, log *logging.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log.Sub("jira"),
	}
}

// ServerInfo fetches instance metadata; used as a connection test.
func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info struct {
		BaseURL     string `json:"baseUrl"`
		Version     string `json:"version"`
		ServerTitle string `json:"serverTitle"`
	}
	if err := c.get(ctx, "/rest/api/2/serverInfo", nil, &info); err != nil {
		return nil, err
	}
	return &ServerInfo{
		BaseURL:     info.BaseURL,
		Version:     info.Version,
		ServerTitle: info.ServerTitle,
	}, nil
}

// UnfinishedJQL builds the open-backlog query, optionally scoped to a
// project, ordered by priority then recency.
func UnfinishedJQL(projectKey string) string {
	if projectKey != "" {
		return fmt.Sprintf("project = %s AND %s ORDER BY priority DESC, created DESC",
			projectKey, unfinishedClause)
	}
	return unfinishedClause + " ORDER BY priority DESC, created DESC"
}

// Search runs a JQL query and returns flattened tickets, capped at limit.
func (c *Client) Search(ctx context.Context, jql string, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = 50
	}

	query := url.Values{}
	query.Set("jql", jql)
	query.Set("maxResults", strconv.Itoa(limit))
	query.Set("fields", "summary,status,priority,assignee,project,created")

	var resp searchResponse
	if err := c.get(ctx, "/rest/api/2/search", query, &resp); err != nil {
		return nil, err
	}

	tickets := make([]Ticket, 0, len(resp.Issues))
	for _, issue := range resp.Issues {
		tickets = append(tickets, issue.ticket())
	}

	c.log.Debug().Str("jql", jql).Int("found", len(tickets)).Msg("search completed")
	return tickets, nil
}

// Unfinished returns open tickets, optionally scoped to a project.
func (c *Client) Unfinished(ctx context.Context, projectKey string, limit int) ([]Ticket, error) {
	return c.Search(ctx, UnfinishedJQL(projectKey), limit)
}

// Projects lists all projects visible to the authenticated user.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var raw []rawProject
	if err := c.get(ctx, "/rest/api/2/project", nil, &raw); err != nil {
		return nil, err
	}

	projects := make([]Project, 0, len(raw))
	for _, p := range raw {
		projects = append(projects, Project{
			Key:  p.Key,
			Name: p.Name,
			Type: p.ProjectTypeKey,
		})
	}
	return projects, nil
}

// CreateIssueRequest describes a new issue.
type CreateIssueRequest struct {
	ProjectKey  string `json:"projectKey"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	IssueType   string `json:"issueType,omitempty"` // default "Task"
}

// CreateIssue creates an issue and returns its key.
func (c *Client) CreateIssue(ctx context.Context, req CreateIssueRequest) (string, error) {
	if req.ProjectKey == "" || req.Summary == "" {
		return "", fmt.Errorf("jira: project key and summary are required")
	}
	issueType := req.IssueType
	if issueType == "" {
		issueType = "Task"
	}

	body := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": req.ProjectKey},
			"summary":     req.Summary,
			"description": req.Description,
			"issuetype":   map[string]string{"name": issueType},
		},
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := c.post(ctx, "/rest/api/2/issue", body, &created); err != nil {
		return "", err
	}

	c.log.Info().Str("key", created.Key).Str("project", req.ProjectKey).Msg("issue created")
	return created.Key, nil
}

// FilterProjects matches projects by key, name, or name-word prefix.
// An empty term matches everything.
func FilterProjects(projects []Project, term string) []Project {
	if term == "" {
		return projects
	}
	term = strings.ToLower(term)

	var matched []Project
	for _, p := range projects {
		key := strings.ToLower(p.Key)
		name := strings.ToLower(p.Name)
		if strings.Contains(key, term) || strings.Contains(name, term) {
			matched = append(matched, p)
			continue
		}
		for _, word := range strings.Fields(name) {
			if strings.HasPrefix(word, term) {
				matched = append(matched, p)
				break
			}
		}
	}
	return matched
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(httpReq, out)
}

// post performs an authenticated POST with a JSON body.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.SetBasicAuth(c.username, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("jira request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Code:    resp.StatusCode,
			Message: strings.TrimSpace(string(respBody)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
