package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rbarrantes/triage/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestUnfinishedJQL(t *testing.T) {
	assert.Equal(t,
		"project = OPS AND status NOT IN (Done, Closed, Resolved) ORDER BY priority DESC, created DESC",
		UnfinishedJQL("OPS"))
	assert.Equal(t,
		"status NOT IN (Done, Closed, Resolved) ORDER BY priority DESC, created DESC",
		UnfinishedJQL(""))
}

func TestSearchFlattensIssues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "reporter", user)
		assert.Equal(t, "tok", pass)

		assert.Equal(t, UnfinishedJQL("OPS"), r.URL.Query().Get("jql"))
		assert.Equal(t, "25", r.URL.Query().Get("maxResults"))

		fmt.Fprint(w, `{
			"total": 2,
			"issues": [
				{
					"key": "OPS-1",
					"fields": {
						"summary": "Fix the flaky deploy",
						"status": {"name": "In Progress"},
						"priority": {"name": "High"},
						"assignee": {"displayName": "Dana Ortiz"},
						"project": {"key": "OPS"},
						"created": "2026-08-12T09:30:00.000+0000"
					}
				},
				{
					"key": "OPS-2",
					"fields": {
						"summary": "",
						"status": null,
						"priority": null,
						"assignee": null,
						"project": null,
						"created": ""
					}
				}
			]
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "reporter", "tok", silentLog())
	tickets, err := client.Unfinished(context.Background(), "OPS", 25)
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	assert.Equal(t, Ticket{
		Key:      "OPS-1",
		Summary:  "Fix the flaky deploy",
		Status:   "In Progress",
		Priority: "High",
		Assignee: "Dana Ortiz",
		Project:  "OPS",
		Created:  "2026-08-12",
	}, tickets[0])

	// Absent fields fall back to placeholders
	assert.Equal(t, Ticket{
		Key:      "OPS-2",
		Summary:  "No summary",
		Status:   "Unknown",
		Priority: "None",
		Assignee: "Unassigned",
		Project:  "Unknown",
		Created:  "Unknown",
	}, tickets[1])
}

func TestSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["bad jql"]}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "reporter", "tok", silentLog())
	_, err := client.Search(context.Background(), "nonsense (", 10)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)
	assert.Contains(t, apiErr.Message, "bad jql")
}

func TestProjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/project", r.URL.Path)
		fmt.Fprint(w, `[
			{"key": "OPS", "name": "Operations", "projectTypeKey": "software"},
			{"key": "HR", "name": "People Team", "projectTypeKey": "business"}
		]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "reporter", "tok", silentLog())
	projects, err := client.Projects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, Project{Key: "OPS", Name: "Operations", Type: "software"}, projects[0])
}

func TestServerInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/serverInfo", r.URL.Path)
		fmt.Fprint(w, `{"baseUrl": "https://jira.example.com", "version": "9.4.0", "serverTitle": "Example JIRA"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "reporter", "tok", silentLog())
	info, err := client.ServerInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Example JIRA", info.ServerTitle)
	assert.Equal(t, "9.4.0", info.Version)
}

func TestCreateIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/issue", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fields := body["fields"].(map[string]any)
		assert.Equal(t, "Follow up on triage report", fields["summary"])
		assert.Equal(t, map[string]any{"key": "OPS"}, fields["project"])
		assert.Equal(t, map[string]any{"name": "Task"}, fields["issuetype"])

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "10001", "key": "OPS-42"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "reporter", "tok", silentLog())
	key, err := client.CreateIssue(context.Background(), CreateIssueRequest{
		ProjectKey: "OPS",
		Summary:    "Follow up on triage report",
	})
	require.NoError(t, err)
	assert.Equal(t, "OPS-42", key)
}

func TestCreateIssueValidation(t *testing.T) {
	client := NewClient("https://jira.example.com", "u", "t", silentLog())
	_, err := client.CreateIssue(context.Background(), CreateIssueRequest{Summary: "no project"})
	assert.Error(t, err)
}

func TestFilterProjects(t *testing.T) {
	projects := []Project{
		{Key: "OPS", Name: "Operations"},
		{Key: "HR", Name: "People Team"},
		{Key: "WEB", Name: "Website Platform"},
	}

	assert.Len(t, FilterProjects(projects, ""), 3)
	assert.Equal(t, []Project{projects[0]}, FilterProjects(projects, "ops"))
	assert.Equal(t, []Project{projects[1]}, FilterProjects(projects, "team"))
	// Name-word prefix match
	assert.Equal(t, []Project{projects[2]}, FilterProjects(projects, "plat"))
	assert.Empty(t, FilterProjects(projects, "zzz"))
}
