package jira

import "fmt"

// Ticket is the flattened issue shape used by the report pipeline.
type Ticket struct {
	Key      string `json:"key"`
	Summary  string `json:"summary"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Assignee string `json:"assignee"`
	Project  string `json:"project"`
	Created  string `json:"created"` // date part only, YYYY-MM-DD
}

// Project is a JIRA project reference.
type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ServerInfo describes the connected JIRA instance.
type ServerInfo struct {
	BaseURL     string `json:"baseUrl"`
	Version     string `json:"version"`
	ServerTitle string `json:"serverTitle"`
}

// APIError is returned when JIRA responds with an error status.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira: %d %s", e.Code, e.Message)
}

// Raw API response shapes (v2 REST API).

type searchResponse struct {
	Total  int        `json:"total"`
	Issues []rawIssue `json:"issues"`
}

type rawIssue struct {
	Key    string    `json:"key"`
	Fields rawFields `json:"fields"`
}

type rawFields struct {
	Summary  string     `json:"summary"`
	Status   *namedRef  `json:"status"`
	Priority *namedRef  `json:"priority"`
	Assignee *rawPerson `json:"assignee"`
	Project  *rawRef    `json:"project"`
	Created  string     `json:"created"`
}

type namedRef struct {
	Name string `json:"name"`
}

type rawRef struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type rawPerson struct {
	DisplayName string `json:"displayName"`
}

type rawProject struct {
	Key            string `json:"key"`
	Name           string `json:"name"`
	ProjectTypeKey string `json:"projectTypeKey"`
}

// ticket flattens a raw issue, substituting placeholders the way the report
// expects them: unassigned issues get "Unassigned", absent fields "Unknown".
func (i rawIssue) ticket() Ticket {
	t := Ticket{
		Key:      i.Key,
		Summary:  i.Fields.Summary,
		Status:   "Unknown",
		Priority: "None",
		Assignee: "Unassigned",
		Project:  "Unknown",
		Created:  "Unknown",
	}
	if t.Summary == "" {
		t.Summary = "No summary"
	}
	if i.Fields.Status != nil && i.Fields.Status.Name != "" {
		t.Status = i.Fields.Status.Name
	}
	if i.Fields.Priority != nil && i.Fields.Priority.Name != "" {
		t.Priority = i.Fields.Priority.Name
	}
	if i.Fields.Assignee != nil && i.Fields.Assignee.DisplayName != "" {
		t.Assignee = i.Fields.Assignee.DisplayName
	}
	if i.Fields.Project != nil && i.Fields.Project.Key != "" {
		t.Project = i.Fields.Project.Key
	}
	if len(i.Fields.Created) >= 10 {
		t.Created = i.Fields.Created[:10]
	}
	return t
}
