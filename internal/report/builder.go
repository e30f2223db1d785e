// Package report turns ticket data into triage reports and manages the
// report archive on disk.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rbarrantes/triage/internal/jira"
)

// topTicketLimit caps the highest-priority ticket section.
const topTicketLimit = 10

// topProjectLimit caps the per-project breakdown.
const topProjectLimit = 10

// Report is a generated triage report.
type Report struct {
	Project    string // empty for all projects
	Tickets    []jira.Ticket
	Body       string
	AIAnalysis string
}

// Build generates the summary report text for a set of tickets. The project
// key is informational; tickets should already be filtered.
func Build(projectKey string, tickets []jira.Ticket) *Report {
	r := &Report{Project: projectKey, Tickets: tickets}
	r.Body = render(projectKey, tickets)
	return r
}

// AppendAnalysis attaches an AI analysis section to the report body.
func (r *Report) AppendAnalysis(analysis string) {
	r.AIAnalysis = analysis
	r.Body += fmt.Sprintf("\nAI ANALYSIS:\n%s\n%s\n", strings.Repeat("=", 50), analysis)
}

func render(projectKey string, tickets []jira.Ticket) string {
	if len(tickets) == 0 {
		if projectKey != "" {
			return fmt.Sprintf("No unfinished tickets found in project %s.\n", projectKey)
		}
		return "No unfinished tickets found.\n"
	}

	var b strings.Builder

	b.WriteString("JIRA UNFINISHED TICKETS REPORT\n")
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n\n")
	if projectKey != "" {
		fmt.Fprintf(&b, "Project: %s\n", projectKey)
	}
	fmt.Fprintf(&b, "Total Unfinished Tickets: %d\n", len(tickets))

	byStatus := map[string]int{}
	byPriority := map[string]int{}
	byProject := map[string]int{}
	for _, t := range tickets {
		byStatus[t.Status]++
		byPriority[t.Priority]++
		byProject[t.Project]++
	}

	b.WriteString("\nSUMMARY BY STATUS:\n")
	for _, s := range sortedKeys(byStatus) {
		fmt.Fprintf(&b, "  - %s: %d tickets\n", s, byStatus[s])
	}

	b.WriteString("\nSUMMARY BY PRIORITY:\n")
	for _, p := range keysByCount(byPriority, 0) {
		fmt.Fprintf(&b, "  - %s: %d tickets\n", p, byPriority[p])
	}

	b.WriteString("\nSUMMARY BY PROJECT:\n")
	for _, p := range keysByCount(byProject, topProjectLimit) {
		fmt.Fprintf(&b, "  - %s: %d tickets\n", p, byProject[p])
	}

	b.WriteString("\nHIGHEST PRIORITY TICKETS:\n")
	for _, t := range topPriorityTickets(tickets) {
		fmt.Fprintf(&b, "  - %s: %s\n", t.Key, truncate(t.Summary, 60))
		fmt.Fprintf(&b, "    Status: %s | Assignee: %s | Project: %s\n\n", t.Status, t.Assignee, t.Project)
	}

	return b.String()
}

// topPriorityTickets returns up to topTicketLimit Highest/High tickets in
// their original (priority-sorted) order.
func topPriorityTickets(tickets []jira.Ticket) []jira.Ticket {
	var top []jira.Ticket
	for _, t := range tickets {
		if t.Priority == "Highest" || t.Priority == "High" {
			top = append(top, t)
			if len(top) == topTicketLimit {
				break
			}
		}
	}
	return top
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// keysByCount sorts keys by descending count, name ascending as tiebreak.
// A limit of 0 means all keys.
func keysByCount(m map[string]int, limit int) []string {
	keys := sortedKeys(m)
	sort.SliceStable(keys, func(i, j int) bool {
		return m[keys[i]] > m[keys[j]]
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

// truncate shortens s to n characters, not bytes, so multibyte summaries
// stay valid UTF-8.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
