package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rbarrantes/triage/internal/jira"
	"github.com/rbarrantes/triage/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func sampleTickets() []jira.Ticket {
	return []jira.Ticket{
		{Key: "OPS-3", Summary: "Database migration fails on rollback", Status: "In Progress", Priority: "Highest", Assignee: "Dana", Project: "OPS", Created: "2026-08-10"},
		{Key: "OPS-1", Summary: "Fix login timeout", Status: "Open", Priority: "High", Assignee: "Sam", Project: "OPS", Created: "2026-08-01"},
		{Key: "WEB-7", Summary: "Update landing page copy", Status: "Open", Priority: "Low", Assignee: "Unassigned", Project: "WEB", Created: "2026-07-20"},
		{Key: "OPS-9", Summary: "Rotate API credentials", Status: "To Do", Priority: "Medium", Assignee: "Dana", Project: "OPS", Created: "2026-08-15"},
	}
}

func TestBuildSections(t *testing.T) {
	r := Build("", sampleTickets())

	assert.Contains(t, r.Body, "JIRA UNFINISHED TICKETS REPORT")
	assert.Contains(t, r.Body, "Total Unfinished Tickets: 4")
	assert.Contains(t, r.Body, "SUMMARY BY STATUS:")
	assert.Contains(t, r.Body, "  - Open: 2 tickets")
	assert.Contains(t, r.Body, "  - In Progress: 1 tickets")
	assert.Contains(t, r.Body, "SUMMARY BY PRIORITY:")
	assert.Contains(t, r.Body, "  - Highest: 1 tickets")
	assert.Contains(t, r.Body, "SUMMARY BY PROJECT:")
	assert.Contains(t, r.Body, "  - OPS: 3 tickets")
	assert.Contains(t, r.Body, "  - WEB: 1 tickets")
}

func TestBuildHighestPrioritySection(t *testing.T) {
	r := Build("", sampleTickets())

	// Only Highest/High tickets appear, in input order.
	idx3 := strings.Index(r.Body, "OPS-3")
	idx1 := strings.Index(r.Body, "OPS-1")
	assert.Greater(t, idx3, 0)
	assert.Greater(t, idx1, idx3)
	assert.NotContains(t, r.Body, "WEB-7: Update landing")
	assert.Contains(t, r.Body, "Status: In Progress | Assignee: Dana | Project: OPS")
}

func TestBuildTruncatesLongSummaries(t *testing.T) {
	long := strings.Repeat("x", 80)
	r := Build("", []jira.Ticket{
		{Key: "OPS-1", Summary: long, Status: "Open", Priority: "High", Project: "OPS"},
	})
	assert.Contains(t, r.Body, strings.Repeat("x", 60)+"...")
	assert.NotContains(t, r.Body, strings.Repeat("x", 61))
}

func TestBuildTruncatesOnRuneBoundaries(t *testing.T) {
	long := strings.Repeat("ü", 80)
	r := Build("", []jira.Ticket{
		{Key: "OPS-1", Summary: long, Status: "Open", Priority: "High", Project: "OPS"},
	})
	assert.True(t, utf8.ValidString(r.Body))
	assert.Contains(t, r.Body, strings.Repeat("ü", 60)+"...")
	assert.NotContains(t, r.Body, strings.Repeat("ü", 61))
}

func TestBuildProjectHeader(t *testing.T) {
	r := Build("OPS", sampleTickets()[:1])
	assert.Contains(t, r.Body, "Project: OPS")
}

func TestBuildEmpty(t *testing.T) {
	assert.Contains(t, Build("", nil).Body, "No unfinished tickets found.")
	assert.Contains(t, Build("OPS", nil).Body, "No unfinished tickets found in project OPS.")
}

func TestAppendAnalysis(t *testing.T) {
	r := Build("", sampleTickets())
	r.AppendAnalysis("The backlog is dominated by OPS work.")

	assert.Contains(t, r.Body, "AI ANALYSIS:")
	assert.Contains(t, r.Body, "The backlog is dominated by OPS work.")
	assert.Equal(t, "The backlog is dominated by OPS work.", r.AIAnalysis)
}

func TestArchiveSaveProjectReport(t *testing.T) {
	dir := t.TempDir()
	a := NewArchive(dir, silentLog())

	r := Build("OPS", sampleTickets())
	path, err := a.Save(r)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "ops"), filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "jira_report_"))
	assert.True(t, strings.HasSuffix(path, ".txt"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, r.Body, string(data))
}

func TestArchiveSaveAllProjectsReport(t *testing.T) {
	dir := t.TempDir()
	a := NewArchive(dir, silentLog())

	path, err := a.Save(Build("", sampleTickets()))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "jira_all_projects_report_"))
}

func TestArchiveListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	a := NewArchive(dir, silentLog())

	old := Build("OPS", nil)
	_, err := a.save(old, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	newer := Build("OPS", sampleTickets())
	newPath, err := a.save(newer, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// Bump mtime so ordering doesn't depend on write timing.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(newPath, future, future))

	entries, err := a.List("OPS")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, newPath, entries[0].Path)
	assert.Equal(t, "OPS", entries[0].Project)
}

func TestArchiveListAll(t *testing.T) {
	dir := t.TempDir()
	a := NewArchive(dir, silentLog())

	_, err := a.Save(Build("OPS", sampleTickets()))
	require.NoError(t, err)
	_, err = a.Save(Build("", sampleTickets()))
	require.NoError(t, err)

	entries, err := a.List("")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	projects := []string{entries[0].Project, entries[1].Project}
	assert.Contains(t, projects, "OPS")
	assert.Contains(t, projects, "ALL")
}

func TestArchiveListEmpty(t *testing.T) {
	a := NewArchive(filepath.Join(t.TempDir(), "missing"), silentLog())
	entries, err := a.List("")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestArchiveListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))

	a := NewArchive(dir, silentLog())
	entries, err := a.List("")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
