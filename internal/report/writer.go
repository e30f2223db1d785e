package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rbarrantes/triage/internal/logging"
)

// Archive stores generated reports as timestamped text files under a base
// directory, one subdirectory per project.
type Archive struct {
	dir string
	log *logging.Logger
}

// NewArchive creates an archive rooted at dir.
func NewArchive(dir string, log *logging.Logger) *Archive {
	return &Archive{dir: dir, log: log.Sub("report.archive")}
}

// Entry describes a stored report file.
type Entry struct {
	Name     string    // path relative to the archive root
	Path     string    // absolute path
	Project  string    // project key, or "ALL" for cross-project reports
	Modified time.Time
	Size     int64
}

// Save writes the report to a timestamped file and returns its path.
// Project reports go under a lowercased project subdirectory, cross-project
// reports in the archive root.
func (a *Archive) Save(r *Report) (string, error) {
	return a.save(r, time.Now())
}

func (a *Archive) save(r *Report, now time.Time) (string, error) {
	dir := a.dir
	name := fmt.Sprintf("jira_all_projects_report_%s.txt", now.Format("20060102_150405"))
	if r.Project != "" {
		dir = filepath.Join(a.dir, strings.ToLower(r.Project))
		name = fmt.Sprintf("jira_report_%s.txt", now.Format("20060102_150405"))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(r.Body), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	a.log.Info().Str("path", path).Int("bytes", len(r.Body)).Msg("report saved")
	return path, nil
}

// List returns stored reports, newest first. With a project key only that
// project's reports are returned; with an empty key, everything.
func (a *Archive) List(projectKey string) ([]Entry, error) {
	var entries []Entry

	if projectKey != "" {
		dir := filepath.Join(a.dir, strings.ToLower(projectKey))
		found, err := a.scanDir(dir, strings.ToUpper(projectKey))
		if err != nil {
			return nil, err
		}
		entries = found
	} else {
		items, err := os.ReadDir(a.dir)
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read reports dir: %w", err)
		}
		for _, item := range items {
			if item.IsDir() {
				found, err := a.scanDir(filepath.Join(a.dir, item.Name()), strings.ToUpper(item.Name()))
				if err != nil {
					return nil, err
				}
				entries = append(entries, found...)
				continue
			}
			if e, ok := a.entryFor(a.dir, item.Name(), "ALL"); ok {
				entries = append(entries, e)
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Modified.After(entries[j].Modified)
	})
	return entries, nil
}

func (a *Archive) scanDir(dir, project string) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reports dir: %w", err)
	}

	var entries []Entry
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		if e, ok := a.entryFor(dir, item.Name(), project); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (a *Archive) entryFor(dir, name, project string) (Entry, bool) {
	if !strings.HasPrefix(name, "jira_") || !strings.HasSuffix(name, ".txt") {
		return Entry{}, false
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, false
	}
	rel, err := filepath.Rel(a.dir, path)
	if err != nil {
		rel = name
	}
	return Entry{
		Name:     filepath.ToSlash(rel),
		Path:     path,
		Project:  project,
		Modified: info.ModTime(),
		Size:     info.Size(),
	}, true
}
