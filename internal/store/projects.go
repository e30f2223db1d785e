package store

import (
	"fmt"
	"time"
)

// TouchProject records a project selection, moving it to the front of the
// recent list. The cache is trimmed to keep at most max entries; a max of 0
// disables trimming.
func (db *DB) TouchProject(key string, max int) error {
	if key == "" {
		return nil
	}

	_, err := db.sql.Exec(`
		INSERT INTO project_cache (project, last_used) VALUES (?, ?)
		ON CONFLICT(project) DO UPDATE SET last_used = excluded.last_used`,
		key, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("caching project: %w", err)
	}

	if max > 0 {
		_, err = db.sql.Exec(`
			DELETE FROM project_cache WHERE project NOT IN (
				SELECT project FROM project_cache
				ORDER BY last_used DESC LIMIT ?
			)`, max)
		if err != nil {
			return fmt.Errorf("trimming project cache: %w", err)
		}
	}
	return nil
}

// RecentProjects returns cached project keys, most recently used first.
func (db *DB) RecentProjects() ([]string, error) {
	rows, err := db.sql.Query(`
		SELECT project FROM project_cache ORDER BY last_used DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing recent projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// LastProject returns the most recently used project, or "" if none.
func (db *DB) LastProject() (string, error) {
	projects, err := db.RecentProjects()
	if err != nil {
		return "", err
	}
	if len(projects) == 0 {
		return "", nil
	}
	return projects[0], nil
}
