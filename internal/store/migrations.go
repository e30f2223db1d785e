package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create runs",
		SQL: `
			CREATE TABLE runs (
				id            TEXT PRIMARY KEY,
				project       TEXT NOT NULL DEFAULT '',
				ticket_count  INTEGER NOT NULL DEFAULT 0,
				report_path   TEXT NOT NULL DEFAULT '',
				model         TEXT NOT NULL DEFAULT '',
				input_tokens  INTEGER NOT NULL DEFAULT 0,
				output_tokens INTEGER NOT NULL DEFAULT 0,
				duration_ms   INTEGER NOT NULL DEFAULT 0,
				status        TEXT NOT NULL,
				error         TEXT NOT NULL DEFAULT '',
				created_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_runs_project ON runs (project, created_at);
		`,
	},
	{
		Version: 2,
		Name:    "create project cache",
		SQL: `
			CREATE TABLE project_cache (
				project    TEXT PRIMARY KEY,
				last_used  TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
}
