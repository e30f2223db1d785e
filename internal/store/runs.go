package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is a recorded report generation run.
type Run struct {
	ID           string        `json:"id"`
	Project      string        `json:"project,omitempty"`
	TicketCount  int           `json:"ticketCount"`
	ReportPath   string        `json:"reportPath,omitempty"`
	Model        string        `json:"model,omitempty"`
	InputTokens  int           `json:"inputTokens"`
	OutputTokens int           `json:"outputTokens"`
	Duration     time.Duration `json:"duration"`
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// SaveRun records a run. A missing ID is generated.
func (db *DB) SaveRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := db.sql.Exec(`
		INSERT INTO runs (id, project, ticket_count, report_path, model,
			input_tokens, output_tokens, duration_ms, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Project, r.TicketCount, r.ReportPath, r.Model,
		r.InputTokens, r.OutputTokens, r.Duration.Milliseconds(),
		r.Status, r.Error, r.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// Runs returns recorded runs newest first, optionally filtered by project.
// A limit of 0 means no limit.
func (db *DB) Runs(project string, limit int) ([]Run, error) {
	query := `
		SELECT id, project, ticket_count, report_path, model,
			input_tokens, output_tokens, duration_ms, status, error, created_at
		FROM runs`
	var args []any
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}
	query += " ORDER BY created_at DESC, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a run by ID.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.sql.QueryRow(`
		SELECT id, project, ticket_count, report_path, model,
			input_tokens, output_tokens, duration_ms, status, error, created_at
		FROM runs WHERE id = ?`, id)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var durMs int64
	var created string
	err := row.Scan(&r.ID, &r.Project, &r.TicketCount, &r.ReportPath, &r.Model,
		&r.InputTokens, &r.OutputTokens, &durMs, &r.Status, &r.Error, &created)
	if err == sql.ErrNoRows {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("scanning run: %w", err)
	}
	r.Duration = time.Duration(durMs) * time.Millisecond
	if t, perr := time.Parse(time.RFC3339, created); perr == nil {
		r.CreatedAt = t
	}
	return r, nil
}
