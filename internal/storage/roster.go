package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/roster"
)

// rosterRepo implements roster.Repository over the shared SQLite handle. The
// role column is the primary key, so assigning a role replaces its entry.
type rosterRepo struct {
	db *sql.DB
}

var _ roster.Repository = (*rosterRepo)(nil)

func (r *rosterRepo) Assign(ctx context.Context, entry roster.Entry) error {
	query := `
	INSERT INTO roster_entries (role, id, model_id, assignment_type, assigned_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(role) DO UPDATE SET
		model_id = excluded.model_id,
		assignment_type = excluded.assignment_type,
		updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.Role,
		entry.ID,
		entry.ModelID,
		entry.AssignmentType,
		entry.AssignedAt,
		entry.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to assign roster entry: %w", err)
	}

	return nil
}

func (r *rosterRepo) FindByRole(ctx context.Context, role core.DebateRole) (*roster.Entry, error) {
	query := `
	SELECT role, id, model_id, assignment_type, assigned_at, updated_at
	FROM roster_entries
	WHERE role = ?
	`

	var entry roster.Entry
	err := r.db.QueryRowContext(ctx, query, role).Scan(
		&entry.Role,
		&entry.ID,
		&entry.ModelID,
		&entry.AssignmentType,
		&entry.AssignedAt,
		&entry.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, roster.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find roster entry: %w", err)
	}

	return &entry, nil
}

func (r *rosterRepo) FindAll(ctx context.Context) ([]roster.Entry, error) {
	query := `
	SELECT role, id, model_id, assignment_type, assigned_at, updated_at
	FROM roster_entries
	ORDER BY role ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster entries: %w", err)
	}
	defer rows.Close()

	var entries []roster.Entry
	for rows.Next() {
		var entry roster.Entry
		err := rows.Scan(
			&entry.Role,
			&entry.ID,
			&entry.ModelID,
			&entry.AssignmentType,
			&entry.AssignedAt,
			&entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (r *rosterRepo) Remove(ctx context.Context, role core.DebateRole) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM roster_entries WHERE role = ?", role)
	if err != nil {
		return fmt.Errorf("failed to remove roster entry: %w", err)
	}
	return nil
}
