package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeLayout is fixed-width so that lexical order in SQLite matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Operation history

// InsertOperation records an operation. An empty ID is replaced by a new
// UUID, which is returned.
func (s *Store) InsertOperation(op *Operation) (string, error) {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}

	query := `
		INSERT INTO operations
		(id, kind, snapshot, backend, started_at, finished_at, status,
		 pkgs_added, pkgs_removed, repos_added, repos_removed, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		op.ID,
		op.Kind,
		op.Snapshot,
		op.Backend,
		op.StartedAt.UTC().Format(timeLayout),
		op.FinishedAt.UTC().Format(timeLayout),
		op.Status,
		op.PkgsAdded,
		op.PkgsRemoved,
		op.ReposAdded,
		op.ReposRemoved,
		op.Comment,
	)
	if err != nil {
		return "", wrapQueryErr(err, "failed to insert operation %s", op.ID)
	}

	return op.ID, nil
}

// RecordOperation implements the snapshot manager's recorder hook.
func (s *Store) RecordOperation(op *Operation) error {
	_, err := s.InsertOperation(op)
	return err
}

const operationColumns = `
	id, kind, snapshot, backend, started_at, finished_at, status,
	pkgs_added, pkgs_removed, repos_added, repos_removed, comment
`

// GetOperation retrieves an operation by ID.
func (s *Store) GetOperation(id string) (*Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = ?`

	op, err := scanOperation(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("operation %s not found", id)
	}
	if err != nil {
		return nil, wrapQueryErr(err, "failed to get operation %s", id)
	}

	return op, nil
}

// ListOperations returns operations newest first. An empty snapshot matches
// all snapshots; limit <= 0 means no limit.
func (s *Store) ListOperations(snapshot string, limit int) ([]*Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations`
	var args []any

	if snapshot != "" {
		query += ` WHERE snapshot = ?`
		args = append(args, snapshot)
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapQueryErr(err, "failed to list operations")
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation row: %w", err)
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}

	return ops, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperation(row rowScanner) (*Operation, error) {
	var op Operation
	var startedAt, finishedAt string
	var backend, comment sql.NullString

	err := row.Scan(
		&op.ID,
		&op.Kind,
		&op.Snapshot,
		&backend,
		&startedAt,
		&finishedAt,
		&op.Status,
		&op.PkgsAdded,
		&op.PkgsRemoved,
		&op.ReposAdded,
		&op.ReposRemoved,
		&comment,
	)
	if err != nil {
		return nil, err
	}
	op.Backend = backend.String
	op.Comment = comment.String

	if op.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("failed to parse started_at for %s: %w", op.ID, err)
	}
	if op.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
		return nil, fmt.Errorf("failed to parse finished_at for %s: %w", op.ID, err)
	}

	return &op, nil
}

// Drift events

// InsertDriftEvent records a drift detection and returns its ID.
func (s *Store) InsertDriftEvent(ev *DriftEvent) (int64, error) {
	query := `
		INSERT INTO drift_events
		(snapshot, detected_at, pkgs_added, pkgs_removed, repos_added, repos_removed, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		ev.Snapshot,
		ev.DetectedAt.UTC().Format(timeLayout),
		ev.PkgsAdded,
		ev.PkgsRemoved,
		ev.ReposAdded,
		ev.ReposRemoved,
		ev.Detail,
	)
	if err != nil {
		return 0, wrapQueryErr(err, "failed to insert drift event")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get drift event ID: %w", err)
	}
	ev.ID = id

	return id, nil
}

// ListDriftEvents returns drift events newest first. An empty snapshot
// matches all snapshots.
func (s *Store) ListDriftEvents(snapshot string, limit int) ([]*DriftEvent, error) {
	query := `SELECT id, snapshot, detected_at, pkgs_added, pkgs_removed, repos_added, repos_removed, detail FROM drift_events`
	var args []any

	if snapshot != "" {
		query += ` WHERE snapshot = ?`
		args = append(args, snapshot)
	}
	query += ` ORDER BY detected_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapQueryErr(err, "failed to list drift events")
	}
	defer rows.Close()

	var events []*DriftEvent
	for rows.Next() {
		var ev DriftEvent
		var detectedAt string
		var detail sql.NullString

		err := rows.Scan(
			&ev.ID,
			&ev.Snapshot,
			&detectedAt,
			&ev.PkgsAdded,
			&ev.PkgsRemoved,
			&ev.ReposAdded,
			&ev.ReposRemoved,
			&detail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan drift event row: %w", err)
		}
		ev.Detail = detail.String

		ev.DetectedAt, err = time.Parse(timeLayout, detectedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse detected_at for drift event %d: %w", ev.ID, err)
		}

		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drift events: %w", err)
	}

	return events, nil
}
