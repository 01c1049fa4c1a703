package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FileRef is a captured large-file exploration result.
type FileRef struct {
	ID                 int64
	SessionID          string
	FilePath           string
	FileType           string
	SizeBytes          int64
	ExplorationSummary string
	TokenEstimate      int
	Timestamp          string
}

// CreateFileRef inserts a FileRef and returns its id.
func (s *Store) CreateFileRef(ctx context.Context, fr FileRef) (int64, error) {
	var id int64
	err := retryOnBusy(ctx, 5, func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO file_refs (session_id, file_path, file_type, size_bytes, exploration_summary, token_estimate, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?);
		`, fr.SessionID, fr.FilePath, fr.FileType, fr.SizeBytes, fr.ExplorationSummary, fr.TokenEstimate, nowStamp())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("store: create file ref: %w", err)
	}
	return id, nil
}

func scanFileRef(row interface{ Scan(dest ...any) error }) (FileRef, error) {
	var f FileRef
	if err := row.Scan(&f.ID, &f.SessionID, &f.FilePath, &f.FileType, &f.SizeBytes, &f.ExplorationSummary, &f.TokenEstimate, &f.Timestamp); err != nil {
		return FileRef{}, err
	}
	return f, nil
}

const fileRefColumns = `id, session_id, file_path, file_type, size_bytes, exploration_summary, token_estimate, timestamp`

// GetFileRef returns the FileRef with the given id.
func (s *Store) GetFileRef(ctx context.Context, id int64) (FileRef, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileRefColumns+` FROM file_refs WHERE id = ?;`, id)
	f, err := scanFileRef(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FileRef{}, ErrNotFound
	}
	if err != nil {
		return FileRef{}, fmt.Errorf("store: get file ref %d: %w", id, err)
	}
	return f, nil
}

// ListFileRefs returns a session's file references ordered by id.
func (s *Store) ListFileRefs(ctx context.Context, session string) ([]FileRef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileRefColumns+` FROM file_refs WHERE session_id = ? ORDER BY id ASC;`, session)
	if err != nil {
		return nil, fmt.Errorf("store: list file refs: %w", err)
	}
	defer rows.Close()

	var out []FileRef
	for rows.Next() {
		f, err := scanFileRef(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
