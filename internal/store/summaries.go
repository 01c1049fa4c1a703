package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Summary is a DAG node covering a contiguous range of message ids.
type Summary struct {
	ID            int64
	SessionID     string
	Level         int
	Content       string
	TokenEstimate int
	Mode          string
	Timestamp     string
	MsgStartID    sql.NullInt64
	MsgEndID      sql.NullInt64
}

// Mode values for Summary.Mode, per §3.
const (
	ModePreserveDetails       = "preserve_details"
	ModeBulletPoints          = "bullet_points"
	ModeDeterministicTruncate = "deterministic_truncate"
	ModePassthrough           = "passthrough"
)

func scanSummary(row interface{ Scan(dest ...any) error }) (Summary, error) {
	var s Summary
	if err := row.Scan(&s.ID, &s.SessionID, &s.Level, &s.Content, &s.TokenEstimate, &s.Mode, &s.Timestamp, &s.MsgStartID, &s.MsgEndID); err != nil {
		return Summary{}, err
	}
	return s, nil
}

const summaryColumns = `id, session_id, level, content, token_estimate, mode, timestamp, msg_start_id, msg_end_id`

// CreateLeafSummary inserts a level-0 summary covering [msgStart, msgEnd]
// with no outgoing edges. The range must not overlap any existing leaf
// summary's range in the same session (§3 invariant 6, resolving spec.md
// Open Question 1 in favor of enforcing disjointness at write time).
func (s *Store) CreateLeafSummary(ctx context.Context, session, content string, msgStart, msgEnd int64, mode string, tokenEstimate int) (int64, error) {
	if msgStart > msgEnd {
		return 0, fmt.Errorf("%w: msg_start_id %d > msg_end_id %d", ErrInvalidQuery, msgStart, msgEnd)
	}

	var id int64
	err := retryOnBusy(ctx, 5, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var overlap int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM summaries
			WHERE session_id = ? AND level = 0
			AND msg_start_id IS NOT NULL AND msg_end_id IS NOT NULL
			AND msg_start_id <= ? AND msg_end_id >= ?;
		`, session, msgEnd, msgStart).Scan(&overlap); err != nil {
			return err
		}
		if overlap > 0 {
			return fmt.Errorf("%w: leaf range [%d,%d] overlaps an existing leaf summary in session %q", ErrInvalidQuery, msgStart, msgEnd, session)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO summaries (session_id, level, content, token_estimate, mode, timestamp, msg_start_id, msg_end_id)
			VALUES (?, 0, ?, ?, ?, ?, ?, ?);
		`, session, content, tokenEstimate, mode, nowStamp(), msgStart, msgEnd)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CreateCondensedSummary inserts a summary condensing childIDs, computing
// msg_start/msg_end as the min/max of the children's ranges and level as
// max(child.level)+1, per §3 invariants 4-5. Rejects an empty child set
// (spec.md Open Question 4: treated as caller error, not a permissible
// orphan summary) and aborts with no effect if any child already has a
// parent edge (the concurrency guard in §5, preventing two overlapping
// condensations from double-covering the same leaf).
func (s *Store) CreateCondensedSummary(ctx context.Context, session, content string, childIDs []int64, mode string, tokenEstimate int) (int64, error) {
	if len(childIDs) == 0 {
		return 0, fmt.Errorf("%w: condensed summary requires at least one child", ErrInvalidQuery)
	}

	var id int64
	err := retryOnBusy(ctx, 5, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var minStart, maxEnd sql.NullInt64
		maxLevel := -1
		for _, cid := range childIDs {
			row := tx.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM summaries WHERE id = ? AND session_id = ?;`, cid, session)
			child, err := scanSummary(row)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: child summary %d not found in session %q", ErrInvalidQuery, cid, session)
			}
			if err != nil {
				return err
			}

			var parentCount int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM summary_edges WHERE child_id = ?;`, cid).Scan(&parentCount); err != nil {
				return err
			}
			if parentCount > 0 {
				return fmt.Errorf("%w: child summary %d already has a parent", ErrAlreadyCondensed, cid)
			}

			if child.Level > maxLevel {
				maxLevel = child.Level
			}
			if child.MsgStartID.Valid && (!minStart.Valid || child.MsgStartID.Int64 < minStart.Int64) {
				minStart = child.MsgStartID
			}
			if child.MsgEndID.Valid && (!maxEnd.Valid || child.MsgEndID.Int64 > maxEnd.Int64) {
				maxEnd = child.MsgEndID
			}
		}

		if err := assertNoCycle(ctx, tx, childIDs); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO summaries (session_id, level, content, token_estimate, mode, timestamp, msg_start_id, msg_end_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?);
		`, session, maxLevel+1, content, tokenEstimate, mode, nowStamp(), minStart, maxEnd)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}

		for _, cid := range childIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO summary_edges (parent_id, child_id) VALUES (?, ?);`, id, cid); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// assertNoCycle walks the transitive descendant set of childIDs and
// confirms it stays finite and acyclic. Since a summary can only name
// already-existing ids as children and ids are monotonically assigned,
// the not-yet-created parent id can never appear in this closure — but
// the check is written generally over the closure, per spec.md §9's
// design note on enforcing acyclicity on write rather than trusting the
// construction path.
func assertNoCycle(ctx context.Context, tx *sql.Tx, childIDs []int64) error {
	visited := make(map[int64]bool)
	queue := append([]int64(nil), childIDs...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		rows, err := tx.QueryContext(ctx, `SELECT child_id FROM summary_edges WHERE parent_id = ?;`, id)
		if err != nil {
			return err
		}
		var grandchildren []int64
		for rows.Next() {
			var gc int64
			if err := rows.Scan(&gc); err != nil {
				rows.Close()
				return err
			}
			grandchildren = append(grandchildren, gc)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, gc := range grandchildren {
			if visited[gc] {
				return fmt.Errorf("%w: cycle detected at summary %d", ErrInvalidQuery, gc)
			}
			queue = append(queue, gc)
		}
	}
	return nil
}

// GetSummary returns the summary with the given id.
func (s *Store) GetSummary(ctx context.Context, id int64) (Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM summaries WHERE id = ?;`, id)
	sm, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, ErrNotFound
	}
	if err != nil {
		return Summary{}, fmt.Errorf("store: get summary %d: %w", id, err)
	}
	return sm, nil
}

func (s *Store) querySummaries(ctx context.Context, query string, args ...any) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sm, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// GetChildren returns the direct children of a condensed summary.
func (s *Store) GetChildren(ctx context.Context, parentID int64) ([]Summary, error) {
	out, err := s.querySummaries(ctx, `
		SELECT `+summaryColumns+` FROM summaries
		WHERE id IN (SELECT child_id FROM summary_edges WHERE parent_id = ?)
		ORDER BY msg_start_id ASC;
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("store: get children of %d: %w", parentID, err)
	}
	return out, nil
}

// GetParents returns the direct parents of a summary (normally at most one
// today, but the schema supports a general DAG).
func (s *Store) GetParents(ctx context.Context, childID int64) ([]Summary, error) {
	out, err := s.querySummaries(ctx, `
		SELECT `+summaryColumns+` FROM summaries
		WHERE id IN (SELECT parent_id FROM summary_edges WHERE child_id = ?)
		ORDER BY id ASC;
	`, childID)
	if err != nil {
		return nil, fmt.Errorf("store: get parents of %d: %w", childID, err)
	}
	return out, nil
}

// CountSummaries counts summaries, optionally scoped to a session.
func (s *Store) CountSummaries(ctx context.Context, session string) (int, error) {
	var n int
	var err error
	if session == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM summaries;`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM summaries WHERE session_id = ?;`, session).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("store: count summaries: %w", err)
	}
	return n, nil
}

// GetDAGDepth returns the maximum level across a session's summaries.
func (s *Store) GetDAGDepth(ctx context.Context, session string) (int, error) {
	var depth sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(level) FROM summaries WHERE session_id = ?;`, session).Scan(&depth); err != nil {
		return 0, fmt.Errorf("store: get dag depth: %w", err)
	}
	if !depth.Valid {
		return 0, nil
	}
	return int(depth.Int64), nil
}

// GetCoveringSummary returns the highest-level summary whose range
// contains messageID, or ErrNotFound if none covers it.
func (s *Store) GetCoveringSummary(ctx context.Context, session string, messageID int64) (Summary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+summaryColumns+` FROM summaries
		WHERE session_id = ? AND msg_start_id IS NOT NULL AND msg_end_id IS NOT NULL
		AND msg_start_id <= ? AND msg_end_id >= ?
		ORDER BY level DESC LIMIT 1;
	`, session, messageID, messageID)
	sm, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, ErrNotFound
	}
	if err != nil {
		return Summary{}, fmt.Errorf("store: get covering summary: %w", err)
	}
	return sm, nil
}

// GetTopLevelSummaries returns summaries with no incoming edge — the
// session's current DAG roof — ordered by msg_start_id.
func (s *Store) GetTopLevelSummaries(ctx context.Context, session string) ([]Summary, error) {
	out, err := s.querySummaries(ctx, `
		SELECT `+summaryColumns+` FROM summaries
		WHERE session_id = ? AND id NOT IN (SELECT child_id FROM summary_edges)
		ORDER BY msg_start_id ASC;
	`, session)
	if err != nil {
		return nil, fmt.Errorf("store: get top level summaries: %w", err)
	}
	return out, nil
}

// GetLeafSummaries returns level-0 summaries with no incoming edge — the
// set eligible for condensation.
func (s *Store) GetLeafSummaries(ctx context.Context, session string) ([]Summary, error) {
	out, err := s.querySummaries(ctx, `
		SELECT `+summaryColumns+` FROM summaries
		WHERE session_id = ? AND level = 0 AND id NOT IN (SELECT child_id FROM summary_edges)
		ORDER BY msg_start_id ASC;
	`, session)
	if err != nil {
		return nil, fmt.Errorf("store: get leaf summaries: %w", err)
	}
	return out, nil
}
