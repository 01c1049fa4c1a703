package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/basket/go-claw/internal/tokens"
)

// Message is one immutable conversational turn.
type Message struct {
	ID            int64
	SessionID     string
	Role          string
	Content       string
	TokenEstimate int
	Timestamp     string
	Metadata      map[string]string
}

// InsertMessage appends a message, computing its token_estimate per the
// floor(len/4), min 1 rule, and returns the new id. The FTS index row is
// written in the same statement set, not a best-effort afterthought.
func (s *Store) InsertMessage(ctx context.Context, session, role, content string, metadata map[string]string) (int64, error) {
	var metaJSON sql.NullString
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return 0, fmt.Errorf("store: marshal metadata: %w", err)
		}
		metaJSON = sql.NullString{String: string(b), Valid: true}
	}

	est := tokens.Estimate(content)
	var id int64
	err := retryOnBusy(ctx, 5, func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO messages (session_id, role, content, token_estimate, timestamp, metadata)
			VALUES (?, ?, ?, ?, ?, ?);
		`, session, role, content, est, nowStamp(), metaJSON)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("store: insert message: %w", err)
	}
	return id, nil
}

func scanMessage(row interface {
	Scan(dest ...any) error
}) (Message, error) {
	var m Message
	var metaJSON sql.NullString
	if err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.TokenEstimate, &m.Timestamp, &metaJSON); err != nil {
		return Message{}, err
	}
	if metaJSON.Valid && metaJSON.String != "" {
		_ = json.Unmarshal([]byte(metaJSON.String), &m.Metadata)
	}
	return m, nil
}

// GetMessage returns the message with the given id.
func (s *Store) GetMessage(ctx context.Context, id int64) (Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, role, content, token_estimate, timestamp, metadata
		FROM messages WHERE id = ?;
	`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("store: get message %d: %w", id, err)
	}
	return m, nil
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMessagesByRange returns messages with id in [lo, hi], ordered by id.
func (s *Store) GetMessagesByRange(ctx context.Context, lo, hi int64) ([]Message, error) {
	msgs, err := s.queryMessages(ctx, `
		SELECT id, session_id, role, content, token_estimate, timestamp, metadata
		FROM messages WHERE id BETWEEN ? AND ? ORDER BY id ASC;
	`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("store: get messages by range: %w", err)
	}
	return msgs, nil
}

// GetMessagesBySession returns a session's messages ordered by id, paged.
func (s *Store) GetMessagesBySession(ctx context.Context, session string, limit, offset int) ([]Message, error) {
	msgs, err := s.queryMessages(ctx, `
		SELECT id, session_id, role, content, token_estimate, timestamp, metadata
		FROM messages WHERE session_id = ? ORDER BY id ASC LIMIT ? OFFSET ?;
	`, session, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: get messages by session: %w", err)
	}
	return msgs, nil
}

// GetUnsummarizedMessages returns every message in the session with no
// covering summary, ordered by id ascending.
func (s *Store) GetUnsummarizedMessages(ctx context.Context, session string) ([]Message, error) {
	msgs, err := s.queryMessages(ctx, `
		SELECT m.id, m.session_id, m.role, m.content, m.token_estimate, m.timestamp, m.metadata
		FROM messages m
		WHERE m.session_id = ?
		AND NOT EXISTS (
			SELECT 1 FROM summaries s
			WHERE s.session_id = m.session_id
			AND s.msg_start_id IS NOT NULL AND s.msg_end_id IS NOT NULL
			AND s.msg_start_id <= m.id AND s.msg_end_id >= m.id
		)
		ORDER BY m.id ASC;
	`, session)
	if err != nil {
		return nil, fmt.Errorf("store: get unsummarized messages: %w", err)
	}
	return msgs, nil
}

// CountMessages counts messages, optionally scoped to a session.
func (s *Store) CountMessages(ctx context.Context, session string) (int, error) {
	var n int
	var err error
	if session == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages;`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE session_id = ?;`, session).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("store: count messages: %w", err)
	}
	return n, nil
}

// TotalTokens sums token_estimate across messages, optionally scoped to a
// session.
func (s *Store) TotalTokens(ctx context.Context, session string) (int, error) {
	var n int
	var err error
	if session == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(token_estimate), 0) FROM messages;`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(token_estimate), 0) FROM messages WHERE session_id = ?;`, session).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("store: total tokens: %w", err)
	}
	return n, nil
}

// SearchFTS runs a tokenized full-text search over message content,
// supporting FTS5's native boolean (AND/OR/NOT) and phrase operators,
// ordered by relevance rank descending. A malformed query returns
// ErrInvalidQuery so the caller can fall back to SearchRegex.
func (s *Store) SearchFTS(ctx context.Context, query, session string, limit, offset int) ([]Message, error) {
	var rows *sql.Rows
	var err error
	if session == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT m.id, m.session_id, m.role, m.content, m.token_estimate, m.timestamp, m.metadata
			FROM messages_fts f
			JOIN messages m ON m.id = f.rowid
			WHERE messages_fts MATCH ?
			ORDER BY bm25(messages_fts) ASC
			LIMIT ? OFFSET ?;
		`, query, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT m.id, m.session_id, m.role, m.content, m.token_estimate, m.timestamp, m.metadata
			FROM messages_fts f
			JOIN messages m ON m.id = f.rowid
			WHERE messages_fts MATCH ? AND m.session_id = ?
			ORDER BY bm25(messages_fts) ASC
			LIMIT ? OFFSET ?;
		`, query, session, limit, offset)
	}
	if err != nil {
		if isFTSSyntaxError(err) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, err)
		}
		return nil, fmt.Errorf("store: search fts: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan fts result: %w", err)
		}
		out = append(out, m)
	}
	if e := rows.Err(); e != nil {
		if isFTSSyntaxError(e) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, e)
		}
		return nil, fmt.Errorf("store: search fts: %w", e)
	}
	return out, nil
}

// SearchRegex matches content against a case-insensitive regular
// expression, ordered by id ascending, with offset applied after
// filtering (SQLite has no native regex engine, so this filters in Go).
func (s *Store) SearchRegex(ctx context.Context, pattern, session string, limit, offset int) ([]Message, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, err)
	}

	all, err := s.queryMessages(ctx, messagesSessionFilterQuery(session), sessionArgs(session)...)
	if err != nil {
		return nil, fmt.Errorf("store: search regex: %w", err)
	}

	var matched []Message
	for _, m := range all {
		if re.MatchString(m.Content) {
			matched = append(matched, m)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) || limit <= 0 {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func messagesSessionFilterQuery(session string) string {
	if session == "" {
		return `SELECT id, session_id, role, content, token_estimate, timestamp, metadata FROM messages ORDER BY id ASC;`
	}
	return `SELECT id, session_id, role, content, token_estimate, timestamp, metadata FROM messages WHERE session_id = ? ORDER BY id ASC;`
}

func sessionArgs(session string) []any {
	if session == "" {
		return nil
	}
	return []any{session}
}
