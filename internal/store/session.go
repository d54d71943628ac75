package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/engram/internal/model"
)

// StaleSessionHours is the default idle timeout after which a session is
// considered abandoned (an agent process that crashed without a clean end).
const StaleSessionHours = 24

const sessionColumns = `id, agent_id, focus, scope, description, started_at, ended_at`

// InsertSession persists a new session, assigning id/started_at if missing.
func (s *SQLiteStore) InsertSession(ctx context.Context, sess model.Session) (model.Session, error) {
	if sess.ID == "" {
		sess.ID = s.newID("sess")
	}
	if sess.StartedAt == "" {
		sess.StartedAt = nowISO()
	}
	if len(sess.Scope) == 0 {
		sess.Scope = nil
	}

	var scopeJSON *string
	if sess.Scope != nil {
		b, _ := json.Marshal(sess.Scope)
		js := string(b)
		scopeJSON = &js
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.AgentID, sess.Focus, scopeJSON,
		nullable(sess.Description), sess.StartedAt, nullable(sess.EndedAt))
	if err != nil {
		return model.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return model.Session{}, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	return sess, err
}

// EndSession marks a session ended. Ending is one-way per instance.
func (s *SQLiteStore) EndSession(ctx context.Context, id string) (model.Session, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if sess.EndedAt != "" {
		return model.Session{}, fmt.Errorf("session %s: %w", id, model.ErrSessionEnded)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`, nowISO(), id)
	if err != nil {
		return model.Session{}, err
	}
	return s.GetSession(ctx, id)
}

// GetActiveSession returns the most recently started session with no end
// time for the agent, ignoring older ended ones.
func (s *SQLiteStore) GetActiveSession(ctx context.Context, agentID string) (model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE agent_id = ? AND ended_at IS NULL
		 ORDER BY started_at DESC LIMIT 1`, agentID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return model.Session{}, fmt.Errorf("no active session for agent %s: %w", agentID, model.ErrNotFound)
	}
	return sess, err
}

func (s *SQLiteStore) ListSessions(ctx context.Context, f SessionFilter) ([]model.Session, error) {
	var conditions []string
	var args []any

	if f.ActiveOnly {
		conditions = append(conditions, "ended_at IS NULL")
	}
	if f.AgentID != "" {
		conditions = append(conditions, "agent_id = ?")
		args = append(args, f.AgentID)
	}

	where := "1=1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE `+where+
			` ORDER BY started_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CleanupStaleSessions auto-ends active sessions started more than
// timeoutHours ago. Explicit call, not a background timer. Returns the
// number of sessions ended.
func (s *SQLiteStore) CleanupStaleSessions(ctx context.Context, timeoutHours int) (int, error) {
	if timeoutHours <= 0 {
		timeoutHours = StaleSessionHours
	}
	cutoff := time.Now().UTC().Add(-time.Duration(timeoutHours) * time.Hour).Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?
		 WHERE ended_at IS NULL AND started_at < ?`,
		nowISO(), cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanSession(row scanner) (model.Session, error) {
	var sess model.Session
	var scopeJSON, description, endedAt sql.NullString

	err := row.Scan(&sess.ID, &sess.AgentID, &sess.Focus, &scopeJSON,
		&description, &sess.StartedAt, &endedAt)
	if err != nil {
		return sess, err
	}

	if scopeJSON.Valid {
		json.Unmarshal([]byte(scopeJSON.String), &sess.Scope)
	}
	if description.Valid {
		sess.Description = description.String
	}
	if endedAt.Valid {
		sess.EndedAt = endedAt.String
	}
	return sess, nil
}
