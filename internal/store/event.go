package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/engram/internal/model"
)

const eventColumns = `id, timestamp, event_type, agent_id, content, scope, status, priority, resolved_reason, superseded_by_event_id, session_id`

// eventColumns with an "e." table alias, for joined queries.
const eventColumnsE = `e.id, e.timestamp, e.event_type, e.agent_id, e.content, e.scope, e.status, e.priority, e.resolved_reason, e.superseded_by_event_id, e.session_id`

// normalizeEvent assigns id/timestamp/defaults and validates the closed
// enum fields and the content cap. Fails closed on unknown values.
func (s *SQLiteStore) normalizeEvent(e *model.Event) error {
	if e.ID == "" {
		e.ID = s.newID("evt")
	}
	if e.Timestamp == "" {
		e.Timestamp = nowISO()
	}
	if e.Status == "" {
		e.Status = model.StatusActive
	}
	if e.Priority == "" {
		e.Priority = model.PriorityNormal
	}

	if _, err := model.ParseEventType(string(e.Type)); err != nil {
		return err
	}
	if _, err := model.ParseStatus(string(e.Status)); err != nil {
		return err
	}
	if _, err := model.ParsePriority(string(e.Priority)); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(e.Content); n > model.MaxContentLen {
		return fmt.Errorf("%w: %d characters", model.ErrContentTooLong, n)
	}
	if len(e.Scope) == 0 {
		e.Scope = nil
	}
	if len(e.RelatedIDs) == 0 {
		e.RelatedIDs = nil
	}
	return nil
}

func (s *SQLiteStore) insertTx(ctx context.Context, tx *sql.Tx, e model.Event) error {
	var scopeJSON *string
	if e.Scope != nil {
		b, _ := json.Marshal(e.Scope)
		js := string(b)
		scopeJSON = &js
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp, string(e.Type), e.AgentID, e.Content, scopeJSON,
		string(e.Status), string(e.Priority),
		nullable(e.ResolvedReason), nullable(e.SupersededBy), nullable(e.SessionID))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	for _, to := range e.RelatedIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO event_links (from_id, to_id) VALUES (?, ?)`,
			e.ID, to)
		if err != nil {
			return fmt.Errorf("insert link: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, e model.Event) (model.Event, error) {
	if err := s.normalizeEvent(&e); err != nil {
		return model.Event{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Event{}, err
	}
	defer tx.Rollback()

	if err := s.insertTx(ctx, tx, e); err != nil {
		return model.Event{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Event{}, err
	}
	return e, nil
}

func (s *SQLiteStore) InsertBatch(ctx context.Context, events []model.Event) (int, error) {
	// Validate everything up front so a bad row cannot leave a partial batch.
	for i := range events {
		if err := s.normalizeEvent(&events[i]); err != nil {
			return 0, fmt.Errorf("event %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for i := range events {
		if err := s.insertTx(ctx, tx, events[i]); err != nil {
			return 0, fmt.Errorf("event %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(events), nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return model.Event{}, fmt.Errorf("event %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Event{}, err
	}
	events := []model.Event{e}
	if err := s.attachRelated(ctx, events); err != nil {
		return model.Event{}, err
	}
	return events[0], nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status model.Status, resolvedReason, supersededBy string) (model.Event, error) {
	if _, err := model.ParseStatus(string(status)); err != nil {
		return model.Event{}, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if err := model.ValidateTransition(&current, status); err != nil {
		return model.Event{}, err
	}

	// Lifecycle fields are set iff the status requires them; reopening
	// clears both.
	var reason, superseder *string
	switch status {
	case model.StatusResolved:
		if resolvedReason == "" {
			return model.Event{}, model.ErrReasonRequired
		}
		reason = &resolvedReason
	case model.StatusSuperseded:
		if supersededBy == "" {
			return model.Event{}, model.ErrSupersederRequired
		}
		superseder = &supersededBy
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE events SET status = ?, resolved_reason = ?, superseded_by_event_id = ?
		 WHERE id = ?`,
		string(status), reason, superseder, id)
	if err != nil {
		return model.Event{}, err
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) QueryFTS(ctx context.Context, text string, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumnsE+`
		 FROM events e
		 JOIN events_fts ON events_fts.rowid = e.rowid
		 WHERE events_fts MATCH ?
		 ORDER BY e.timestamp DESC LIMIT ?`,
		text, limit)
	if err != nil {
		return nil, err
	}
	return s.collectEvents(ctx, rows)
}

func (s *SQLiteStore) QueryStructured(ctx context.Context, f model.QueryFilter) ([]model.Event, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Text != "" && len(f.Types) == 0 && f.AgentID == "" &&
		f.Scope == "" && f.Since == "" && f.RelatedTo == "" {
		return s.QueryFTS(ctx, f.Text, f.Limit)
	}

	var conditions []string
	var args []any

	if f.Text != "" {
		conditions = append(conditions,
			`e.rowid IN (SELECT rowid FROM events_fts WHERE events_fts MATCH ?)`)
		args = append(args, f.Text)
	}
	if len(f.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Types)), ",")
		conditions = append(conditions, fmt.Sprintf("e.event_type IN (%s)", placeholders))
		for _, t := range f.Types {
			args = append(args, string(t))
		}
	}
	if f.AgentID != "" {
		conditions = append(conditions, "e.agent_id = ?")
		args = append(args, f.AgentID)
	}
	if f.Scope != "" {
		conditions = append(conditions, "e.scope LIKE ?")
		args = append(args, "%"+f.Scope+"%")
	}
	if f.Since != "" {
		conditions = append(conditions, "e.timestamp >= ?")
		args = append(args, f.Since)
	}
	if f.RelatedTo != "" {
		conditions = append(conditions,
			"e.id IN (SELECT from_id FROM event_links WHERE to_id = ?)")
		args = append(args, f.RelatedTo)
	}

	where := "1=1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumnsE+` FROM events e WHERE `+where+
			` ORDER BY e.timestamp DESC LIMIT ?`,
		args...)
	if err != nil {
		return nil, err
	}
	return s.collectEvents(ctx, rows)
}

func (s *SQLiteStore) RecentByType(ctx context.Context, p RecentParams) ([]model.Event, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}

	conditions := []string{"event_type = ?"}
	args := []any{string(p.Type)}

	if p.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(p.Status))
	}
	if p.Since != "" {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, p.Since)
	}
	if p.Scope != "" {
		conditions = append(conditions, "scope LIKE ?")
		args = append(args, "%"+p.Scope+"%")
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE `+strings.Join(conditions, " AND ")+
			` ORDER BY timestamp DESC LIMIT ?`,
		args...)
	if err != nil {
		return nil, err
	}
	return s.collectEvents(ctx, rows)
}

func (s *SQLiteStore) RecentResolved(ctx context.Context, since string, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE status = 'resolved' AND timestamp >= ?
		 ORDER BY timestamp DESC LIMIT ?`,
		since, limit)
	if err != nil {
		return nil, err
	}
	return s.collectEvents(ctx, rows)
}

func (s *SQLiteStore) QueryRelated(ctx context.Context, eventID string, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE id IN (SELECT from_id FROM event_links WHERE to_id = ?)
		 ORDER BY timestamp DESC LIMIT ?`,
		eventID, limit)
	if err != nil {
		return nil, err
	}
	return s.collectEvents(ctx, rows)
}

func (s *SQLiteStore) EventsBefore(ctx context.Context, types []model.EventType, cutoff string) ([]model.Event, error) {
	if len(types) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
	args := make([]any, 0, len(types)+1)
	for _, t := range types {
		args = append(args, string(t))
	}
	args = append(args, cutoff)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE event_type IN (`+placeholders+`) AND timestamp < ?
		 ORDER BY timestamp`,
		args...)
	if err != nil {
		return nil, err
	}
	return s.collectEvents(ctx, rows)
}

func (s *SQLiteStore) DeleteEvents(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM event_links WHERE from_id IN (`+placeholders+`)`, args...); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM events WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// LastActivity returns the timestamp of the most recent event, or "" for an
// empty store.
func (s *SQLiteStore) LastActivity(ctx context.Context) (string, error) {
	var ts string
	err := s.db.QueryRowContext(ctx,
		`SELECT timestamp FROM events ORDER BY timestamp DESC LIMIT 1`).Scan(&ts)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return ts, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (model.Event, error) {
	var e model.Event
	var typ, status, priority string
	var scopeJSON, resolvedReason, supersededBy, sessionID sql.NullString

	err := row.Scan(
		&e.ID, &e.Timestamp, &typ, &e.AgentID, &e.Content, &scopeJSON,
		&status, &priority, &resolvedReason, &supersededBy, &sessionID,
	)
	if err != nil {
		return e, err
	}

	e.Type = model.EventType(typ)
	e.Status = model.Status(status)
	e.Priority = model.Priority(priority)
	if scopeJSON.Valid {
		json.Unmarshal([]byte(scopeJSON.String), &e.Scope)
	}
	if resolvedReason.Valid {
		e.ResolvedReason = resolvedReason.String
	}
	if supersededBy.Valid {
		e.SupersededBy = supersededBy.String
	}
	if sessionID.Valid {
		e.SessionID = sessionID.String
	}
	return e, nil
}

func (s *SQLiteStore) collectEvents(ctx context.Context, rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachRelated(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// attachRelated loads outgoing link lists for a batch of events in one
// query, preserving insertion order within each event.
func (s *SQLiteStore) attachRelated(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(events)), ",")
	args := make([]any, len(events))
	index := make(map[string]int, len(events))
	for i := range events {
		args[i] = events[i].ID
		index[events[i].ID] = i
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT from_id, to_id FROM event_links
		 WHERE from_id IN (`+placeholders+`) ORDER BY rowid`,
		args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return err
		}
		i := index[from]
		events[i].RelatedIDs = append(events[i].RelatedIDs, to)
	}
	return rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
