// Package history records structure loads and chat transcripts in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/molscope/internal/chat"
	"github.com/ziadkadry99/molscope/internal/db"
	"github.com/ziadkadry99/molscope/internal/llm"
	"github.com/ziadkadry99/molscope/internal/session"
)

// Entry is one recorded load.
type Entry struct {
	ID          string    `json:"id"`
	StructureID string    `json:"structure_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Phase       string    `json:"phase"`
	Error       string    `json:"error,omitempty"`
	Style       string    `json:"style"`
	ChainCount  int       `json:"chain_count"`
	AtomBytes   int       `json:"atom_bytes"`
	Generation  uint64    `json:"generation"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// Store provides access to load history and chat transcripts.
type Store struct {
	db     *db.DB
	logger *zap.Logger

	mu       sync.Mutex
	lastGen  uint64
	lastSeen session.Phase
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: database, logger: logger}
}

// Record stores a finished load. States in the Idle or Loading phase are
// ignored.
func (s *Store) Record(ctx context.Context, st session.State) error {
	if st.Phase != session.Ready && st.Phase != session.Error {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO load_history (
			id, structure_id, title, phase, error, style,
			chain_count, atom_bytes, generation, loaded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(),
		st.StructureID,
		st.Title,
		st.Phase.String(),
		st.Error,
		string(st.Style),
		len(st.Chains),
		len(st.RawText),
		int64(st.Generation),
		formatTime(st.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting load history: %w", err)
	}
	return nil
}

// Observe is a session subscriber that records each load outcome once.
// Restyling republishes a Ready state with the same generation; those are
// skipped.
func (s *Store) Observe(st session.State) {
	if st.Phase != session.Ready && st.Phase != session.Error {
		return
	}
	s.mu.Lock()
	if st.Generation == s.lastGen && st.Phase == s.lastSeen {
		s.mu.Unlock()
		return
	}
	s.lastGen = st.Generation
	s.lastSeen = st.Phase
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Record(ctx, st); err != nil {
		s.logger.Warn("failed to record load", zap.String("id", st.StructureID), zap.Error(err))
	}
}

// Recent returns up to limit loads, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, structure_id, title, phase, error, style,
			   chain_count, atom_bytes, generation, loaded_at
		FROM load_history
		ORDER BY loaded_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying load history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			gen int64
			ts  string
		)
		if err := rows.Scan(&e.ID, &e.StructureID, &e.Title, &e.Phase, &e.Error, &e.Style,
			&e.ChainCount, &e.AtomBytes, &gen, &ts); err != nil {
			return nil, fmt.Errorf("scanning load history: %w", err)
		}
		e.Generation = uint64(gen)
		e.LoadedAt = parseTime(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AppendTurns adds turns to a chat transcript, creating it if needed.
func (s *Store) AppendTurns(ctx context.Context, sessionID string, turns ...chat.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, now, now); err != nil {
		return fmt.Errorf("upserting chat session: %w", err)
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM chat_messages WHERE session_id = ?`, sessionID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("reading transcript length: %w", err)
	}

	for _, t := range turns {
		seq++
		at := t.At
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_messages (id, session_id, seq, role, content, html, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), sessionID, seq, string(t.Role), t.Content, t.HTML, formatTime(at),
		); err != nil {
			return fmt.Errorf("inserting chat message: %w", err)
		}
	}
	return tx.Commit()
}

// Turns returns up to limit of the most recent turns in a transcript, oldest
// first. limit <= 0 returns the whole transcript.
func (s *Store) Turns(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error) {
	query := `
		SELECT role, content, html, created_at FROM (
			SELECT seq, role, content, html, created_at FROM chat_messages
			WHERE session_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}
	defer rows.Close()

	var turns []chat.Turn
	for rows.Next() {
		var (
			t    chat.Turn
			role string
			html sql.NullString
			ts   string
		)
		if err := rows.Scan(&role, &t.Content, &html, &ts); err != nil {
			return nil, fmt.Errorf("scanning transcript: %w", err)
		}
		t.Role = llm.Role(role)
		t.HTML = html.String
		t.At = parseTime(ts)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

const timeLayout = "2006-01-02 15:04:05.000"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.DateTime, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
