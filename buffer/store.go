package buffer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var ErrNotConfigured = errors.New("training buffer is not configured")

const schema = `CREATE TABLE IF NOT EXISTS examples (
	episode    TEXT NOT NULL,
	step       INTEGER NOT NULL,
	player     INTEGER NOT NULL,
	players    INTEGER NOT NULL,
	state      TEXT NOT NULL,
	label      TEXT NOT NULL,
	graph      TEXT NOT NULL,
	label_min  DOUBLE PRECISION NOT NULL,
	label_max  DOUBLE PRECISION NOT NULL,
	created_at BIGINT NOT NULL,
	PRIMARY KEY (episode, step)
)`

// Store persists training examples in SQLite or PostgreSQL.
type Store struct {
	db       *sql.DB
	postgres bool
}

// Open connects to dsn: a postgres:// URL, or a sqlite:// URL or bare path
// for a local file.
func Open(ctx context.Context, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrNotConfigured
	}

	var (
		db       *sql.DB
		err      error
		postgres bool
	)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		postgres = true
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres open: %w", err)
		}
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(2)
	default:
		path := filepath.Clean(strings.TrimPrefix(dsn, "sqlite://"))
		db, err = sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
		if err != nil {
			return nil, fmt.Errorf("open sqlite db: %w", err)
		}
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping buffer db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create buffer schema: %w", err)
	}
	return &Store{db: db, postgres: postgres}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders for drivers that number them.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Append writes examples in a single transaction.
func (s *Store) Append(ctx context.Context, examples []Example) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	if len(examples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO examples (episode, step, player, players, state, label, graph, label_min, label_max, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().UnixNano()
	for _, e := range examples {
		if len(e.Label) == 0 {
			return fmt.Errorf("example %s/%d has no label", e.Episode, e.Step)
		}
		state, err := json.Marshal(e.State)
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}
		label, err := json.Marshal(e.Label)
		if err != nil {
			return fmt.Errorf("encode label: %w", err)
		}
		graph, err := json.Marshal(e.Graph)
		if err != nil {
			return fmt.Errorf("encode graph: %w", err)
		}
		lo, hi := labelRange(e.Label)
		if _, err := stmt.ExecContext(ctx, e.Episode, e.Step, e.Player, e.Players,
			string(state), string(label), string(graph), lo, hi, now); err != nil {
			return fmt.Errorf("insert example %s/%d: %w", e.Episode, e.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// Load returns the examples passing f in insertion order.
func (s *Store) Load(ctx context.Context, f Filter) ([]Example, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}

	query := `SELECT episode, step, player, players, state, label, graph
		 FROM examples
		 WHERE label_max >= ? AND label_min <= ?`
	args := []any{f.Min, f.Max}
	if f.Players > 0 {
		query += ` AND players = ?`
		args = append(args, f.Players)
	}
	query += ` ORDER BY created_at, episode, step`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}
	defer rows.Close()

	var examples []Example
	for rows.Next() {
		var (
			e                   Example
			state, label, graph string
		)
		if err := rows.Scan(&e.Episode, &e.Step, &e.Player, &e.Players, &state, &label, &graph); err != nil {
			return nil, fmt.Errorf("scan example: %w", err)
		}
		if err := json.Unmarshal([]byte(state), &e.State); err != nil {
			return nil, fmt.Errorf("decode state of %s/%d: %w", e.Episode, e.Step, err)
		}
		if err := json.Unmarshal([]byte(label), &e.Label); err != nil {
			return nil, fmt.Errorf("decode label of %s/%d: %w", e.Episode, e.Step, err)
		}
		if err := json.Unmarshal([]byte(graph), &e.Graph); err != nil {
			return nil, fmt.Errorf("decode graph of %s/%d: %w", e.Episode, e.Step, err)
		}
		examples = append(examples, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate examples: %w", err)
	}
	return examples, nil
}

// Count returns how many examples are stored for a table size, 0 for all.
func (s *Store) Count(ctx context.Context, players int) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotConfigured
	}
	query := `SELECT COUNT(*) FROM examples`
	var args []any
	if players > 0 {
		query += ` WHERE players = ?`
		args = append(args, players)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count examples: %w", err)
	}
	return n, nil
}

// Stats summarises the labels of the examples passing f.
func (s *Store) Stats(ctx context.Context, f Filter) (Stats, error) {
	examples, err := s.Load(ctx, f)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(examples), nil
}
