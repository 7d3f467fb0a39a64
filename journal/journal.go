// Package journal keeps every broadcast of every game in SQLite so that a
// player can catch up on updates it missed.
package journal

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/gob"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/zucenko/losttreasure/model"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

var ErrDuplicate = errors.New("update already journaled")

type Journal struct {
	sqlDB *sql.DB
}

// Open opens the journal at path, creating the schema on first use.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Journal{sqlDB: sqlDB}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.sqlDB == nil {
		return nil
	}
	return j.sqlDB.Close()
}

// Append stores one broadcast. Sequence numbers are unique per game.
func (j *Journal) Append(ctx context.Context, game string, msg model.ServerMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if game == "" {
		return fmt.Errorf("game token is required")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return fmt.Errorf("encode update %d: %w", msg.Seq, err)
	}
	_, err := j.sqlDB.ExecContext(ctx,
		`INSERT INTO updates (game, seq, payload, created_at) VALUES (?, ?, ?, ?)`,
		game, int64(msg.Seq), buf.Bytes(), time.Now().UTC().UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("game %s seq %d: %w", game, msg.Seq, ErrDuplicate)
		}
		return fmt.Errorf("append update: %w", err)
	}
	return nil
}

// Since returns the broadcasts of game with a sequence number above after, in
// order.
func (j *Journal) Since(ctx context.Context, game string, after uint64) ([]model.ServerMessage, error) {
	rows, err := j.sqlDB.QueryContext(ctx,
		`SELECT payload FROM updates WHERE game = ? AND seq > ? ORDER BY seq`,
		game, int64(after))
	if err != nil {
		return nil, fmt.Errorf("query updates: %w", err)
	}
	defer rows.Close()

	var out []model.ServerMessage
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		var msg model.ServerMessage
		if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&msg); err != nil {
			return nil, fmt.Errorf("decode update: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate updates: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
