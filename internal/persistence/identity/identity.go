// Package identity checks session tokens issued by the account service.
package identity

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

type Validator interface {
	Validate(ctx context.Context, username, token string) (bool, error)
}

// Static accepts a fixed username -> token table.
type Static struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewStatic(tokens map[string]string) *Static {
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &Static{tokens: cp}
}

func (s *Static) Set(username, token string) {
	s.mu.Lock()
	s.tokens[username] = token
	s.mu.Unlock()
}

func (s *Static) Validate(_ context.Context, username, token string) (bool, error) {
	s.mu.RLock()
	want, ok := s.tokens[username]
	s.mu.RUnlock()
	if !ok || token == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1, nil
}

// SQLite reads the sessions table the account service writes. Rows are
// (username, token, expires_at) with expires_at in unix milliseconds; 0 never
// expires.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, eris.New("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "create db dir")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "pragma")
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		username TEXT NOT NULL,
		token TEXT NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (username, token)
	);`); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "init schema")
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Validate(ctx context.Context, username, token string) (bool, error) {
	if username == "" || token == "" {
		return false, nil
	}
	var expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM sessions WHERE username = ? AND token = ?`, username, token).Scan(&expires)
	if eris.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "validate session")
	}
	if expires != 0 && s.now().UnixMilli() >= expires {
		return false, nil
	}
	return true, nil
}

// Issue inserts a session row. The account service owns this table in
// production; the server only issues tokens from the dev CLI and tests.
func (s *SQLite) Issue(ctx context.Context, username, token string, ttl time.Duration) error {
	var expires int64
	if ttl > 0 {
		expires = s.now().Add(ttl).UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions(username,token,expires_at) VALUES(?,?,?)`, username, token, expires)
	return eris.Wrap(err, "issue session")
}

func (s *SQLite) Close() error { return s.db.Close() }

// Chain accepts a token when any validator does. Lookup errors are returned
// only when no validator accepted.
type Chain []Validator

func (c Chain) Validate(ctx context.Context, username, token string) (bool, error) {
	var firstErr error
	for _, v := range c {
		ok, err := v.Validate(ctx, username, token)
		if ok {
			return true, nil
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return false, firstErr
}
