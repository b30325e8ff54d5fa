package profile

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

type SQLite struct {
	db *sql.DB
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
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return eris.Wrapf(err, "pragma %s", p)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			username TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return eris.Wrap(err, "init schema")
		}
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, username string) (Profile, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE username = ?`, username).Scan(&raw)
	if eris.Is(err, sql.ErrNoRows) {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, eris.Wrapf(err, "load profile %q", username)
	}
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Profile{}, false, eris.Wrapf(err, "decode profile %q", username)
	}
	return p, true, nil
}

func (s *SQLite) Save(ctx context.Context, username string, p Profile) error {
	if username == "" {
		return ErrEmptyUsername
	}
	b, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "encode profile")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles(username,data,updated_at) VALUES(?,?,?)
		 ON CONFLICT(username) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		username, string(b), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return eris.Wrapf(err, "save profile %q", username)
	}
	return nil
}

func (s *SQLite) Usernames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username FROM profiles ORDER BY username`)
	if err != nil {
		return nil, eris.Wrap(err, "list profiles")
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, eris.Wrap(err, "scan profile")
		}
		out = append(out, u)
	}
	return out, eris.Wrap(rows.Err(), "list profiles")
}

func (s *SQLite) Close() error { return s.db.Close() }
