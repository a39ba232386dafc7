package cache

import (
	"database/sql"
	"errors"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// entry is one indexed thumbnail
type entry struct {
	Key      string
	Source   string
	At       time.Duration
	Hits     int
	LastUsed string
}

// db is the SQLite index of cached frames
type db struct {
	conn *sql.DB
}

func openDB(dir string) (*db, error) {
	conn, err := sql.Open("sqlite", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	d := &db{conn: conn}
	if err := d.initTables(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *db) initTables() error {
	_, err := d.conn.Exec(`
	CREATE TABLE IF NOT EXISTS frames (
		key TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		at_ms INTEGER NOT NULL,
		hits INTEGER DEFAULT 0,
		last_used TEXT
	);
	CREATE INDEX IF NOT EXISTS frames_source ON frames(source);
	`)
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (d *db) upsert(key, source string, at time.Duration) error {
	_, err := d.conn.Exec(`
	INSERT INTO frames(key, source, at_ms, hits, last_used)
	VALUES(?, ?, ?, 0, ?)
	ON CONFLICT(key) DO UPDATE SET
		source=excluded.source,
		at_ms=excluded.at_ms,
		last_used=excluded.last_used;
	`, key, source, at.Milliseconds(), now())
	return err
}

// get returns the entry for key, or ErrMiss
func (d *db) get(key string) (*entry, error) {
	row := d.conn.QueryRow(`
	SELECT key, source, at_ms, hits, last_used
	FROM frames
	WHERE key = ?
	`, key)

	e := &entry{}
	var atMS int64
	var lastUsed sql.NullString
	if err := row.Scan(&e.Key, &e.Source, &atMS, &e.Hits, &lastUsed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, err
	}
	e.At = time.Duration(atMS) * time.Millisecond
	if lastUsed.Valid {
		e.LastUsed = lastUsed.String
	}
	return e, nil
}

func (d *db) hit(key string) error {
	_, err := d.conn.Exec(`
	UPDATE frames
	SET hits = hits + 1,
	    last_used = ?
	WHERE key = ?
	`, now(), key)
	return err
}

func (d *db) remove(key string) error {
	_, err := d.conn.Exec(`DELETE FROM frames WHERE key = ?`, key)
	return err
}

func (d *db) keys() ([]string, error) {
	rows, err := d.conn.Query(`SELECT key FROM frames`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (d *db) count() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM frames`).Scan(&n)
	return n, err
}

func (d *db) purge() error {
	_, err := d.conn.Exec(`DELETE FROM frames`)
	return err
}

func (d *db) close() error {
	return d.conn.Close()
}
