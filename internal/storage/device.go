package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lerrors "github.com/FocuswithJustin/lumina/core/errors"
	"github.com/FocuswithJustin/lumina/core/sqlite"
)

const deviceSchema = `
CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// DeviceStore is the local key/value store backed by a single SQLite file.
type DeviceStore struct {
	db   *sql.DB
	path string
}

// OpenDevice opens (creating if needed) the device database at path.
func OpenDevice(path string) (*DeviceStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, lerrors.NewIO("create", filepath.Dir(path), err)
	}
	db, err := sqlite.OpenFile(path)
	if err != nil {
		return nil, lerrors.NewIO("open", path, err)
	}
	return newDevice(db, path)
}

// OpenMemoryDevice returns a device store that lives only as long as the
// process. Used by tests and `--ephemeral` runs.
func OpenMemoryDevice() (*DeviceStore, error) {
	db, err := sqlite.OpenMemory()
	if err != nil {
		return nil, lerrors.NewIO("open", ":memory:", err)
	}
	return newDevice(db, ":memory:")
}

func newDevice(db *sql.DB, path string) (*DeviceStore, error) {
	if _, err := db.Exec(deviceSchema); err != nil {
		db.Close()
		return nil, lerrors.NewIO("migrate", path, err)
	}
	return &DeviceStore{db: db, path: path}, nil
}

// Name implements Backend.
func (d *DeviceStore) Name() string { return "device" }

// Path returns the database location.
func (d *DeviceStore) Path() string { return d.path }

// Get implements Backend.
func (d *DeviceStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := d.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, lerrors.NewIO("read", key, err)
	}
	return value, true, nil
}

// Put implements Backend.
func (d *DeviceStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return lerrors.NewIO("write", key, err)
	}
	return nil
}

// Delete implements Backend.
func (d *DeviceStore) Delete(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
		return lerrors.NewIO("delete", key, err)
	}
	return nil
}

// Keys lists stored keys in lexical order.
func (d *DeviceStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT key FROM documents ORDER BY key`)
	if err != nil {
		return nil, lerrors.NewIO("list", d.path, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close implements Backend.
func (d *DeviceStore) Close() error {
	return d.db.Close()
}
