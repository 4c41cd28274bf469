package facestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"omnis/kiosk/internal/types"
)

// SQLiteStore keeps faces in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS faces (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		descriptor BLOB NOT NULL,
		image BLOB,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, name string, desc types.Descriptor, image []byte) (types.FaceRecord, error) {
	rec := types.FaceRecord{
		ID:         s.newID(),
		Name:       name,
		Descriptor: desc,
		Image:      image,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO faces (id, name, descriptor, image, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, encodeDescriptor(desc), image, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return types.FaceRecord{}, ErrNameExists
		}
		return types.FaceRecord{}, fmt.Errorf("insert face: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]types.FaceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, descriptor, image, created_at FROM faces ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	var out []types.FaceRecord
	for rows.Next() {
		var (
			rec     types.FaceRecord
			blob    []byte
			created string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &blob, &rec.Image, &created); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		if rec.Descriptor, err = decodeDescriptor(blob); err != nil {
			return nil, fmt.Errorf("face %s: %w", rec.Name, err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM faces WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete face: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
