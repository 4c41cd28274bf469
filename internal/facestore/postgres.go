package facestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"omnis/kiosk/internal/types"
)

// PostgresStore keeps faces in Postgres with the pgvector extension, for
// deployments where several kiosks share one enrolled set.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS known_faces (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL UNIQUE,
			embedding VECTOR NOT NULL,
			image BYTEA,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, name string, desc types.Descriptor, image []byte) (types.FaceRecord, error) {
	rec := types.FaceRecord{ID: uuid.NewString(), Name: name, Descriptor: desc, Image: image}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO known_faces (id, name, embedding, image)
		VALUES ($1, $2, $3::vector, $4)
		RETURNING created_at
	`, rec.ID, name, vecToString(desc), image).Scan(&rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return types.FaceRecord{}, ErrNameExists
		}
		return types.FaceRecord{}, fmt.Errorf("insert face: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]types.FaceRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, embedding::text, image, created_at FROM known_faces ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	var out []types.FaceRecord
	for rows.Next() {
		var (
			rec    types.FaceRecord
			vecStr string
			ts     time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &vecStr, &rec.Image, &ts); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		if rec.Descriptor, err = parseVector(vecStr); err != nil {
			return nil, fmt.Errorf("face %s: %w", rec.Name, err)
		}
		rec.CreatedAt = ts
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM known_faces WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("delete face: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// vecToString formats a descriptor as a pgvector literal: [0.1,0.2,...]
func vecToString(vec types.Descriptor) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	sb.WriteByte(']')
	return sb.String()
}

func parseVector(s string) (types.Descriptor, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, errors.New("empty vector")
	}
	parts := strings.Split(s, ",")
	out := make(types.Descriptor, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("vector element %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}
