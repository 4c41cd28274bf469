package facestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"omnis/kiosk/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "faces", "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Save(ctx, "Alice", types.Descriptor{0.1, -0.2, 0.3}, []byte("jpeg")); err != nil {
		t.Fatalf("save alice: %v", err)
	}
	if _, err := s.Save(ctx, "Priya", types.Descriptor{1, 2, 3}, nil); err != nil {
		t.Fatalf("save priya: %v", err)
	}

	recs, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Name != "Alice" || recs[1].Name != "Priya" {
		t.Fatalf("expected enrollment order, got %s, %s", recs[0].Name, recs[1].Name)
	}
	if len(recs[0].Descriptor) != 3 || recs[0].Descriptor[1] != -0.2 {
		t.Fatalf("descriptor did not round trip: %v", recs[0].Descriptor)
	}
	if string(recs[0].Image) != "jpeg" || recs[1].Image != nil {
		t.Fatalf("unexpected images %q / %q", recs[0].Image, recs[1].Image)
	}
	if recs[0].ID == "" || recs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", recs[0])
	}
}

func TestSaveDuplicateNameIsDistinctError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Save(ctx, "Alice", types.Descriptor{0.1}, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := s.Save(ctx, "alice", types.Descriptor{0.9}, nil)
	if !errors.Is(err, ErrNameExists) {
		t.Fatalf("expected ErrNameExists, got %v", err)
	}

	recs, _ := s.LoadAll(ctx)
	if len(recs) != 1 || recs[0].Descriptor[0] != 0.1 {
		t.Fatalf("original record must be untouched, got %+v", recs)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.Save(ctx, "Alice", types.Descriptor{0.1}, nil)

	if err := s.Delete(ctx, "Alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "Alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mongo", "", ""); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	if _, err := Open(context.Background(), "postgres", "", ""); err == nil {
		t.Fatalf("expected error for postgres without dsn")
	}
}

func TestVectorLiteral(t *testing.T) {
	d := types.Descriptor{0.5, -1, 0.125}
	got, err := parseVector(vecToString(d))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for i := range d {
		if got[i] != d[i] {
			t.Fatalf("element %d: got %v want %v", i, got[i], d[i])
		}
	}
	if _, err := parseVector("[]"); err == nil {
		t.Fatalf("expected error for empty vector")
	}
}
