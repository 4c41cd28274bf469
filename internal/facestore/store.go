// Package facestore persists enrolled faces.
package facestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"omnis/kiosk/internal/types"
)

var (
	// ErrNameExists is returned when a name is already enrolled. Records are never merged.
	ErrNameExists = errors.New("face name already enrolled")
	ErrNotFound   = errors.New("face not found")
)

// Store is the persistence capability for enrolled faces.
type Store interface {
	Save(ctx context.Context, name string, desc types.Descriptor, image []byte) (types.FaceRecord, error)
	// LoadAll returns every record in enrollment order.
	LoadAll(ctx context.Context) ([]types.FaceRecord, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Open picks the backend by driver name: "sqlite" (default) or "postgres".
func Open(ctx context.Context, driver, path, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLiteStore(path)
	case "postgres", "pgvector":
		if dsn == "" {
			return nil, errors.New("postgres face store needs DATABASE_URL")
		}
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown face store driver %q", driver)
	}
}

func encodeDescriptor(d types.Descriptor) []byte {
	buf := make([]byte, 8*len(d))
	for i, f := range d {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeDescriptor(b []byte) (types.Descriptor, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("descriptor blob has %d bytes", len(b))
	}
	out := make(types.Descriptor, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out, nil
}
