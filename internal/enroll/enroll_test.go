package enroll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"omnis/kiosk/internal/face"
	"omnis/kiosk/internal/facestore"
	"omnis/kiosk/internal/types"
)

type fakeSaver struct {
	mu    sync.Mutex
	saved []types.FaceRecord
	err   error
}

func (f *fakeSaver) Save(ctx context.Context, name string, desc types.Descriptor, image []byte) (types.FaceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return types.FaceRecord{}, f.err
	}
	rec := types.FaceRecord{ID: name + "-id", Name: name, Descriptor: desc, Image: image}
	f.saved = append(f.saved, rec)
	return rec, nil
}

func pending(v float64) Pending {
	return Pending{Descriptor: types.Descriptor{v}, Image: []byte("face"), PublishedAt: time.Now()}
}

func TestSlotKeepsFirstPending(t *testing.T) {
	s := NewSlot()
	if !s.Publish(pending(1)) {
		t.Fatalf("first publish should be accepted")
	}
	if s.Publish(pending(2)) {
		t.Fatalf("second publish must be a no-op while awaiting")
	}
	p, ok := s.Take()
	if !ok || p.Descriptor[0] != 1 {
		t.Fatalf("expected original descriptor, got %+v", p)
	}
	if s.Awaiting() {
		t.Fatalf("take must clear the slot")
	}
	if _, ok := s.Take(); ok {
		t.Fatalf("empty slot must not yield")
	}
}

func TestSlotIgnoresEmptyDescriptor(t *testing.T) {
	s := NewSlot()
	if s.Publish(Pending{}) {
		t.Fatalf("publish without descriptor should be refused")
	}
}

func TestSlotExpire(t *testing.T) {
	s := NewSlot()
	now := time.Now()
	s.Publish(Pending{Descriptor: types.Descriptor{1}, PublishedAt: now})
	if s.Expire(now.Add(10*time.Second), 30*time.Second) {
		t.Fatalf("should not expire early")
	}
	if !s.Expire(now.Add(31*time.Second), 30*time.Second) {
		t.Fatalf("expected expiry")
	}
	if s.Awaiting() {
		t.Fatalf("expired slot must be empty")
	}
}

func TestSlotConcurrentPublish(t *testing.T) {
	s := NewSlot()
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if s.Publish(pending(float64(i))) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted publish, got %d", accepted)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Priya", "Priya", true},
		{"  priya sharma. ", "Priya Sharma", true},
		{"my name is Omar", "Omar", true},
		{"my name is hello", "", false},
		{"this is thank you!", "", false},
		{"hello", "", false},
		{"Thank you", "", false},
		{"hey!", "", false},
		{"", "", false},
		{"a", "", false},
		{"7 8", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidateName(tt.in)
			if tt.ok && err != nil {
				t.Fatalf("ValidateName(%q) error: %v", tt.in, err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidName) {
				t.Fatalf("ValidateName(%q) expected ErrInvalidName, got %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ValidateName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHandleNameRejectsGreeting(t *testing.T) {
	slot := NewSlot()
	saver := &fakeSaver{}
	c := NewCoordinator(slot, saver, face.NewGallery(nil))
	slot.Publish(pending(1))

	res := c.HandleName(context.Background(), "hello")
	if res.Saved || res.Reason != "invalid" || res.Reply != "I didn't catch a name." {
		t.Fatalf("expected rejection, got %+v", res)
	}
	if slot.Awaiting() {
		t.Fatalf("slot must be cleared after a rejected name")
	}
	if len(saver.saved) != 0 {
		t.Fatalf("nothing should be persisted, got %d", len(saver.saved))
	}
}

func TestHandleNamePersistsOnce(t *testing.T) {
	slot := NewSlot()
	saver := &fakeSaver{}
	g := face.NewGallery(nil)
	c := NewCoordinator(slot, saver, g)
	slot.Publish(pending(0.4))

	res := c.HandleName(context.Background(), "Priya")
	if !res.Saved || res.Reply != "Thanks Priya, I will remember you." {
		t.Fatalf("expected save, got %+v", res)
	}
	if len(saver.saved) != 1 || saver.saved[0].Name != "Priya" || saver.saved[0].Descriptor[0] != 0.4 {
		t.Fatalf("expected one record named Priya, got %+v", saver.saved)
	}
	if !g.Has("Priya") {
		t.Fatalf("gallery should know Priya immediately")
	}
	if slot.Awaiting() {
		t.Fatalf("slot must be cleared after save")
	}
}

func TestHandleNameStoreFailure(t *testing.T) {
	slot := NewSlot()
	c := NewCoordinator(slot, &fakeSaver{err: errors.New("disk full")}, face.NewGallery(nil))
	slot.Publish(pending(1))

	res := c.HandleName(context.Background(), "Priya")
	if res.Saved || res.Reply != "Sorry, I couldn't save your name." {
		t.Fatalf("expected apology, got %+v", res)
	}
	if slot.Awaiting() {
		t.Fatalf("slot must be cleared after failure")
	}
}

func TestHandleNameCollision(t *testing.T) {
	slot := NewSlot()
	c := NewCoordinator(slot, &fakeSaver{err: facestore.ErrNameExists}, face.NewGallery(nil))
	slot.Publish(pending(1))

	res := c.HandleName(context.Background(), "Alice")
	if res.Saved || res.Reason != "exists" {
		t.Fatalf("expected collision, got %+v", res)
	}
}

func TestHandleNameWithoutPending(t *testing.T) {
	c := NewCoordinator(NewSlot(), &fakeSaver{}, nil)
	if res := c.HandleName(context.Background(), "Priya"); res.Reason != "none" {
		t.Fatalf("expected no-op, got %+v", res)
	}
}
