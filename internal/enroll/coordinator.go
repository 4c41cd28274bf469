package enroll

import (
	"context"
	"errors"
	"fmt"
	"log"

	"omnis/kiosk/internal/face"
	"omnis/kiosk/internal/facestore"
	"omnis/kiosk/internal/types"
)

// Saver is the persistence side of enrollment.
type Saver interface {
	Save(ctx context.Context, name string, desc types.Descriptor, image []byte) (types.FaceRecord, error)
}

// Result is the outcome of one name attempt.
type Result struct {
	Name   string
	Reply  string
	Saved  bool
	Reason string // saved, invalid, exists, error
}

// Coordinator runs the voice side of enrollment: it takes the pending face
// from the slot, validates the spoken name and persists the record.
type Coordinator struct {
	slot    *Slot
	store   Saver
	gallery *face.Gallery
}

func NewCoordinator(slot *Slot, store Saver, gallery *face.Gallery) *Coordinator {
	return &Coordinator{slot: slot, store: store, gallery: gallery}
}

func (c *Coordinator) Slot() *Slot { return c.slot }

// HandleName consumes the pending slot with utterance as the name. The slot
// is always empty when it returns.
func (c *Coordinator) HandleName(ctx context.Context, utterance string) Result {
	p, ok := c.slot.Take()
	if !ok {
		return Result{Reason: "none"}
	}

	name, err := ValidateName(utterance)
	if err != nil {
		log.Printf("[enroll] rejected utterance %q", utterance)
		metricAttempts.WithLabelValues("invalid").Inc()
		return Result{Reply: "I didn't catch a name.", Reason: "invalid"}
	}

	if c.gallery != nil && c.gallery.Has(name) {
		metricAttempts.WithLabelValues("exists").Inc()
		return Result{Name: name, Reply: existsReply(name), Reason: "exists"}
	}

	rec, err := c.store.Save(ctx, name, p.Descriptor, p.Image)
	if errors.Is(err, facestore.ErrNameExists) {
		metricAttempts.WithLabelValues("exists").Inc()
		return Result{Name: name, Reply: existsReply(name), Reason: "exists"}
	}
	if err != nil {
		log.Printf("[enroll] save %q failed: %v", name, err)
		metricAttempts.WithLabelValues("error").Inc()
		return Result{Name: name, Reply: "Sorry, I couldn't save your name.", Reason: "error"}
	}

	if c.gallery != nil {
		if err := c.gallery.Add(rec); err != nil {
			log.Printf("[enroll] gallery add %q: %v", name, err)
		}
	}
	log.Printf("[enroll] enrolled %q id=%s", name, rec.ID)
	metricAttempts.WithLabelValues("saved").Inc()
	return Result{Name: name, Reply: fmt.Sprintf("Thanks %s, I will remember you.", name), Saved: true, Reason: "saved"}
}

func existsReply(name string) string {
	return fmt.Sprintf("I already know someone called %s. Please tell me your full name next time.", name)
}
