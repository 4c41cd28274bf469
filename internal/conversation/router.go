package conversation

import (
	"context"
	"errors"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"omnis/kiosk/internal/answer"
)

const (
	SourceLocal    = "local"
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

type Answer struct {
	Text   string
	Source string
}

// Router answers a question from the local source first, then the remote
// one, and always returns something speakable.
type Router struct {
	local  answer.Source
	remote answer.Remote
	tracer trace.Tracer
}

// NewRouter accepts nil for either source.
func NewRouter(local answer.Source, remote answer.Remote) *Router {
	return &Router{local: local, remote: remote, tracer: otel.Tracer("omnis/kiosk/conversation")}
}

func (r *Router) Route(ctx context.Context, question string) Answer {
	ctx, span := r.tracer.Start(ctx, "conversation.route")
	defer span.End()

	a := r.route(ctx, question)
	span.SetAttributes(attribute.String("answer.source", a.Source))
	routedTotal.WithLabelValues(a.Source).Inc()
	return a
}

func (r *Router) route(ctx context.Context, question string) Answer {
	if r.local != nil {
		if text, ok := r.local.Lookup(ctx, question); ok {
			return Answer{Text: text, Source: SourceLocal}
		}
	}
	if r.remote == nil {
		return Answer{Text: answer.PhraseNotConfigured, Source: SourceFallback}
	}

	text, err := r.remote.Ask(ctx, question)
	if err == nil {
		return Answer{Text: text, Source: SourceRemote}
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	switch {
	case errors.Is(err, answer.ErrNotConfigured):
		log.Printf("[answer] remote backend not configured")
		return Answer{Text: answer.PhraseNotConfigured, Source: SourceFallback}
	case errors.Is(err, answer.ErrQuota):
		log.Printf("[answer] remote quota exceeded: %v", err)
		return Answer{Text: answer.PhraseBusy, Source: SourceFallback}
	case errors.Is(err, answer.ErrNoAnswer):
		return Answer{Text: answer.PhraseNoAnswer, Source: SourceFallback}
	default:
		log.Printf("[answer] remote failed: %v", err)
		return Answer{Text: answer.PhraseFailed, Source: SourceFallback}
	}
}
