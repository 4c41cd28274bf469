// Package answer resolves visitor questions against the school FAQ and a
// remote language model.
package answer

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// Spoken when the remote side cannot help.
const (
	PhraseNoAnswer      = "I'm not sure about that. Please ask me about the school rules, or try rephrasing your question."
	PhraseBusy          = "I'm currently busy with too many requests. Please wait a minute."
	PhraseFailed        = "I couldn't process that. Could you please rephrase your question?"
	PhraseNotConfigured = "Sorry, I couldn't process that."
)

var (
	ErrNotConfigured = errors.New("answer backend not configured")
	ErrQuota         = errors.New("answer backend quota exceeded")
	ErrNoAnswer      = errors.New("answer backend returned nothing usable")
)

// Source answers from curated local data. ok is false when nothing matches.
type Source interface {
	Lookup(ctx context.Context, question string) (answer string, ok bool)
}

// Remote asks a remote model.
type Remote interface {
	Ask(ctx context.Context, question string) (string, error)
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true, "were": true,
	"do": true, "does": true, "did": true, "what": true, "when": true, "where": true, "who": true,
	"how": true, "why": true, "which": true, "of": true, "to": true, "in": true, "on": true,
	"at": true, "for": true, "and": true, "or": true, "i": true, "you": true, "me": true,
	"my": true, "your": true, "we": true, "our": true, "it": true, "can": true, "could": true,
	"please": true, "tell": true, "about": true, "there": true, "this": true, "that": true,
	"be": true, "with": true, "have": true, "has": true,
}

// Keywords lowercases text and returns its distinct content words in order.
func Keywords(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(f) < 2 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// clean removes markdown emphasis and headings that read badly aloud.
func clean(s string) string {
	s = strings.NewReplacer("*", "", "#", "").Replace(s)
	return strings.TrimSpace(s)
}
