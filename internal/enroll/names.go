package enroll

import (
	"errors"
	"strings"
	"unicode"
)

var ErrInvalidName = errors.New("not a usable name")

var greetingWords = map[string]struct{}{
	"hello": {}, "hi": {}, "hey": {}, "thanks": {}, "thank you": {},
}

var introPrefixes = []string{"my name is ", "my name's ", "i am ", "i'm ", "it's ", "this is ", "call me "}

// ValidateName turns a transcribed utterance into a display name.
// Empty input, bare greetings or thanks, and anything with fewer than two
// letters are rejected with ErrInvalidName.
func ValidateName(utterance string) (string, error) {
	s := strings.Join(strings.Fields(utterance), " ")
	s = strings.TrimFunc(s, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSpace(r) })
	lower := strings.ToLower(s)
	if lower == "" {
		return "", ErrInvalidName
	}
	if _, ok := greetingWords[lower]; ok {
		return "", ErrInvalidName
	}
	for _, p := range introPrefixes {
		if strings.HasPrefix(lower, p) {
			s = strings.TrimFunc(s[len(p):], func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSpace(r) })
			break
		}
	}
	// "my name is hello" is still a greeting
	if _, ok := greetingWords[strings.ToLower(s)]; ok {
		return "", ErrInvalidName
	}
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < 2 {
		return "", ErrInvalidName
	}
	return titleCase(s), nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
