// internal/charclass/charclass.go
//
// Single source of truth for how a character of a title or passage is treated.
// Every call site (masking, guess validation, victory, progress) classifies
// through Of so the three never drift apart.
//
// Classes:
//   - Punctuation: Unicode punctuation, symbols and whitespace. Never masked,
//     never guessable, excluded from progress.
//   - Content:     CJK Unified Ideographs U+4E00–U+9FA5. Masked until revealed,
//     the only guessable class.
//   - Rejected:    anything else (Latin letters, digits, other scripts). Shown
//     verbatim, not guessable, excluded from progress.

package charclass

import "unicode"

// Class is the outcome of classifying a single rune.
type Class int

const (
	Rejected Class = iota
	Punctuation
	Content
)

const (
	contentLo = '一'
	contentHi = '龥'
)

// String returns a lowercase label, used in logs and API errors.
func (c Class) String() string {
	switch c {
	case Punctuation:
		return "punctuation"
	case Content:
		return "content"
	default:
		return "rejected"
	}
}

// Of classifies r.
func Of(r rune) Class {
	if r >= contentLo && r <= contentHi {
		return Content
	}
	if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
		return Punctuation
	}
	return Rejected
}

// IsContent reports whether r is a maskable, guessable character.
func IsContent(r rune) bool { return Of(r) == Content }

// ContentRunes returns the distinct content characters of s in first-seen order.
func ContentRunes(s string) []rune {
	seen := make(map[rune]struct{})
	var out []rune
	for _, r := range s {
		if !IsContent(r) {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// CountContent returns the number of content positions in s.
func CountContent(s string) int {
	n := 0
	for _, r := range s {
		if IsContent(r) {
			n++
		}
	}
	return n
}
