// Package normalize implements the text transforms applied to fetched verse
// text. Every function is pure and total: malformed input degrades to a
// shorter string, never to an error.
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Mode selects which transforms Text applies.
type Mode int

const (
	// ModeSimplified strips diacritics and unifies letter variants.
	ModeSimplified Mode = iota
	// ModePreserveMarks only cleans and collapses whitespace.
	ModePreserveMarks
)

func (m Mode) String() string {
	switch m {
	case ModeSimplified:
		return "simplified"
	case ModePreserveMarks:
		return "preserve-marks"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simplified", "simple":
		return ModeSimplified, nil
	case "preserve-marks", "marks", "uthmani":
		return ModePreserveMarks, nil
	}
	return 0, fmt.Errorf("unknown normalization mode %q", s)
}

const byteOrderMark = '\uFEFF'

// letterVariants maps hamza-carrying and alternate letter forms to the plain
// letter used in simplified text.
var letterVariants = map[rune]rune{
	'أ': 'ا', // alef with hamza above
	'إ': 'ا', // alef with hamza below
	'آ': 'ا', // alef with madda
	'ٱ': 'ا', // alef wasla
	'ى': 'ي', // alef maksura
	'ئ': 'ي', // yeh with hamza above
	'ؤ': 'و', // waw with hamza above
	'ة': 'ه', // teh marbuta
}

// Text normalizes s according to mode. Text(Text(s, m), m) == Text(s, m).
func Text(s string, mode Mode) string {
	if s == "" {
		return ""
	}

	// The script filter runs before NFKC so that removing a foreign rune can
	// never leave a base letter and a mark adjacent but uncomposed.
	steps := []transform.Transformer{
		runes.Remove(runes.Predicate(isForeign)),
		norm.NFKC,
	}
	if mode == ModeSimplified {
		steps = append(steps,
			runes.Remove(runes.Predicate(IsDiacritic)),
			runes.Map(unifyLetter),
		)
	}

	// Invalid UTF-8 decodes to U+FFFD, which the script filter drops.
	out, _, _ := transform.String(transform.Chain(steps...), s)
	return collapseSpace(out)
}

// Simplified is shorthand for Text(s, ModeSimplified).
func Simplified(s string) string { return Text(s, ModeSimplified) }

// PreserveMarks is shorthand for Text(s, ModePreserveMarks).
func PreserveMarks(s string) string { return Text(s, ModePreserveMarks) }

// IsDiacritic reports whether r is an Arabic vowel sign, shadda, sukun,
// superscript alef or Quranic annotation mark. The end-of-ayah sign, the
// rub el hizb and the sajdah mark are not diacritics.
func IsDiacritic(r rune) bool {
	switch {
	case r >= '\u064B' && r <= '\u065F':
		return true
	case r == '\u0670':
		return true
	case r >= '\u06D6' && r <= '\u06DC':
		return true
	case r >= '\u06DF' && r <= '\u06E4':
		return true
	case r == '\u06E7', r == '\u06E8':
		return true
	case r >= '\u06EA' && r <= '\u06ED':
		return true
	}
	return false
}

// IsArabic reports whether r belongs to one of the Arabic script blocks.
func IsArabic(r rune) bool {
	switch {
	case r >= '\u0600' && r <= '\u06FF':
		return true
	case r >= '\u0750' && r <= '\u077F':
		return true
	case r >= '\u08A0' && r <= '\u08FF':
		return true
	case r >= '\uFB50' && r <= '\uFDFF':
		return true
	case r >= '\uFE70' && r <= '\uFEFE':
		return true
	}
	return false
}

// HasArabicLetter reports whether s contains at least one Arabic letter.
func HasArabicLetter(s string) bool {
	for _, r := range s {
		if IsArabic(r) && unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Words splits normalized text into whitespace-separated tokens.
func Words(s string) []string {
	return strings.Fields(s)
}

// Letters counts the runes of s that are not whitespace.
func Letters(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func isForeign(r rune) bool {
	if r == byteOrderMark {
		return true
	}
	return !IsArabic(r) && !unicode.IsSpace(r)
}

func unifyLetter(r rune) rune {
	if u, ok := letterVariants[r]; ok {
		return u
	}
	return r
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
