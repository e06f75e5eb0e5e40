package reporting

import (
	"fmt"
	"strings"
	"unicode"
)

const percentWord = "percent"

// Sanitize strips presentation artifacts from a display name: percent signs
// (ASCII and full-width), the word "percent" in any case, and every rune that
// is not a letter, digit, whitespace, hyphen or parenthesis. Whitespace runs
// collapse to one space and the result is trimmed. Sanitize(Sanitize(x)) ==
// Sanitize(x) for every input.
func Sanitize(raw any) string {
	var s string
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		s = v
	case *string:
		if v == nil {
			return ""
		}
		s = *v
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '(', r == ')':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	out := b.String()

	// Removing one occurrence can join its neighbours into a new one
	// ("perpercentcent"), so repeat until stable.
	for {
		next := removeFold(out, percentWord)
		if next == out {
			break
		}
		out = next
	}
	return strings.Join(strings.Fields(out), " ")
}

// removeFold drops every case-insensitive occurrence of word, matching on
// rune windows of s itself.
func removeFold(s, word string) string {
	w := []rune(word)
	rs := []rune(s)
	out := make([]rune, 0, len(rs))
	for i := 0; i < len(rs); {
		if i+len(w) <= len(rs) && strings.EqualFold(string(rs[i:i+len(w)]), word) {
			i += len(w)
			continue
		}
		out = append(out, rs[i])
		i++
	}
	return string(out)
}
