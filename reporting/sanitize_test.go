package reporting

import (
	"strings"
	"testing"
	"unicode/utf8"
)

type stringerName struct{}

func (stringerName) String() string { return "Cut & Fold %" }

func TestSanitize(t *testing.T) {
	t.Parallel()

	str := "  Packing\t(Outer) "
	cases := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "percent sign", in: "Proof  Reading 50%", want: "Proof Reading 50"},
		{name: "full width percent", in: "Binding 20％", want: "Binding 20"},
		{name: "percent word any case", in: "Binding PerCent (Final)", want: "Binding (Final)"},
		{name: "nested percent word", in: "perpercentcent", want: ""},
		{name: "punctuation dropped", in: "Cut/Fold_#1", want: "CutFold1"},
		{name: "hyphen kept", in: "Pre-Press", want: "Pre-Press"},
		{name: "whitespace collapsed", in: "  a\t\tb\n c ", want: "a b c"},
		{name: "number", in: 42, want: "42"},
		{name: "string pointer", in: &str, want: "Packing (Outer)"},
		{name: "nil string pointer", in: (*string)(nil), want: ""},
		{name: "stringer", in: stringerName{}, want: "Cut Fold"},
		{name: "unicode letters", in: "Ñandú 4", want: "Ñandú 4"},
		{name: "width changing case", in: "\u212ApercentȺȺ", want: "\u212AȺȺ"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.in); got != tc.want {
				t.Fatalf("Sanitize(%#v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"Proofreading 100%",
		"pe rcent",
		"PERCENTpercentPercent",
		"perperpercentcentcent",
		"Group (A) - 2%%",
		"   spaced out  ",
		"İstanbul percent",
		"ẞ-percent-ß",
		"\u212ApercentȺȺ",
		"ȺPERCENTȺ\u212A",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Fatalf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func FuzzSanitize(f *testing.F) {
	for _, seed := range []string{"Proofreading 100%", "perpercentcent", "\u212ApercentȺȺ", "Binding 20％", "\xff\xfe"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, in string) {
		once := Sanitize(in)
		if !utf8.ValidString(once) {
			t.Fatalf("Sanitize(%q) = %q is not valid UTF-8", in, once)
		}
		if strings.ContainsAny(once, "%％") {
			t.Fatalf("Sanitize(%q) = %q still holds a percent sign", in, once)
		}
		if strings.Contains(strings.ToLower(once), percentWord) {
			t.Fatalf("Sanitize(%q) = %q still holds the percent word", in, once)
		}
		if twice := Sanitize(once); twice != once {
			t.Fatalf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	})
}
