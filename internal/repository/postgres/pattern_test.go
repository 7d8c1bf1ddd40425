package postgres

import "testing"

func TestContainsPatternEscapesWildcards(t *testing.T) {
	cases := map[string]string{
		"dragons":  "%dragons%",
		"100%":     `%100\%%`,
		"_":        `%\_%`,
		`back\sl`:  `%back\\sl%`,
		"a_b%c\\d": `%a\_b\%c\\d%`,
	}
	for text, want := range cases {
		if got := ContainsPattern(text); got != want {
			t.Fatalf("ContainsPattern(%q) = %q, want %q", text, got, want)
		}
	}
}
