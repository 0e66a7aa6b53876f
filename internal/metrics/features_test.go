package metrics_test

import (
	"testing"

	"github.com/petasbytes/agentloop/internal/metrics"
)

func TestCountFeatures_Table(t *testing.T) {
	cases := []struct {
		name string
		in   string
		exp  metrics.Features
	}{
		{"Empty", "", metrics.Features{}},
		{"ASCII", "hello world", metrics.Features{Bytes: 11, Runes: 11, Words: 2, Lines: 1}},
		{"Multibyte", "héllö 世界", metrics.Features{Bytes: 14, Runes: 8, Words: 2, Lines: 1}},
		{"Multiline_NoTrailing", "a\nb\ncd", metrics.Features{Bytes: 6, Runes: 6, Words: 3, Lines: 3}},
		{"Multiline_Trailing", "a\nb\n", metrics.Features{Bytes: 4, Runes: 4, Words: 2, Lines: 3}},
		{"Whitespace_Tabs_Spaces", "  foo\tbar   baz  ", metrics.Features{Bytes: 17, Runes: 17, Words: 3, Lines: 1}},
		{"NBSP", "foo\u00A0bar", metrics.Features{Bytes: 8, Runes: 7, Words: 2, Lines: 1}},
		{"OnlyWhitespace", " \t\n", metrics.Features{Bytes: 3, Runes: 3, Words: 0, Lines: 2}},
		{"CRLF", "a\r\nb\r\nc", metrics.Features{Bytes: 7, Runes: 7, Words: 3, Lines: 3}},
		{"ZeroWidthSpace_NoSplit", "foo\u200Bbar", metrics.Features{Bytes: 9, Runes: 7, Words: 1, Lines: 1}},
		{"Emoji_Astral", "\U0001F44D\U0001F44D", metrics.Features{Bytes: 8, Runes: 2, Words: 1, Lines: 1}},
		{"Combining_Marks", "e\u0301", metrics.Features{Bytes: 3, Runes: 2, Words: 1, Lines: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := metrics.CountFeatures(tc.in); got != tc.exp {
				t.Fatalf("got %+v, want %+v", got, tc.exp)
			}
		})
	}
}

func TestFeatures_Add(t *testing.T) {
	a := metrics.CountFeatures("one two")
	b := metrics.CountFeatures("three\nfour")
	got := a.Add(b)
	want := metrics.Features{Bytes: 17, Runes: 17, Words: 4, Lines: 3}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if z := (metrics.Features{}).Add(a); z != a {
		t.Fatalf("zero is not the identity: %+v", z)
	}
}
