package utils

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"tsla", "TSLA"},
		{"  nvda ", "NVDA"},
		{"$AAPL", "AAPL"},
		{"brk.b", "BRK.B"},
		{"TSLA", "TSLA"},
	}
	for _, tt := range tests {
		got := NormalizeSymbol(tt.input)
		if got != tt.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidSymbol(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"TSLA", true},
		{"BRK.B", true},
		{"BF-B", true},
		{"", false},
		{"tsla", false},           // lowercase not canonical
		{"VERYLONGSYMBOL", false}, // too long
		{"AB|C", false},           // payload delimiter
		{"A B", false},
	}
	for _, tt := range tests {
		got := ValidSymbol(tt.input)
		if got != tt.want {
			t.Errorf("ValidSymbol(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
