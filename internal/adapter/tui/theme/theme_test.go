package theme

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct{ v, want int }{{5, 20}, {50, 50}, {500, 100}}
	for _, tt := range tests {
		if got := Clamp(tt.v, 20, MaxContentWidth); got != tt.want {
			t.Errorf("Clamp(%d) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestInitSymbols_ASCII(t *testing.T) {
	saved := []string{SymbolSuccess, SymbolError, SymbolPending, SymbolBullet}
	t.Cleanup(func() {
		SymbolSuccess, SymbolError, SymbolPending, SymbolBullet = saved[0], saved[1], saved[2], saved[3]
	})
	t.Setenv("GOOSETOOLS_ASCII_SYMBOLS", "1")
	InitSymbols()

	if SymbolSuccess != "[OK]" || SymbolError != "[ERR]" {
		t.Errorf("got %q/%q, want ASCII symbols", SymbolSuccess, SymbolError)
	}
}

func TestDetectUnicodeSupport_DumbTerminal(t *testing.T) {
	t.Setenv("GOOSETOOLS_ASCII_SYMBOLS", "")
	t.Setenv("TERM", "dumb")
	if DetectUnicodeSupport() {
		t.Error("dumb terminal should use ASCII")
	}
	t.Setenv("TERM", "xterm-256color")
	if !DetectUnicodeSupport() {
		t.Error("xterm should use Unicode")
	}
}
