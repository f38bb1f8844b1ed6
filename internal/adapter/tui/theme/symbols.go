package theme

import (
	"os"
	"strings"
)

// SymbolSet holds the glyphs used by the report views, allowing runtime
// switching between Unicode and ASCII.
type SymbolSet struct {
	Success string
	Error   string
	Pending string
	Bullet  string
}

var unicodeSymbols = SymbolSet{
	Success: "\u2713", // ✓
	Error:   "\u2717", // ✗
	Pending: "\u23F3", // ⏳
	Bullet:  "\u2022", // •
}

var asciiSymbols = SymbolSet{
	Success: "[OK]",
	Error:   "[ERR]",
	Pending: "[...]",
	Bullet:  "*",
}

// DetectUnicodeSupport checks whether the terminal likely supports Unicode.
// GOOSETOOLS_ASCII_SYMBOLS=1 or TERM=dumb forces ASCII.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("GOOSETOOLS_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// InitSymbols sets the Symbol* variables from terminal capabilities.
// Called by init(); tests may call it again after changing the environment.
func InitSymbols() {
	set := unicodeSymbols
	if !DetectUnicodeSupport() {
		set = asciiSymbols
	}
	SymbolSuccess = set.Success
	SymbolError = set.Error
	SymbolPending = set.Pending
	SymbolBullet = set.Bullet
}

func init() {
	InitSymbols()
}
