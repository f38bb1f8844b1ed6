package tool

import (
	"errors"
	"testing"
)

func FuzzClassifyToolError(f *testing.F) {
	seeds := []string{
		"connection refused",
		"adb: error: device offline",
		"error: device 'ZX1G22' not found",
		"context deadline exceeded",
		"bind: address already in use",
		"resource temporarily unavailable",
		"permission denied",
		"not found",
		"already exists",
		"",
		"completely random error",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, msg string) {
		_ = classifyToolError(errors.New(msg))
	})
}
