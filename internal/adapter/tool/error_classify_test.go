package tool

import (
	"errors"
	"fmt"
	"testing"

	"goose-tools/internal/domain"
)

func TestClassifyToolError_Nil(t *testing.T) {
	if classifyToolError(nil) {
		t.Error("expected nil error to be non-retryable")
	}
}

func TestClassifyToolError_RetryableSentinels(t *testing.T) {
	sentinels := []struct {
		name     string
		sentinel error
	}{
		{"ErrDeviceUnavailable", domain.ErrDeviceUnavailable},
		{"ErrTransfer", domain.ErrTransfer},
		{"ErrTimeout", domain.ErrTimeout},
	}
	for _, tt := range sentinels {
		t.Run(tt.name, func(t *testing.T) {
			if !classifyToolError(tt.sentinel) {
				t.Errorf("expected %s to be retryable", tt.name)
			}
			if !classifyToolError(fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", tt.sentinel))) {
				t.Errorf("expected wrapped %s to be retryable", tt.name)
			}
		})
	}
}

func TestClassifyToolError_PermanentSentinels(t *testing.T) {
	permanents := []struct {
		name     string
		sentinel error
	}{
		{"ErrDispatch", domain.ErrDispatch},
		{"ErrPathOutsideSandbox", domain.ErrPathOutsideSandbox},
		{"ErrToolNotFound", domain.ErrToolNotFound},
		{"ErrNotFound", domain.ErrNotFound},
		{"ErrDuplicate", domain.ErrDuplicate},
		{"ErrInvalidInput", domain.ErrInvalidInput},
		{"ErrPermissionDenied", domain.ErrPermissionDenied},
		{"ErrConfigLoad", domain.ErrConfigLoad},
	}
	for _, tt := range permanents {
		t.Run(tt.name, func(t *testing.T) {
			if classifyToolError(tt.sentinel) {
				t.Errorf("expected %s to be non-retryable (permanent)", tt.name)
			}
		})
	}
}

func TestClassifyToolError_StringPatterns(t *testing.T) {
	retryables := []string{
		"dial tcp 127.0.0.1:5037: connection refused",
		"read tcp 127.0.0.1:5037: connection reset by peer",
		"adb: error: device offline",
		"adb: error: device 'emulator-5554' not found",
		"error: device not found",
		"http: request timeout after 30s",
		"context deadline exceeded",
		"resource temporarily unavailable",
		"listen tcp 127.0.0.1:8000: bind: address already in use",
		"server busy, please try again later",
	}
	for _, msg := range retryables {
		t.Run(msg, func(t *testing.T) {
			if !classifyToolError(errors.New(msg)) {
				t.Errorf("expected %q to be retryable", msg)
			}
		})
	}
}

func TestClassifyToolError_NonRetryableStrings(t *testing.T) {
	permanents := []string{
		"app todo not found",
		"file 'index.html' not found",
		"Store.ViewFile: file \"a.js\" in app \"todo\": not found",
		"permission denied: /etc/shadow",
		"app already exists: todo",
		"something completely unexpected happened",
		"",
	}
	for _, msg := range permanents {
		t.Run(msg, func(t *testing.T) {
			if classifyToolError(errors.New(msg)) {
				t.Errorf("expected %q to be non-retryable", msg)
			}
		})
	}
}

func TestClassifyToolError_DomainErrors(t *testing.T) {
	if !classifyToolError(domain.NewSubSystemError("relay", "Relay.Execute", domain.ErrTimeout, "90s")) {
		t.Error("expected relay timeout to be retryable")
	}
	if classifyToolError(domain.NewSubSystemError("app", "Store.Delete", domain.ErrNotFound, `app "todo"`)) {
		t.Error("expected missing app to be non-retryable")
	}
	cmdErr := &domain.CommandError{Args: []string{"pull"}, Kind: domain.ErrTransfer, Err: errors.New("exit status 1")}
	if !classifyToolError(cmdErr) {
		t.Error("expected transfer CommandError to be retryable")
	}
}
