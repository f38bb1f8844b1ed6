package tool

import (
	"errors"
	"regexp"
	"strings"

	"goose-tools/internal/domain"
)

// retryableSentinels are domain errors for failures that usually clear up on
// their own: a device that is reconnecting, a flaky adb transfer, a slow agent.
var retryableSentinels = []error{
	domain.ErrDeviceUnavailable,
	domain.ErrTransfer,
	domain.ErrTimeout,
}

// retryablePatterns are substrings (lower-case) of transient error messages.
var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"device offline",
	"device not found",
	"timeout",
	"deadline exceeded",
	"temporarily unavailable",
	"address already in use",
	"try again",
}

// adbMissingSerial matches adb's "device 'SERIAL' not found" wording for a
// device that is not attached yet.
var adbMissingSerial = regexp.MustCompile(`\bdevice '[^']*' not found`)

// classifyToolError reports whether err is transient and the call may succeed
// on retry. nil, permanent and unknown errors are not retryable.
func classifyToolError(err error) bool {
	if err == nil {
		return false
	}

	for _, sentinel := range retryableSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}

	return adbMissingSerial.MatchString(lower)
}
