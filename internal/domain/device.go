package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DeviceState is the state column reported by `adb devices`.
type DeviceState string

const (
	DeviceStateOnline       DeviceState = "device"
	DeviceStateOffline      DeviceState = "offline"
	DeviceStateUnauthorized DeviceState = "unauthorized"
	DeviceStateUnknown      DeviceState = "unknown"
)

// Device is one entry of the device bridge's device list.
type Device struct {
	Serial string      `json:"serial"`
	State  DeviceState `json:"state"`
}

// ConnectionStatus reports whether a usable device is attached.
type ConnectionStatus struct {
	Connected bool     `json:"connected"`
	Reason    string   `json:"reason"`
	Devices   []Device `json:"devices,omitempty"`
}

// Waiter blocks until probe reports true or its own budget runs out.
// Implementations decide how often to probe; a probe error counts as
// "not yet".
type Waiter interface {
	Wait(ctx context.Context, probe func(context.Context) (bool, error)) (bool, error)
}

// CommandError reports a failed device bridge invocation. It unwraps to both
// the category sentinel (ErrDispatch, ErrTransfer) and the process error.
type CommandError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Kind     error
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("adb %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() []error { return []error{e.Kind, e.Err} }

// StderrOf returns the captured stderr of a device bridge failure, if any.
func StderrOf(err error) string {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Stderr
	}
	return ""
}
