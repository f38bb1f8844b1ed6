package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Use with NewSubSystemError for subsystem-specific errors.
var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrDuplicate        = fmt.Errorf("already exists")
	ErrTimeout          = fmt.Errorf("operation timed out")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrPermissionDenied = fmt.Errorf("permission denied")
)

// Sentinel errors for the device bridge, app server and tool layer.
var (
	ErrDeviceUnavailable  = fmt.Errorf("device bridge unavailable")
	ErrDispatch           = fmt.Errorf("command dispatch failed")
	ErrTransfer           = fmt.Errorf("device transfer failed")
	ErrServerStart        = fmt.Errorf("server failed to start")
	ErrPathOutsideSandbox = fmt.Errorf("path is outside app directory")
	ErrToolNotFound       = fmt.Errorf("tool not found")
	ErrConfigLoad         = fmt.Errorf("failed to load configuration")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Store.Create")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier (e.g., "app", "device"); used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
// Use this with category sentinels (ErrNotFound, ErrTimeout, etc.) so that ErrorCodeOf
// can map the combination of sentinel + subsystem to a specific ErrorCode.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category reported alongside tool failures.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeDuplicate          ErrorCode = "DUPLICATE"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	CodeDeviceUnavailable  ErrorCode = "DEVICE_UNAVAILABLE"
	CodeDispatch           ErrorCode = "DISPATCH_FAILURE"
	CodeTransfer           ErrorCode = "TRANSFER_FAILURE"
	CodeServerStart        ErrorCode = "SERVER_START_FAILURE"
	CodePathOutsideSandbox ErrorCode = "PATH_OUTSIDE_APP"
	CodeToolNotFound       ErrorCode = "TOOL_NOT_FOUND"
	CodeConfigLoad         ErrorCode = "CONFIG_LOAD"

	// Subsystem-specific codes resolved through subSystemCodeMap.
	CodeAppNotFound     ErrorCode = "APP_NOT_FOUND"
	CodeAppExists       ErrorCode = "APP_EXISTS"
	CodeAppNameInvalid  ErrorCode = "APP_NAME_INVALID"
	CodeFileNotFound    ErrorCode = "FILE_NOT_FOUND"
	CodeServerNotActive ErrorCode = "SERVER_NOT_RUNNING"
	CodeCommandTimeout  ErrorCode = "COMMAND_TIMEOUT"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:         CodeNotFound,
	ErrDuplicate:        CodeDuplicate,
	ErrTimeout:          CodeTimeout,
	ErrInvalidInput:     CodeInvalidInput,
	ErrPermissionDenied: CodePermissionDenied,

	ErrDeviceUnavailable:  CodeDeviceUnavailable,
	ErrDispatch:           CodeDispatch,
	ErrTransfer:           CodeTransfer,
	ErrServerStart:        CodeServerStart,
	ErrPathOutsideSandbox: CodePathOutsideSandbox,
	ErrToolNotFound:       CodeToolNotFound,
	ErrConfigLoad:         CodeConfigLoad,
}

// sentinelPrecedence fixes the match order for errors that wrap several
// sentinels: specific failures win over categories.
var sentinelPrecedence = []error{
	ErrDeviceUnavailable, ErrDispatch, ErrTransfer, ErrServerStart,
	ErrPathOutsideSandbox, ErrToolNotFound, ErrConfigLoad,
	ErrTimeout, ErrNotFound, ErrDuplicate, ErrInvalidInput, ErrPermissionDenied,
}

// subSystemCodeMap maps (category sentinel, subsystem) pairs to specific ErrorCodes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrNotFound: {
		"app":    CodeAppNotFound,
		"file":   CodeFileNotFound,
		"server": CodeServerNotActive,
	},
	ErrDuplicate: {
		"app": CodeAppExists,
	},
	ErrInvalidInput: {
		"app": CodeAppNameInvalid,
	},
	ErrTimeout: {
		"relay": CodeCommandTimeout,
	},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}

	for _, sentinel := range sentinelPrecedence {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
// If SubSystem is set, checks the subSystemCodeMap for a specific code.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
