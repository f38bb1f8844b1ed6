// Package relay forwards natural-language instructions to the on-device
// agent and collects its answer.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"goose-tools/internal/domain"
)

// Device is the subset of the device bridge the relay drives.
type Device interface {
	CheckConnection(ctx context.Context) domain.ConnectionStatus
	ClearResult(ctx context.Context)
	StartCommand(ctx context.Context, instruction string) error
	PollResult(ctx context.Context, w domain.Waiter) (bool, error)
	ReadResult(ctx context.Context) (string, error)
	CaptureScreenshot(ctx context.Context) (string, error)
}

// Result is the outcome of one relayed instruction.
type Result struct {
	Success   bool             `json:"success"`
	Result    *string          `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	Code      domain.ErrorCode `json:"code,omitempty"`
	Stderr    string           `json:"stderr,omitempty"`
	CommandID string           `json:"command_id"`
	ElapsedMS int64            `json:"elapsed_ms"`
}

// ScreenshotResult is the outcome of a screen capture.
type ScreenshotResult struct {
	Success        bool             `json:"success"`
	ScreenshotPath string           `json:"screenshot_path,omitempty"`
	Message        string           `json:"message,omitempty"`
	Error          string           `json:"error,omitempty"`
	Code           domain.ErrorCode `json:"code,omitempty"`
	Stderr         string           `json:"stderr,omitempty"`
}

// Relay runs the connect/clear/start/poll/read cycle.
// Concurrent Execute calls race on the single result file; callers
// serialise them.
type Relay struct {
	device  Device
	waiter  domain.Waiter
	maxWait time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Relay. maxWait is only used to phrase the timeout message;
// the waiter owns the actual budget.
func New(device Device, waiter domain.Waiter, maxWait time.Duration, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{device: device, waiter: waiter, maxWait: maxWait, logger: logger, now: time.Now}
}

// Execute relays instruction and never returns an error: every failure is
// described by the returned Result.
func (r *Relay) Execute(ctx context.Context, instruction string) Result {
	id := ulid.Make().String()
	ctx = domain.ContextWithCommandID(ctx, id)
	start := r.now()
	log := r.logger.With("command_id", id)

	res := r.execute(ctx, instruction, log)
	res.CommandID = id
	res.ElapsedMS = r.now().Sub(start).Milliseconds()

	if res.Success {
		log.Info("command completed", "elapsed_ms", res.ElapsedMS, "bytes", len(*res.Result))
	} else {
		log.Warn("command failed", "elapsed_ms", res.ElapsedMS, "code", res.Code, "error", res.Error)
	}
	return res
}

func (r *Relay) execute(ctx context.Context, instruction string, log *slog.Logger) Result {
	if status := r.device.CheckConnection(ctx); !status.Connected {
		return Result{Error: status.Reason, Code: domain.CodeDeviceUnavailable}
	}

	r.device.ClearResult(ctx)

	log.Info("dispatching command", "instruction", instruction)
	if err := r.device.StartCommand(ctx, instruction); err != nil {
		return failure(err)
	}

	found, err := r.device.PollResult(ctx, r.waiter)
	if err != nil {
		return Result{Error: fmt.Sprintf("Command cancelled: %v", err), Code: domain.ErrorCodeOf(err)}
	}
	if !found {
		err := domain.NewSubSystemError("relay", "Relay.Execute", domain.ErrTimeout, "")
		return Result{
			Error: fmt.Sprintf("Command timed out after %d seconds", int(r.maxWait.Seconds())),
			Code:  domain.ErrorCodeOf(err),
		}
	}

	text, err := r.device.ReadResult(ctx)
	if err != nil {
		return failure(err)
	}
	return Result{Success: true, Result: &text}
}

func failure(err error) Result {
	return Result{
		Error:  fmt.Sprintf("Command execution failed: %v", err),
		Code:   domain.ErrorCodeOf(err),
		Stderr: domain.StderrOf(err),
	}
}

// Screenshot captures the device screen with the same connection-first policy
// as Execute.
func (r *Relay) Screenshot(ctx context.Context) ScreenshotResult {
	if status := r.device.CheckConnection(ctx); !status.Connected {
		return ScreenshotResult{Error: status.Reason, Code: domain.CodeDeviceUnavailable}
	}

	path, err := r.device.CaptureScreenshot(ctx)
	if err != nil {
		r.logger.Error("screenshot failed", "error", err)
		return ScreenshotResult{
			Error:  fmt.Sprintf("Screenshot failed: %v", err),
			Code:   domain.ErrorCodeOf(err),
			Stderr: domain.StderrOf(err),
		}
	}
	return ScreenshotResult{
		Success:        true,
		ScreenshotPath: path,
		Message:        "Screenshot saved to " + path,
	}
}

// Connection reports the current device bridge status.
func (r *Relay) Connection(ctx context.Context) domain.ConnectionStatus {
	return r.device.CheckConnection(ctx)
}
