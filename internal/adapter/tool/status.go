package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"goose-tools/internal/domain"
)

// ReportWriter persists the human-facing status and result files.
type ReportWriter interface {
	WriteStatus(text string) error
	WriteResult(markdown string) error
}

// reportOutcome mirrors the success/error record of the relay tools.
type reportOutcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StatusTool writes the short "what I'm doing now" status line.
type StatusTool struct {
	writer ReportWriter
	logger *slog.Logger
}

// NewStatusTool creates the update_status tool.
func NewStatusTool(w ReportWriter, logger *slog.Logger) *StatusTool {
	return &StatusTool{writer: w, logger: logger}
}

func (t *StatusTool) Name() string { return "update_status" }
func (t *StatusTool) Description() string {
	return "Update the user-facing status during a long running task. " +
		"Use it for brief updates on what you are doing or planning."
}

func (t *StatusTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"status": {
					"type": "string",
					"description": "The status message, no more than 5 words"
				}
			},
			"required": ["status"]
		}`),
	}
}

type statusParams struct {
	Status string `json:"status"`
}

func (t *StatusTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.update_status", t.logger, params,
		func(_ context.Context, _ trace.Span, p statusParams) (any, error) {
			if err := t.writer.WriteStatus(p.Status); err != nil {
				t.logger.Error("status update failed", "error", err)
				return JSONResult(reportOutcome{Error: fmt.Sprintf("Failed to update status: %v", err)}, true)
			}
			t.logger.Info("status updated", "status", p.Status)
			return JSONResult(reportOutcome{Success: true}, false)
		},
	)
}

// ResultTool writes the final markdown summary shown on the phone.
type ResultTool struct {
	writer ReportWriter
	logger *slog.Logger
}

// NewResultTool creates the write_result tool.
func NewResultTool(w ReportWriter, logger *slog.Logger) *ResultTool {
	return &ResultTool{writer: w, logger: logger}
}

func (t *ResultTool) Name() string { return "write_result" }
func (t *ResultTool) Description() string {
	return "Write a very short markdown summary of the results and actions taken, for presentation on a mobile screen."
}

func (t *ResultTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"result": {
					"type": "string",
					"description": "Markdown content"
				}
			},
			"required": ["result"]
		}`),
	}
}

type resultParams struct {
	Result string `json:"result"`
}

func (t *ResultTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.write_result", t.logger, params,
		func(_ context.Context, _ trace.Span, p resultParams) (any, error) {
			if err := t.writer.WriteResult(p.Result); err != nil {
				t.logger.Error("result write failed", "error", err)
				return JSONResult(reportOutcome{Error: fmt.Sprintf("Failed to write result: %v", err)}, true)
			}
			t.logger.Info("result written", "bytes", len(p.Result))
			return JSONResult(reportOutcome{Success: true}, false)
		},
	)
}
