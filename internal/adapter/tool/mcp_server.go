package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"goose-tools/internal/domain"
)

// MCPServer exposes the tools of a Registry over the Model Context Protocol.
type MCPServer struct {
	srv    *server.MCPServer
	logger *slog.Logger
}

// NewMCPServer registers every tool in reg on a new mcp-go server.
// Tools added to reg afterwards are not exposed.
func NewMCPServer(name, version, instructions string, reg *Registry, logger *slog.Logger) *MCPServer {
	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	}
	if instructions != "" {
		opts = append(opts, server.WithInstructions(instructions))
	}
	m := &MCPServer{
		srv:    server.NewMCPServer(name, version, opts...),
		logger: logger,
	}

	for _, t := range reg.List() {
		schema := t.Schema()
		params := schema.Parameters
		if len(params) == 0 {
			params = noParams
		}
		m.srv.AddTool(mcp.NewToolWithRawSchema(schema.Name, schema.Description, params), m.handler(t))
		logger.Debug("mcp tool registered", "server", name, "tool", schema.Name)
	}
	return m
}

// Server returns the underlying mcp-go server.
func (m *MCPServer) Server() *server.MCPServer { return m.srv }

// ServeStdio speaks MCP on in/out until ctx is cancelled or in is closed.
// out must be reserved for protocol frames.
func (m *MCPServer) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(m.srv)
	stdio.SetErrorLogger(slog.NewLogLogger(m.logger.Handler(), slog.LevelError))
	m.logger.Info("mcp server listening on stdio")
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

// handler adapts a domain.Tool to an mcp-go tool handler. Tool failures
// become error results, never protocol errors.
func (m *MCPServer) handler(t domain.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := rawArguments(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		res, err := t.Execute(ctx, raw)
		if err != nil {
			m.logger.Error("tool execution failed", "tool", t.Name(), "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		if res == nil {
			return mcp.NewToolResultText(""), nil
		}
		if res.IsError {
			return mcp.NewToolResultError(res.Content), nil
		}
		return mcp.NewToolResultText(res.Content), nil
	}
}

func rawArguments(req mcp.CallToolRequest) (json.RawMessage, error) {
	if req.Params.Arguments == nil {
		return json.RawMessage(`{}`), nil
	}
	data, err := json.Marshal(req.Params.Arguments)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return json.RawMessage(`{}`), nil
	}
	return data, nil
}
