package tool

import (
	"context"
	"encoding/json"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"goose-tools/internal/domain"
)

// LocalClient talks to an MCPServer in the same process, through the full
// protocol path. Used by the selftest command and tests.
type LocalClient struct {
	client *mcpclient.Client
}

// NewLocalClient starts and initializes an in-process client for srv.
func NewLocalClient(ctx context.Context, srv *MCPServer, clientName string) (*LocalClient, error) {
	c, err := mcpclient.NewInProcessClient(srv.Server())
	if err != nil {
		return nil, domain.WrapOp("create in-process client", err)
	}
	if err := c.Start(ctx); err != nil {
		c.Close()
		return nil, domain.WrapOp("start in-process client", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, domain.WrapOp("initialize", err)
	}
	return &LocalClient{client: c}, nil
}

// ListTools returns the tool names the server advertises.
func (l *LocalClient) ListTools(ctx context.Context) ([]string, error) {
	res, err := l.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Tools))
	for _, t := range res.Tools {
		names = append(names, t.Name)
	}
	return names, nil
}

// Call invokes a tool and flattens its content to text.
func (l *LocalClient) Call(ctx context.Context, name string, args map[string]any) (*domain.ToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	if args != nil {
		req.Params.Arguments = args
	}

	res, err := l.client.CallTool(ctx, req)
	if err != nil {
		return nil, err
	}
	return &domain.ToolResult{Content: extractMCPContent(res), IsError: res.IsError}, nil
}

// Close shuts the client down.
func (l *LocalClient) Close() error { return l.client.Close() }

func extractMCPContent(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := json.Marshal(v); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}
