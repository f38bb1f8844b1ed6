package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"goose-tools/internal/domain"
)

// AppStore is the directory-backed app bundle CRUD surface.
type AppStore interface {
	Root() string
	List(ctx context.Context) ([]domain.AppInfo, error)
	Create(ctx context.Context, name, description string, files []string) (string, error)
	UpdateFile(ctx context.Context, app, path, content string) error
	ViewFile(ctx context.Context, app, path string) (string, error)
	Delete(ctx context.Context, app string) error
}

// AppServer owns the single static server session.
type AppServer interface {
	Serve(ctx context.Context, app string, port int) (*domain.ServerInfo, error)
	Stop(ctx context.Context) (bool, error)
	Current() *domain.ServerInfo
	Open(ctx context.Context) (string, error)
}

// AppsTool manages local static web apps: scaffold, edit, serve and open.
type AppsTool struct {
	store  AppStore
	server AppServer
	logger *slog.Logger
}

// NewAppsTool creates the apps tool.
func NewAppsTool(store AppStore, server AppServer, logger *slog.Logger) *AppsTool {
	return &AppsTool{store: store, server: server, logger: logger}
}

func (t *AppsTool) Name() string { return "apps" }
func (t *AppsTool) Description() string {
	return "Create, list, view, edit and delete small static web apps, serve one over local HTTP and open it in a browser. " +
		"New apps start from a template whose goose_api.js reads $GOOSE_PORT and $GOOSE_SERVER__SECRET_KEY, " +
		"which are replaced with live values when served."
}

func (t *AppsTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"action": {
					"type": "string",
					"enum": ["list", "create", "update_file", "view_file", "delete", "serve", "stop", "open", "status"],
					"description": "The apps action to perform"
				},
				"name": {
					"type": "string",
					"description": "App name (create sanitizes it; other actions need the exact name)"
				},
				"description": {
					"type": "string",
					"description": "App description (for create)"
				},
				"files": {
					"type": "array",
					"items": {"type": "string"},
					"description": "Template files to copy on create (default: all of index.html, style.css, script.js, goose_api.js)"
				},
				"path": {
					"type": "string",
					"description": "File path relative to the app directory (for update_file/view_file)"
				},
				"content": {
					"type": "string",
					"description": "New file content (for update_file)"
				},
				"port": {
					"type": "integer",
					"minimum": 0,
					"maximum": 65535,
					"description": "Port to serve on (for serve/open; 0 or omitted uses the default)"
				}
			},
			"required": ["action"]
		}`),
	}
}

type appsParams struct {
	Action      string   `json:"action"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Files       []string `json:"files,omitempty"`
	Path        string   `json:"path,omitempty"`
	Content     *string  `json:"content,omitempty"`
	Port        int      `json:"port,omitempty"`
}

func (t *AppsTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.apps", t.logger, params,
		Dispatch(func(p appsParams) string { return p.Action }, ActionMap[appsParams]{
			"list":        t.handleList,
			"create":      t.handleCreate,
			"update_file": t.handleUpdateFile,
			"view_file":   t.handleViewFile,
			"delete":      t.handleDelete,
			"serve":       t.handleServe,
			"stop":        t.handleStop,
			"open":        t.handleOpen,
			"status":      t.handleStatus,
		}),
	)
}

type appList struct {
	Root string           `json:"root"`
	Apps []domain.AppInfo `json:"apps"`
}

func (t *AppsTool) handleList(ctx context.Context, _ appsParams) (any, error) {
	apps, err := t.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return TextResult(fmt.Sprintf("No apps found in %s.", t.store.Root())), nil
	}
	return appList{Root: t.store.Root(), Apps: apps}, nil
}

func (t *AppsTool) handleCreate(ctx context.Context, p appsParams) (any, error) {
	if err := RequireField("name", p.Name); err != nil {
		return nil, err
	}
	name, err := t.store.Create(ctx, p.Name, p.Description, p.Files)
	if err != nil {
		return nil, err
	}
	return TextResult(fmt.Sprintf("App %q created in %s", name, t.store.Root())), nil
}

func (t *AppsTool) handleUpdateFile(ctx context.Context, p appsParams) (any, error) {
	if err := RequireFields("name", p.Name, "path", p.Path); err != nil {
		return nil, err
	}
	if p.Content == nil {
		return nil, fmt.Errorf("'content' is required: %w", domain.ErrInvalidInput)
	}
	if err := t.store.UpdateFile(ctx, p.Name, p.Path, *p.Content); err != nil {
		return nil, err
	}
	t.logger.Debug("app file updated", "app", p.Name, "path", p.Path, "size", len(*p.Content))
	return TextResult(fmt.Sprintf("Updated %s in app %q (%d bytes)", p.Path, p.Name, len(*p.Content))), nil
}

func (t *AppsTool) handleViewFile(ctx context.Context, p appsParams) (any, error) {
	if err := RequireFields("name", p.Name, "path", p.Path); err != nil {
		return nil, err
	}
	content, err := t.store.ViewFile(ctx, p.Name, p.Path)
	if err != nil {
		return nil, err
	}
	return TextResult(content), nil
}

func (t *AppsTool) handleDelete(ctx context.Context, p appsParams) (any, error) {
	if err := RequireField("name", p.Name); err != nil {
		return nil, err
	}
	// Stop serving a directory that is about to disappear.
	if cur := t.server.Current(); cur != nil && cur.App == p.Name {
		if _, err := t.server.Stop(ctx); err != nil {
			t.logger.Warn("stop before delete", "app", p.Name, "error", err)
		}
	}
	if err := t.store.Delete(ctx, p.Name); err != nil {
		return nil, err
	}
	return TextResult(fmt.Sprintf("App %q deleted", p.Name)), nil
}

func (t *AppsTool) handleServe(ctx context.Context, p appsParams) (any, error) {
	if err := ValidateAll(
		RequireField("name", p.Name),
		ValidateRange("port", p.Port, 0, 65535),
	); err != nil {
		return nil, err
	}
	return t.server.Serve(ctx, p.Name, p.Port)
}

func (t *AppsTool) handleStop(ctx context.Context, _ appsParams) (any, error) {
	stopped, err := t.server.Stop(ctx)
	if err != nil {
		return nil, err
	}
	if !stopped {
		return TextResult("No app server is running."), nil
	}
	return TextResult("App server stopped."), nil
}

// handleOpen opens the running app. With a name that is not the one being
// served, it serves that app first.
func (t *AppsTool) handleOpen(ctx context.Context, p appsParams) (any, error) {
	if p.Name != "" {
		if cur := t.server.Current(); cur == nil || cur.App != p.Name {
			if _, err := t.handleServe(ctx, p); err != nil {
				return nil, err
			}
		}
	}
	url, err := t.server.Open(ctx)
	if err != nil {
		return nil, err
	}
	return TextResult("Opened " + url), nil
}

type serverStatus struct {
	Running bool               `json:"running"`
	Server  *domain.ServerInfo `json:"server,omitempty"`
}

func (t *AppsTool) handleStatus(_ context.Context, _ appsParams) (any, error) {
	cur := t.server.Current()
	return serverStatus{Running: cur != nil, Server: cur}, nil
}
