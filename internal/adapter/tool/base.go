package tool

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/trace"

	"goose-tools/internal/infra/tracer"
)

// ActionHandler handles a single action of an action-based tool.
type ActionHandler[P any] func(ctx context.Context, p P) (any, error)

// ActionMap maps action names to their handlers.
type ActionMap[P any] map[string]ActionHandler[P]

// Dispatch builds an Execute[P] handler that routes by action name.
//
//	func (t *AppsTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
//	    return Execute(ctx, "tool.apps", t.logger, params,
//	        Dispatch(func(p appsParams) string { return p.Action }, ActionMap[appsParams]{
//	            "list":   t.handleList,
//	            "create": t.handleCreate,
//	        }),
//	    )
//	}
func Dispatch[P any](
	getAction func(P) string,
	actions ActionMap[P],
) func(ctx context.Context, span trace.Span, p P) (any, error) {
	validActions := make([]string, 0, len(actions))
	for name := range actions {
		validActions = append(validActions, name)
	}
	sort.Strings(validActions)

	return func(ctx context.Context, span trace.Span, p P) (any, error) {
		action := getAction(p)
		span.SetAttributes(tracer.StringAttr("tool.action", action))

		handler, ok := actions[action]
		if !ok {
			return nil, BadAction(action, validActions...)
		}
		return handler(ctx, p)
	}
}
