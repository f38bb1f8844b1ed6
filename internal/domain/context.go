package domain

import "context"

type ctxKey string

const commandCtxKey ctxKey = "command_id"

// ContextWithCommandID returns a new context carrying the relay command ID (ULID).
func ContextWithCommandID(ctx context.Context, commandID string) context.Context {
	return context.WithValue(ctx, commandCtxKey, commandID)
}

// CommandIDFromContext extracts the command ID from the context.
// Returns empty string if not set.
func CommandIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(commandCtxKey).(string); ok {
		return v
	}
	return ""
}
