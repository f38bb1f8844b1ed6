package tool

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"goose-tools/internal/domain"
	"goose-tools/internal/infra/tracer"
	"goose-tools/internal/usecase/relay"
)

// CommandRelay forwards instructions to the on-device agent.
type CommandRelay interface {
	Execute(ctx context.Context, instruction string) relay.Result
	Screenshot(ctx context.Context) relay.ScreenshotResult
}

// Fixed instructions behind the convenience tools.
const (
	profileInstruction  = "can you summarize my shopper profile in a paragraph"
	whatAppsInstruction = "what apps do you have available?"
	webSearchPrefix     = "Open chrome and do a web search, scroll down a bit to ensure you can see a set of results and report back, when finished, make sure you go back so browser is clean state. Topic: "
)

// maxInstructionLen bounds the text passed through `adb shell am start`,
// whose command line the device shell caps.
const maxInstructionLen = 16 << 10

type relayParams struct {
	Command string `json:"command,omitempty"`
	Topic   string `json:"topic,omitempty"`
}

// RelayTool sends one instruction through the command relay per call.
// The instruction is built from the call params by the constructor's builder.
type RelayTool struct {
	name        string
	description string
	parameters  json.RawMessage
	build       func(relayParams) (string, error)
	relay       CommandRelay
	logger      *slog.Logger
}

var noParams = json.RawMessage(`{"type": "object", "properties": {}}`)

// NewShopHelperTool relays a free-form instruction to the device agent.
func NewShopHelperTool(r CommandRelay, logger *slog.Logger) *RelayTool {
	return &RelayTool{
		name: "shop_helper",
		description: "Execute an instruction on the personal device, the way a person would ask an assistant, " +
			"and return the agent's answer. The device agent can open and drive apps (shopping, calendar, " +
			"email, messages, maps), browse, scroll, open details and add items to carts. If something is " +
			"missing from the answer, repeat the request with more specific directions.",
		parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"command": {
					"type": "string",
					"minLength": 1,
					"description": "The instruction for the device agent to follow"
				}
			},
			"required": ["command"]
		}`),
		build: func(p relayParams) (string, error) {
			if err := ValidateAll(
				RequireField("command", p.Command),
				ValidateMaxLength("command", p.Command, maxInstructionLen),
			); err != nil {
				return "", err
			}
			return p.Command, nil
		},
		relay:  r,
		logger: logger,
	}
}

// NewShopperProfileTool asks the device agent for a shopper profile summary.
func NewShopperProfileTool(r CommandRelay, logger *slog.Logger) *RelayTool {
	return &RelayTool{
		name:        "shopper_profile",
		description: "Look at the user's history on the device to build a short personal shopper profile.",
		parameters:  noParams,
		build:       func(relayParams) (string, error) { return profileInstruction, nil },
		relay:       r,
		logger:      logger,
	}
}

// NewWhatAppsTool asks the device agent which apps it can use.
func NewWhatAppsTool(r CommandRelay, logger *slog.Logger) *RelayTool {
	return &RelayTool{
		name:        "what_apps",
		description: "List the apps available on the personal device and what they can be used for.",
		parameters:  noParams,
		build:       func(relayParams) (string, error) { return whatAppsInstruction, nil },
		relay:       r,
		logger:      logger,
	}
}

// NewWebSearchTool runs a browser search on the device for a topic.
func NewWebSearchTool(r CommandRelay, logger *slog.Logger) *RelayTool {
	return &RelayTool{
		name:        "web_search",
		description: "Do a web search on the personal device's browser and report the visible results.",
		parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"topic": {
					"type": "string",
					"minLength": 1,
					"description": "What to search for"
				}
			},
			"required": ["topic"]
		}`),
		build: func(p relayParams) (string, error) {
			if err := ValidateAll(
				RequireField("topic", p.Topic),
				ValidateMaxLength("topic", p.Topic, maxInstructionLen-len(webSearchPrefix)),
			); err != nil {
				return "", err
			}
			return webSearchPrefix + p.Topic, nil
		},
		relay:  r,
		logger: logger,
	}
}

func (t *RelayTool) Name() string        { return t.name }
func (t *RelayTool) Description() string { return t.description }

func (t *RelayTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.name,
		Description: t.description,
		Parameters:  t.parameters,
	}
}

func (t *RelayTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool."+t.name, t.logger, params,
		func(ctx context.Context, span trace.Span, p relayParams) (any, error) {
			instruction, err := t.build(p)
			if err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.IntAttr("relay.instruction_len", len(instruction)))

			res := t.relay.Execute(ctx, instruction)
			span.SetAttributes(
				tracer.StringAttr("relay.command_id", res.CommandID),
				tracer.BoolAttr("relay.success", res.Success),
			)
			if res.Code != "" {
				span.SetAttributes(tracer.StringAttr("relay.code", string(res.Code)))
			}
			return JSONResult(res, !res.Success)
		},
	)
}

// ScreenshotTool captures the device screen to a local PNG.
type ScreenshotTool struct {
	relay  CommandRelay
	logger *slog.Logger
}

// NewScreenshotTool creates the take_screenshot tool.
func NewScreenshotTool(r CommandRelay, logger *slog.Logger) *ScreenshotTool {
	return &ScreenshotTool{relay: r, logger: logger}
}

func (t *ScreenshotTool) Name() string { return "take_screenshot" }
func (t *ScreenshotTool) Description() string {
	return "Take a screenshot of the personal device to show a product or app screen. " +
		"Use it when there is something notable to present or when asked. " +
		"Returns the absolute path of the saved PNG."
}

func (t *ScreenshotTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  noParams,
	}
}

func (t *ScreenshotTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.take_screenshot", t.logger, params,
		func(ctx context.Context, span trace.Span, _ struct{}) (any, error) {
			res := t.relay.Screenshot(ctx)
			span.SetAttributes(tracer.BoolAttr("relay.success", res.Success))
			return JSONResult(res, !res.Success)
		},
	)
}
