// Package mcptools exposes the ad format store as Model Context Protocol tools.
package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wilhg/adformats/pkg/adformat"
	"github.com/wilhg/adformats/pkg/result"
)

// Tool names.
const (
	ToolList         = "list_ad_formats"
	ToolGet          = "get_ad_format"
	ToolUpdateEvents = "update_ad_format_events"
)

// Store is the subset of *adstore.Store the tools call.
type Store interface {
	List(ctx context.Context) result.Outcome[[]adformat.AdFormat]
	Get(ctx context.Context, id int) result.Outcome[adformat.AdFormat]
	UpdateEvents(ctx context.Context, id int, events []adformat.EventLabel) result.Outcome[adformat.EventsUpdate]
}

type listArgs struct{}

type getArgs struct {
	ID int `json:"id" jsonschema:"ad format id"`
}

type updateArgs struct {
	ID     int                   `json:"id" jsonschema:"ad format id"`
	Events []adformat.EventLabel `json:"events" jsonschema:"replacement event labels; an empty list clears them"`
}

// New returns an MCP server with the ad format tools registered.
func New(st Store, version string, logger *zap.Logger) *mcp.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "adformats", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolList,
		Description: "List every ad format with its interaction event labels, ordered by id.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ listArgs) (*mcp.CallToolResult, result.Outcome[[]adformat.AdFormat], error) {
		return reply(logger, ToolList, st.List(ctx))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolGet,
		Description: "Fetch one ad format by id.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in getArgs) (*mcp.CallToolResult, result.Outcome[adformat.AdFormat], error) {
		return reply(logger, ToolGet, st.Get(ctx, in.ID))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolUpdateEvents,
		Description: "Replace the interaction event labels of an ad format. Known codes: click, swipe_left, swipe_right, swipe_up, swipe_down, long_press, double_tap.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in updateArgs) (*mcp.CallToolResult, result.Outcome[adformat.EventsUpdate], error) {
		return reply(logger, ToolUpdateEvents, st.UpdateEvents(ctx, in.ID, in.Events))
	})

	return server
}

// reply returns the envelope as structured content; error envelopes mark the
// result as a tool error.
func reply[T any](logger *zap.Logger, tool string, out result.Outcome[T]) (*mcp.CallToolResult, result.Outcome[T], error) {
	if out.Error != nil {
		logger.Info("mcp tool returned error envelope",
			zap.String("tool", tool),
			zap.String("code", out.Error.Code))
		return &mcp.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

// ServeStdio serves the tools on stdin/stdout until ctx is done or the client
// disconnects.
func ServeStdio(ctx context.Context, st Store, version string, logger *zap.Logger) error {
	return New(st, version, logger).Run(ctx, &mcp.StdioTransport{})
}
