package tools

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"assetd/pkg/apierr"
	"assetd/pkg/metrics"
)

func jsonResult(tool string, v any) (*mcp.CallToolResult, error) {
	res, err := mcp.NewToolResultJSON(v)
	if err != nil {
		metrics.ToolCalls.WithLabelValues(tool, metrics.ResultError).Inc()
		return nil, err
	}
	metrics.ToolCalls.WithLabelValues(tool, metrics.ResultOK).Inc()
	return res, nil
}

// errorResult reports err to the agent as a tool error, prefixed with its kind.
func errorResult(tool string, err error) *mcp.CallToolResult {
	metrics.ToolCalls.WithLabelValues(tool, metrics.ResultError).Inc()
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", apierr.KindOf(err), err))
}

func requireUUID(req mcp.CallToolRequest, key string) (uuid.UUID, error) {
	raw, err := req.RequireString(key)
	if err != nil {
		return uuid.Nil, apierr.Wrap(apierr.KindInvalidInput, "tools", err)
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apierr.New(apierr.KindInvalidInput, "tools", "%s must be a UUID", key)
	}
	return id, nil
}
