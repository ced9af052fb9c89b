package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"assetd/pkg/logger"
)

const manualGetName = "manual_get"

// ManualGetTool returns a bounded preview of an asset manual.
type ManualGetTool struct {
	svc AssetService
	log *logger.Logger
}

func NewManualGetTool(svc AssetService, log *logger.Logger) *ManualGetTool {
	return &ManualGetTool{svc: svc, log: log}
}

func (t *ManualGetTool) Definition() mcp.Tool {
	return mcp.NewTool(manualGetName,
		mcp.WithDescription("Read the beginning of an asset's manual. truncated is true when the manual continues past the returned text."),
		mcp.WithString("asset_id", mcp.Required(), mcp.Description("Asset UUID")),
		mcp.WithNumber("max_chars", mcp.Description("Maximum characters to return"), mcp.Min(1), mcp.DefaultNumber(float64(t.svc.Limits().Default))),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (t *ManualGetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireUUID(req, "asset_id")
	if err != nil {
		return errorResult(manualGetName, err), nil
	}
	maxChars := req.GetInt("max_chars", t.svc.Limits().Default)

	preview, err := t.svc.GetManualPreview(ctx, id, maxChars)
	if err != nil {
		t.log.Debug("manual preview failed", "asset_id", id, "error", err)
		return errorResult(manualGetName, err), nil
	}
	return jsonResult(manualGetName, preview)
}
