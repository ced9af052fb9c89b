package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"assetd/pkg/apierr"
	"assetd/pkg/logger"
)

const assetSearchName = "asset_search"

// AssetSearchTool resolves a scanned QR code or an asset id.
type AssetSearchTool struct {
	svc AssetService
	log *logger.Logger
}

func NewAssetSearchTool(svc AssetService, log *logger.Logger) *AssetSearchTool {
	return &AssetSearchTool{svc: svc, log: log}
}

func (t *AssetSearchTool) Definition() mcp.Tool {
	return mcp.NewTool(assetSearchName,
		mcp.WithDescription("Find an asset by its QR code or UUID. Returns {\"status\":\"NOT_FOUND\"} when nothing matches."),
		mcp.WithString("qr_or_id", mcp.Required(), mcp.Description("QR code value or asset UUID")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

type notFound struct {
	Status string `json:"status"`
	Query  string `json:"qr_or_id"`
}

func (t *AssetSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, err := req.RequireString("qr_or_id")
	if err != nil || strings.TrimSpace(value) == "" {
		return errorResult(assetSearchName, apierr.New(apierr.KindInvalidInput, "tools.asset_search", "qr_or_id is required")), nil
	}

	asset, err := t.svc.FindByCodeOrID(ctx, value)
	switch {
	case apierr.Is(err, apierr.KindNotFound):
		return jsonResult(assetSearchName, notFound{Status: "NOT_FOUND", Query: value})
	case err != nil:
		t.log.Warn("asset search failed", "qr_or_id", value, "error", err)
		return errorResult(assetSearchName, err), nil
	}
	return jsonResult(assetSearchName, asset)
}
