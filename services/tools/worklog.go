package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"assetd/pkg/logger"
	"assetd/services/assets"
)

const (
	workLogCreateName = "worklog_create"
	workLogListName   = "worklog_list"
)

// WorkLogCreateTool records maintenance performed on an asset.
type WorkLogCreateTool struct {
	svc AssetService
	log *logger.Logger
}

func NewWorkLogCreateTool(svc AssetService, log *logger.Logger) *WorkLogCreateTool {
	return &WorkLogCreateTool{svc: svc, log: log}
}

func (t *WorkLogCreateTool) Definition() mcp.Tool {
	return mcp.NewTool(workLogCreateName,
		mcp.WithDescription("Record a maintenance action performed on an asset."),
		mcp.WithString("asset_id", mcp.Required(), mcp.Description("Asset UUID")),
		mcp.WithString("action", mcp.Required(), mcp.Description("What was done")),
		mcp.WithString("technician", mcp.Required(), mcp.Description("Who did it")),
		mcp.WithNumber("duration_minutes", mcp.Description("Time spent in minutes"), mcp.Min(0)),
		mcp.WithString("notes", mcp.Description("Free-form notes")),
	)
}

func (t *WorkLogCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireUUID(req, "asset_id")
	if err != nil {
		return errorResult(workLogCreateName, err), nil
	}

	log, err := t.svc.CreateWorkLog(ctx, assets.WorkLogDraft{
		AssetID:         id,
		Action:          req.GetString("action", ""),
		Technician:      req.GetString("technician", ""),
		DurationMinutes: req.GetInt("duration_minutes", 0),
		Notes:           req.GetString("notes", ""),
	})
	if err != nil {
		return errorResult(workLogCreateName, err), nil
	}
	t.log.Info("work log recorded", "asset_id", id, "work_log_id", log.ID)
	return jsonResult(workLogCreateName, log)
}

// WorkLogListTool lists the maintenance history of an asset, newest first.
type WorkLogListTool struct {
	svc AssetService
	log *logger.Logger
}

func NewWorkLogListTool(svc AssetService, log *logger.Logger) *WorkLogListTool {
	return &WorkLogListTool{svc: svc, log: log}
}

func (t *WorkLogListTool) Definition() mcp.Tool {
	return mcp.NewTool(workLogListName,
		mcp.WithDescription("List the work logs of an asset, newest first."),
		mcp.WithString("asset_id", mcp.Required(), mcp.Description("Asset UUID")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (t *WorkLogListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireUUID(req, "asset_id")
	if err != nil {
		return errorResult(workLogListName, err), nil
	}
	logs, err := t.svc.ListWorkLogs(ctx, id)
	if err != nil {
		return errorResult(workLogListName, err), nil
	}
	return jsonResult(workLogListName, map[string]any{"work_logs": logs})
}
