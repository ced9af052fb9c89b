// Package tools exposes asset lookups, manual previews and work logs to
// automated agents over the Model Context Protocol.
package tools

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"

	"assetd/pkg/logger"
	"assetd/services/assets"
)

// Version is reported to MCP clients.
var Version = "dev"

// AssetService is what the tools call.
type AssetService interface {
	FindByCodeOrID(ctx context.Context, value string) (assets.Asset, error)
	GetManualPreview(ctx context.Context, id uuid.UUID, maxChars int) (assets.ManualPreview, error)
	CreateWorkLog(ctx context.Context, draft assets.WorkLogDraft) (assets.WorkLog, error)
	ListWorkLogs(ctx context.Context, assetID uuid.UUID) ([]assets.WorkLog, error)
	Limits() assets.PreviewLimits
}

// New creates the MCP server with every tool registered.
func New(svc AssetService, log *logger.Logger) *server.MCPServer {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("component", "tools")

	s := server.NewMCPServer(
		"assetd",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	search := NewAssetSearchTool(svc, log)
	s.AddTool(search.Definition(), search.Handle)

	manual := NewManualGetTool(svc, log)
	s.AddTool(manual.Definition(), manual.Handle)

	create := NewWorkLogCreateTool(svc, log)
	s.AddTool(create.Definition(), create.Handle)

	list := NewWorkLogListTool(svc, log)
	s.AddTool(list.Definition(), list.Handle)

	return s
}

// HTTPHandler serves s over streamable HTTP without sessions.
func HTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s, server.WithStateLess(true))
}

// ServeStdio serves s over stdin/stdout until the input closes.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `Look up equipment by scanned QR code or asset id with asset_search,
read the start of its manual with manual_get, and record or review maintenance with
worklog_create and worklog_list.`
