package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"assetd/pkg/logger"
	"assetd/services/assets"
)

// AssetService is the slice of assets.Service the handlers call.
type AssetService interface {
	CreateAsset(ctx context.Context, draft assets.Draft) (assets.Result, error)
	GetManualPreview(ctx context.Context, id uuid.UUID, maxChars int) (assets.ManualPreview, error)
	Get(ctx context.Context, id uuid.UUID) (assets.Asset, error)
	GetByCode(ctx context.Context, code string) (assets.Asset, error)
	Search(ctx context.Context, query string, page, size int) (assets.Page, error)
	ResumeLocator(ctx context.Context, id uuid.UUID) (assets.Asset, error)
	CreateWorkLog(ctx context.Context, draft assets.WorkLogDraft) (assets.WorkLog, error)
	ListWorkLogs(ctx context.Context, assetID uuid.UUID) ([]assets.WorkLog, error)
	ScanPayload(code string) string
	Limits() assets.PreviewLimits
}

// ImageRenderer renders a scan payload as PNG bytes.
type ImageRenderer interface {
	Render(payload string) ([]byte, error)
}

// Config controls optional mounts.
type Config struct {
	// QRImages serves stored code images under /qr-images/ when set.
	QRImages http.Handler
	// MCP serves the tool surface under /mcp when set.
	MCP http.Handler
}

// API wires the asset service and image renderer into HTTP handlers.
type API struct {
	assets AssetService
	images ImageRenderer
	config Config
	log    *logger.Logger
}

// New validates dependencies and returns the API.
func New(svc AssetService, images ImageRenderer, log *logger.Logger, cfg Config) (*API, error) {
	if svc == nil {
		return nil, errors.New("asset service is required")
	}
	if images == nil {
		return nil, errors.New("image renderer is required")
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &API{
		assets: svc,
		images: images,
		config: cfg,
		log:    log.With("component", "api"),
	}, nil
}
