package assets

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists assets. Code uniqueness is enforced here: Create fails
// with a KindConflict error when the code is taken. Lookups of missing rows
// fail with KindNotFound.
type Repository interface {
	Create(ctx context.Context, asset *Asset) error
	// AttachLocator sets the locator of a QRPending asset and flips it to
	// QRSet. Assets already in QRSet are returned unchanged.
	AttachLocator(ctx context.Context, id uuid.UUID, locator string, at time.Time) (Asset, error)
	Get(ctx context.Context, id uuid.UUID) (Asset, error)
	GetByCode(ctx context.Context, code string) (Asset, error)
	Search(ctx context.Context, query string, page, size int) ([]Asset, int64, error)
	ListPending(ctx context.Context, limit int) ([]Asset, error)
}

// WorkLogRepository persists work logs.
type WorkLogRepository interface {
	CreateWorkLog(ctx context.Context, log *WorkLog) error
	// ListWorkLogs returns the logs of an asset, newest first.
	ListWorkLogs(ctx context.Context, assetID uuid.UUID) ([]WorkLog, error)
}
