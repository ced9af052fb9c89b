package labels

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"assetd/pkg/db"
)

// Row is the subset of an asset needed to print its label.
type Row struct {
	ID        uuid.UUID `db:"id"`
	Code      string    `db:"code"`
	Name      string    `db:"name"`
	Location  string    `db:"location"`
	QRLocator string    `db:"qr_locator"`
	CreatedAt time.Time `db:"created_at"`
}

// Source lists the assets to export.
type Source interface {
	Labelled(ctx context.Context, location string) ([]Row, error)
}

// PgxSource reads labelled assets straight from Postgres.
type PgxSource struct {
	pool *pgxpool.Pool
}

func NewPgxSource(pool *pgxpool.Pool) (*PgxSource, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &PgxSource{pool: pool}, nil
}

const labelledQuery = `
SELECT id, code, name, COALESCE(location, '') AS location, COALESCE(qr_locator, '') AS qr_locator, created_at
FROM assets
WHERE qr_state = 'set' AND ($1 = '' OR location = $1)
ORDER BY code ASC`

// Labelled returns assets with an attached code image, optionally limited to
// one location, ordered by code.
func (s *PgxSource) Labelled(ctx context.Context, location string) ([]Row, error) {
	var rows []Row
	if err := db.Select(ctx, s.pool, &rows, labelledQuery, location); err != nil {
		return nil, err
	}
	return rows, nil
}
