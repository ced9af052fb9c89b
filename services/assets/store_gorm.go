package assets

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"assetd/pkg/apierr"
)

const (
	queryTimeout    = 5 * time.Second
	uniqueViolation = "23505"
)

// GormStore implements Repository and WorkLogRepository on gorm.
type GormStore struct {
	orm *gorm.DB
}

// NewGormStore returns a store using orm. The handle should be opened with
// TranslateError so duplicate keys surface as gorm.ErrDuplicatedKey.
func NewGormStore(orm *gorm.DB) (*GormStore, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	return &GormStore{orm: orm}, nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

func (s *GormStore) Create(ctx context.Context, asset *Asset) error {
	const op = "assets.Create"

	if asset == nil {
		return apierr.New(apierr.KindInvalidInput, op, "nil asset")
	}
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = asset.CreatedAt
	if asset.QRState == "" {
		asset.QRState = QRPending
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	model := assetModelFrom(*asset)
	if err := s.orm.WithContext(ctx).Create(&model).Error; err != nil {
		if isDuplicate(err) {
			return apierr.New(apierr.KindConflict, op, "asset code %q already exists", asset.Code)
		}
		return err
	}
	*asset = model.toAPI()
	return nil
}

func (s *GormStore) AttachLocator(ctx context.Context, id uuid.UUID, locator string, at time.Time) (Asset, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	at = at.UTC()
	err := s.orm.WithContext(ctx).
		Model(&assetModel{}).
		Where("id = ? AND qr_state = ?", id, string(QRPending)).
		Updates(map[string]any{
			"qr_locator":     locator,
			"qr_state":       string(QRSet),
			"qr_attached_at": at,
			"updated_at":     at,
		}).Error
	if err != nil {
		return Asset{}, err
	}
	return s.Get(ctx, id)
}

func (s *GormStore) Get(ctx context.Context, id uuid.UUID) (Asset, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var model assetModel
	if err := s.orm.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return Asset{}, notFound("assets.Get", err, "asset %s not found", id)
	}
	return model.toAPI(), nil
}

func (s *GormStore) GetByCode(ctx context.Context, code string) (Asset, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var model assetModel
	if err := s.orm.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		return Asset{}, notFound("assets.GetByCode", err, "asset with code %q not found", code)
	}
	return model.toAPI(), nil
}

// Search matches query case-insensitively against name, model, serial number
// and location. Results are ordered by name.
func (s *GormStore) Search(ctx context.Context, query string, page, size int) ([]Asset, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	q := s.orm.WithContext(ctx).Model(&assetModel{})
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + escapeLike(strings.ToLower(query)) + "%"
		q = q.Where(
			`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(model) LIKE ? ESCAPE '\' OR LOWER(serial_number) LIKE ? ESCAPE '\' OR LOWER(location) LIKE ? ESCAPE '\'`,
			like, like, like, like,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []assetModel
	if err := q.Order("name ASC").Order("id ASC").Offset(page * size).Limit(size).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	out := make([]Asset, 0, len(models))
	for _, m := range models {
		out = append(out, m.toAPI())
	}
	return out, total, nil
}

// ListPending returns assets still waiting for a locator, oldest first.
func (s *GormStore) ListPending(ctx context.Context, limit int) ([]Asset, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var models []assetModel
	err := s.orm.WithContext(ctx).
		Where("qr_state = ?", string(QRPending)).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]Asset, 0, len(models))
	for _, m := range models {
		out = append(out, m.toAPI())
	}
	return out, nil
}

func (s *GormStore) CreateWorkLog(ctx context.Context, log *WorkLog) error {
	const op = "assets.CreateWorkLog"

	if log == nil {
		return apierr.New(apierr.KindInvalidInput, op, "nil work log")
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	model := workLogModel{
		ID:              log.ID,
		AssetID:         log.AssetID,
		Action:          log.Action,
		Technician:      log.Technician,
		DurationMinutes: log.DurationMinutes,
		Notes:           log.Notes,
		CreatedAt:       log.CreatedAt,
	}
	if err := s.orm.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return apierr.New(apierr.KindNotFound, op, "asset %s not found", log.AssetID)
		}
		return err
	}
	*log = model.toAPI()
	return nil
}

func (s *GormStore) ListWorkLogs(ctx context.Context, assetID uuid.UUID) ([]WorkLog, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var models []workLogModel
	err := s.orm.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]WorkLog, 0, len(models))
	for _, m := range models {
		out = append(out, m.toAPI())
	}
	return out, nil
}

func notFound(op string, err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierr.New(apierr.KindNotFound, op, format, args...)
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
