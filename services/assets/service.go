package assets

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"assetd/pkg/apierr"
	"assetd/pkg/manualref"
)

const (
	MaxPageSize     = 200
	defaultPageSize = 20
	maxPendingBatch = 500
)

// Store is the persistence the service needs.
type Store interface {
	Repository
	WorkLogRepository
}

// PreviewLimits bounds manual previews.
type PreviewLimits struct {
	Default int
	Max     int
}

// Service is the boundary used by the HTTP and tool layers.
type Service struct {
	store      Store
	onboarder  *Onboarder
	reader     *ManualReader
	normalizer manualref.Normalizer
	limits     PreviewLimits
	opts       options
}

// NewService builds the facade over an onboarder and a manual reader.
func NewService(store Store, onboarder *Onboarder, reader *ManualReader, limits PreviewLimits, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if onboarder == nil {
		return nil, errors.New("onboarder is required")
	}
	if reader == nil {
		reader = NewManualReader(nil)
	}
	if limits.Default <= 0 {
		limits.Default = DefaultPreviewChars
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &Service{
		store:     store,
		onboarder: onboarder,
		reader:    reader,
		limits:    limits,
		opts:      buildOptions(opts),
	}, nil
}

// ScanPayload is the string encoded into the code image of code.
func (s *Service) ScanPayload(code string) string {
	return s.onboarder.ScanPayload(code)
}

// Limits reports the effective preview bounds.
func (s *Service) Limits() PreviewLimits { return s.limits }

// CreateAsset validates and normalizes draft, then onboards it. Manual
// references that do not parse, or that no reader understands, are refused
// before anything is persisted.
func (s *Service) CreateAsset(ctx context.Context, draft Draft) (Result, error) {
	const op = "assets.CreateAsset"

	draft.Name = strings.TrimSpace(draft.Name)
	if draft.Name == "" {
		return Result{}, apierr.New(apierr.KindInvalidInput, op, "name is required")
	}
	ref := s.normalizer.Normalize(draft.ManualRef)
	if ref == "" {
		return Result{}, apierr.New(apierr.KindInvalidInput, op, "manual reference is required")
	}

	parsed, err := manualref.Parse(ref)
	if err != nil {
		return Result{}, err
	}
	if u, ok := parsed.(manualref.Unsupported); ok {
		return Result{}, apierr.New(apierr.KindUnsupportedScheme, op, "manual scheme %q is not supported", u.Scheme)
	}

	draft.ManualRef = ref
	return s.onboarder.Onboard(ctx, draft)
}

// GetManualPreview previews the manual of an asset. maxChars above the
// configured maximum is clamped.
func (s *Service) GetManualPreview(ctx context.Context, id uuid.UUID, maxChars int) (ManualPreview, error) {
	if maxChars > s.limits.Max {
		maxChars = s.limits.Max
	}
	if maxChars <= 0 {
		return ManualPreview{}, apierr.New(apierr.KindInvalidInput, "assets.GetManualPreview", "maxChars must be positive, got %d", maxChars)
	}
	asset, err := s.store.Get(ctx, id)
	if err != nil {
		return ManualPreview{}, err
	}
	return s.reader.Preview(asset, maxChars)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Asset, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (Asset, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Asset{}, apierr.New(apierr.KindInvalidInput, "assets.GetByCode", "code is required")
	}
	return s.store.GetByCode(ctx, code)
}

// FindByCodeOrID resolves a scanned value. A UUID is tried as an id first;
// anything else, or an id with no match, is looked up as a human code.
func (s *Service) FindByCodeOrID(ctx context.Context, value string) (Asset, error) {
	value = strings.TrimSpace(value)
	if id, err := uuid.Parse(value); err == nil {
		asset, err := s.store.Get(ctx, id)
		if err == nil || !apierr.Is(err, apierr.KindNotFound) {
			return asset, err
		}
	}
	return s.GetByCode(ctx, value)
}

// Search pages through assets matching query. Negative pages become 0 and
// sizes are clamped to 1..MaxPageSize.
func (s *Service) Search(ctx context.Context, query string, page, size int) (Page, error) {
	if page < 0 {
		page = 0
	}
	switch {
	case size <= 0:
		size = 1
	case size > MaxPageSize:
		size = MaxPageSize
	}

	items, total, err := s.store.Search(ctx, query, page, size)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Items:      items,
		Total:      total,
		Page:       page,
		Size:       size,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}, nil
}

// ListPending returns assets waiting for a locator, oldest first.
func (s *Service) ListPending(ctx context.Context, limit int) ([]Asset, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPendingBatch {
		limit = maxPendingBatch
	}
	return s.store.ListPending(ctx, limit)
}

// ResumeLocator retries code image attachment for one asset.
func (s *Service) ResumeLocator(ctx context.Context, id uuid.UUID) (Asset, error) {
	return s.onboarder.AttachLocator(ctx, id, TriggerRetry)
}

// Reconcile is ResumeLocator for background sweeps.
func (s *Service) Reconcile(ctx context.Context, id uuid.UUID) (Asset, error) {
	return s.onboarder.AttachLocator(ctx, id, TriggerReconcile)
}

// CreateWorkLog records maintenance against an existing asset.
func (s *Service) CreateWorkLog(ctx context.Context, draft WorkLogDraft) (WorkLog, error) {
	const op = "assets.CreateWorkLog"

	draft.Action = strings.TrimSpace(draft.Action)
	draft.Technician = strings.TrimSpace(draft.Technician)
	switch {
	case draft.AssetID == uuid.Nil:
		return WorkLog{}, apierr.New(apierr.KindInvalidInput, op, "asset id is required")
	case draft.Action == "":
		return WorkLog{}, apierr.New(apierr.KindInvalidInput, op, "action is required")
	case draft.Technician == "":
		return WorkLog{}, apierr.New(apierr.KindInvalidInput, op, "technician is required")
	case draft.DurationMinutes < 0:
		return WorkLog{}, apierr.New(apierr.KindInvalidInput, op, "duration must not be negative")
	}

	if _, err := s.store.Get(ctx, draft.AssetID); err != nil {
		return WorkLog{}, err
	}

	log := WorkLog{
		AssetID:         draft.AssetID,
		Action:          draft.Action,
		Technician:      draft.Technician,
		DurationMinutes: draft.DurationMinutes,
		Notes:           draft.Notes,
		CreatedAt:       s.opts.now(),
	}
	if err := s.store.CreateWorkLog(ctx, &log); err != nil {
		return WorkLog{}, err
	}
	s.opts.publish(ctx, SubjectWorkLogNew, WorkLogEvent{WorkLog: log, At: log.CreatedAt})
	return log, nil
}

// ListWorkLogs returns the work logs of an asset, newest first.
func (s *Service) ListWorkLogs(ctx context.Context, assetID uuid.UUID) ([]WorkLog, error) {
	if _, err := s.store.Get(ctx, assetID); err != nil {
		return nil, err
	}
	return s.store.ListWorkLogs(ctx, assetID)
}
