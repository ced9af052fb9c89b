package assets

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"assetd/pkg/metrics"
	"assetd/pkg/qrcode"
	"assetd/services/artifacts"
)

const (
	TriggerOnboard   = "onboard"
	TriggerRetry     = "retry"
	TriggerReconcile = "reconcile"
)

// ImageGenerator renders a scan payload into a named image.
type ImageGenerator interface {
	Generate(code, payload string) (qrcode.Image, error)
}

// OnboardingConfig holds the settings the onboarder needs at construction.
type OnboardingConfig struct {
	// ScanBaseURL prefixes every scan payload. One trailing slash is dropped.
	ScanBaseURL string
	// CodePrefix is prepended to generated human codes.
	CodePrefix string
}

// Onboarder persists new assets and attaches their code image locators.
type Onboarder struct {
	repo     Repository
	images   ImageGenerator
	store    artifacts.Store
	scanBase string
	prefix   string
	opts     options
}

// NewOnboarder wires the onboarding pipeline.
func NewOnboarder(repo Repository, images ImageGenerator, store artifacts.Store, cfg OnboardingConfig, opts ...Option) (*Onboarder, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if images == nil {
		return nil, errors.New("image generator is required")
	}
	if store == nil {
		return nil, errors.New("artifact store is required")
	}
	base := strings.TrimSuffix(strings.TrimSpace(cfg.ScanBaseURL), "/")
	if base == "" {
		return nil, errors.New("scan base url is required")
	}
	return &Onboarder{
		repo:     repo,
		images:   images,
		store:    store,
		scanBase: base,
		prefix:   cfg.CodePrefix,
		opts:     buildOptions(opts),
	}, nil
}

// ScanPayload is the string encoded into the code image of code.
func (o *Onboarder) ScanPayload(code string) string {
	return o.scanBase + "/" + code
}

// Onboard persists draft and then tries to attach a code image locator.
//
// The returned error is non-nil only when nothing was persisted. Once the
// asset exists, generation or storage failures are reported through
// Result.LocatorErr and the asset stays in QRPending.
func (o *Onboarder) Onboard(ctx context.Context, draft Draft) (Result, error) {
	code := strings.TrimSpace(draft.Code)
	if code == "" {
		code = o.opts.newCode(o.prefix)
	}
	if err := ValidateCode(code); err != nil {
		metrics.AssetsOnboarded.WithLabelValues(metrics.ResultError).Inc()
		return Result{}, err
	}

	installed := o.opts.now()
	if draft.InstalledAt != nil && !draft.InstalledAt.IsZero() {
		installed = draft.InstalledAt.UTC()
	}

	asset := Asset{
		Code:         code,
		Name:         draft.Name,
		Model:        draft.Model,
		SerialNumber: draft.SerialNumber,
		Brand:        draft.Brand,
		Location:     draft.Location,
		AssetType:    draft.AssetType,
		ManualRef:    draft.ManualRef,
		QRState:      QRPending,
		InstalledAt:  installed,
	}
	if err := o.repo.Create(ctx, &asset); err != nil {
		metrics.AssetsOnboarded.WithLabelValues(metrics.ResultError).Inc()
		return Result{}, err
	}
	o.opts.log.Info("asset persisted", "asset_id", asset.ID, "code", asset.Code)

	updated, locErr := o.attach(ctx, asset, TriggerOnboard)
	if locErr != nil {
		metrics.AssetsOnboarded.WithLabelValues(metrics.ResultPending).Inc()
		return Result{Asset: asset, LocatorErr: locErr}, nil
	}
	metrics.AssetsOnboarded.WithLabelValues(metrics.ResultOK).Inc()
	o.opts.publish(ctx, SubjectOnboarded, newAssetEvent(updated, TriggerOnboard, nil, o.opts.now()))
	return Result{Asset: updated}, nil
}

// AttachLocator resumes onboarding for a persisted asset. Assets that already
// carry a locator are returned unchanged.
func (o *Onboarder) AttachLocator(ctx context.Context, id uuid.UUID, trigger string) (Asset, error) {
	asset, err := o.repo.Get(ctx, id)
	if err != nil {
		return Asset{}, err
	}
	if asset.QRState == QRSet {
		return asset, nil
	}
	updated, err := o.attach(ctx, asset, trigger)
	if err != nil {
		return asset, err
	}
	return updated, nil
}

func (o *Onboarder) attach(ctx context.Context, asset Asset, trigger string) (Asset, error) {
	locErr := func(err error) (Asset, error) {
		o.opts.log.Warn("code image not attached", "asset_id", asset.ID, "code", asset.Code, "trigger", trigger, "error", err)
		o.opts.publish(ctx, SubjectQRPending, newAssetEvent(asset, trigger, err, o.opts.now()))
		return asset, err
	}

	img, err := o.images.Generate(asset.Code, o.ScanPayload(asset.Code))
	if err != nil {
		return locErr(err)
	}
	locator, err := o.store.Put(ctx, img.Name, img.Data)
	if err != nil {
		return locErr(err)
	}
	updated, err := o.repo.AttachLocator(ctx, asset.ID, locator, o.opts.now())
	if err != nil {
		return locErr(err)
	}

	metrics.LocatorsAttached.WithLabelValues(trigger).Inc()
	o.opts.log.Info("code image attached", "asset_id", updated.ID, "code", updated.Code, "locator", updated.QRLocator, "trigger", trigger)
	if trigger != TriggerOnboard {
		o.opts.publish(ctx, SubjectQRAttached, newAssetEvent(updated, trigger, nil, o.opts.now()))
	}
	return updated, nil
}
