// Package reconciler retries code image attachment for assets left pending by
// onboarding.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"assetd/pkg/logger"
	"assetd/services/assets"
)

const (
	defaultInterval  = time.Minute
	defaultBatchSize = 50

	pendingDurable = "reconciler-qr-pending"
)

// Locators is the slice of the asset service the reconciler drives.
type Locators interface {
	ListPending(ctx context.Context, limit int) ([]assets.Asset, error)
	Reconcile(ctx context.Context, id uuid.UUID) (assets.Asset, error)
}

// Subscriber delivers messages from a durable subscription. *bus.Bus
// satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, subj, durable string, fn func(ctx context.Context, data []byte) error) (io.Closer, error)
}

type Config struct {
	Interval  time.Duration
	BatchSize int
}

// Stats summarises one sweep.
type Stats struct {
	Attempted int
	Attached  int
	Failed    int
	Skipped   int
}

// Reconciler reacts to fresh onboarding failures and periodically sweeps the
// pending backlog. At most one attempt per asset is in flight.
type Reconciler struct {
	svc Locators
	bus Subscriber
	cfg Config
	log *logger.Logger

	inflightMu sync.Mutex
	inflight   map[uuid.UUID]struct{}

	subsMu sync.Mutex
	subs   []io.Closer

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a reconciler. bus may be nil, in which case only the periodic
// sweep runs.
func New(svc Locators, bus Subscriber, cfg Config, log *logger.Logger) (*Reconciler, error) {
	if svc == nil {
		return nil, errors.New("locators are required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Reconciler{
		svc:      svc,
		bus:      bus,
		cfg:      cfg,
		log:      log.With("component", "reconciler"),
		inflight: make(map[uuid.UUID]struct{}),
	}, nil
}

// Start subscribes to pending events and launches the sweep loop.
func (r *Reconciler) Start(ctx context.Context) error {
	if r == nil {
		return errors.New("nil reconciler")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	if r.bus != nil {
		closer, err := r.bus.Subscribe(ctx, assets.SubjectQRPending, pendingDurable, r.handlePending)
		if err != nil {
			return err
		}
		r.subsMu.Lock()
		r.subs = append(r.subs, closer)
		r.subsMu.Unlock()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx)
	return nil
}

// Close stops the sweep loop and tears down subscriptions.
func (r *Reconciler) Close() error {
	if r == nil {
		return nil
	}
	if r.cancel != nil {
		r.cancel()
		<-r.done
		r.cancel = nil
	}

	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	var firstErr error
	for _, sub := range r.subs {
		if sub == nil {
			continue
		}
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.subs = nil
	return firstErr
}

func (r *Reconciler) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := r.Sweep(ctx)
			if err != nil {
				r.log.Warn("pending sweep failed", "error", err)
				continue
			}
			if stats.Attempted > 0 {
				r.log.Info("pending sweep finished", "attempted", stats.Attempted, "attached", stats.Attached, "failed", stats.Failed, "skipped", stats.Skipped)
			}
		}
	}
}

// Sweep retries up to BatchSize pending assets, oldest first.
func (r *Reconciler) Sweep(ctx context.Context) (Stats, error) {
	pending, err := r.svc.ListPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, a := range pending {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		attached, attempted := r.attempt(ctx, a.ID)
		switch {
		case !attempted:
			stats.Skipped++
		case attached:
			stats.Attempted++
			stats.Attached++
		default:
			stats.Attempted++
			stats.Failed++
		}
	}
	return stats, nil
}

// handlePending retries once for failures raised by onboarding itself.
// Failures of retries are left to the sweep so a broken backend does not loop
// through the bus.
func (r *Reconciler) handlePending(ctx context.Context, data []byte) error {
	var evt assets.AssetEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}
	if evt.AssetID == uuid.Nil {
		return errors.New("asset_id missing from pending event")
	}
	if evt.Trigger != assets.TriggerOnboard {
		return nil
	}
	r.attempt(ctx, evt.AssetID)
	return nil
}

func (r *Reconciler) attempt(ctx context.Context, id uuid.UUID) (attached, attempted bool) {
	if !r.acquire(id) {
		return false, false
	}
	defer r.release(id)

	a, err := r.svc.Reconcile(ctx, id)
	if err != nil {
		r.log.Debug("reconcile attempt failed", "asset_id", id, "error", err)
		return false, true
	}
	return a.QRState == assets.QRSet, true
}

func (r *Reconciler) acquire(id uuid.UUID) bool {
	r.inflightMu.Lock()
	defer r.inflightMu.Unlock()
	if _, busy := r.inflight[id]; busy {
		return false
	}
	r.inflight[id] = struct{}{}
	return true
}

func (r *Reconciler) release(id uuid.UUID) {
	r.inflightMu.Lock()
	defer r.inflightMu.Unlock()
	delete(r.inflight, id)
}
