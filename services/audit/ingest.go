// Package audit records asset lifecycle and work log events as an audit trail.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"assetd/pkg/logger"
	"assetd/services/assets"
)

const (
	auditActor  = "assetd"
	snapshotKey = "snapshot"
	changesKey  = "changes"

	ActionOnboarded      = "asset_onboarded"
	ActionQRPending      = "qr_pending"
	ActionQRAttached     = "qr_attached"
	ActionWorkLogCreated = "worklog_created"
)

// Subscriber delivers messages from a durable subscription. *bus.Bus
// satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, subj, durable string, fn func(ctx context.Context, data []byte) error) (io.Closer, error)
}

type subscriptionSpec struct {
	subject string
	durable string
	action  string
	handle  func(i *Ingestor, ctx context.Context, action string, data []byte) error
}

var subscriptions = []subscriptionSpec{
	{subject: assets.SubjectOnboarded, durable: "audit-onboarded", action: ActionOnboarded, handle: (*Ingestor).handleAsset},
	{subject: assets.SubjectQRPending, durable: "audit-qr-pending", action: ActionQRPending, handle: (*Ingestor).handleAsset},
	{subject: assets.SubjectQRAttached, durable: "audit-qr-attached", action: ActionQRAttached, handle: (*Ingestor).handleAsset},
	{subject: assets.SubjectWorkLogNew, durable: "audit-worklogs", action: ActionWorkLogCreated, handle: (*Ingestor).handleWorkLog},
}

// Ingestor turns bus events into audit entries. Asset entries carry a field
// diff against the previous snapshot of the same asset.
type Ingestor struct {
	sink Sink
	bus  Subscriber
	log  *logger.Logger

	subMu sync.Mutex
	subs  []io.Closer
}

// NewIngestor constructs an Ingestor for the provided dependencies.
func NewIngestor(sink Sink, bus Subscriber, log *logger.Logger) (*Ingestor, error) {
	if sink == nil {
		return nil, errors.New("sink is required")
	}
	if bus == nil {
		return nil, errors.New("bus is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Ingestor{sink: sink, bus: bus, log: log.With("component", "audit")}, nil
}

// Start subscribes to every audited subject.
func (i *Ingestor) Start(ctx context.Context) error {
	if i == nil {
		return errors.New("nil ingestor")
	}

	for _, s := range subscriptions {
		s := s
		handler := func(msgCtx context.Context, data []byte) error {
			if err := s.handle(i, msgCtx, s.action, data); err != nil {
				i.log.Warn("audit event rejected", "subject", s.subject, "error", err)
				return err
			}
			return nil
		}

		sub, err := i.bus.Subscribe(ctx, s.subject, s.durable, handler)
		if err != nil {
			_ = i.Close()
			return fmt.Errorf("subscribe %s: %w", s.subject, err)
		}

		i.subMu.Lock()
		i.subs = append(i.subs, sub)
		i.subMu.Unlock()
	}
	return nil
}

// Close stops all subscriptions.
func (i *Ingestor) Close() error {
	if i == nil {
		return nil
	}

	i.subMu.Lock()
	defer i.subMu.Unlock()

	var errs []error
	for _, sub := range i.subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	i.subs = nil
	return errors.Join(errs...)
}

func (i *Ingestor) handleAsset(ctx context.Context, action string, data []byte) error {
	var evt assets.AssetEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}
	if evt.AssetID == uuid.Nil {
		return errors.New("asset_id missing from event")
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	obj := evt.AssetID.String()
	previous, err := i.sink.PreviousSnapshot(ctx, obj)
	if err != nil {
		return err
	}

	current := map[string]any{
		"code":       evt.Code,
		"qr_state":   string(evt.QRState),
		"qr_locator": evt.QRLocator,
	}
	details := map[string]any{
		snapshotKey: current,
		changesKey:  computeDiff(previous, current),
		"trigger":   evt.Trigger,
	}
	if evt.Error != "" {
		details["error"] = evt.Error
	}

	return i.sink.Insert(ctx, Entry{Actor: auditActor, Action: action, Obj: obj, Details: details, At: evt.At})
}

func (i *Ingestor) handleWorkLog(ctx context.Context, action string, data []byte) error {
	var evt assets.WorkLogEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}
	if evt.WorkLog.AssetID == uuid.Nil {
		return errors.New("asset_id missing from work log event")
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	details := map[string]any{
		"work_log_id":      evt.WorkLog.ID.String(),
		"action":           evt.WorkLog.Action,
		"technician":       evt.WorkLog.Technician,
		"duration_minutes": evt.WorkLog.DurationMinutes,
	}
	return i.sink.Insert(ctx, Entry{Actor: evt.WorkLog.Technician, Action: action, Obj: evt.WorkLog.AssetID.String(), Details: details, At: evt.At})
}

func computeDiff(previous, current map[string]any) map[string]any {
	if previous == nil {
		previous = map[string]any{}
	}
	if current == nil {
		current = map[string]any{}
	}

	diff := make(map[string]any)

	for key, prevVal := range previous {
		curVal, ok := current[key]
		if !ok {
			diff[key] = map[string]any{"old": prevVal, "new": nil}
			continue
		}
		if !reflect.DeepEqual(prevVal, curVal) {
			diff[key] = map[string]any{"old": prevVal, "new": curVal}
		}
	}

	for key, curVal := range current {
		if _, seen := previous[key]; seen {
			continue
		}
		diff[key] = map[string]any{"old": nil, "new": curVal}
	}

	return diff
}
