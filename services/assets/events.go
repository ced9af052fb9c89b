package assets

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Stream and subjects for asset lifecycle events.
const (
	StreamName        = "ASSETD"
	StreamSubjects    = "assetd.>"
	SubjectOnboarded  = "assetd.assets.onboarded"
	SubjectQRPending  = "assetd.assets.qr_pending"
	SubjectQRAttached = "assetd.assets.qr_attached"
	SubjectWorkLogNew = "assetd.worklogs.created"
)

// Publisher delivers events. *bus.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// AssetEvent is published whenever an asset's onboarding state changes.
type AssetEvent struct {
	AssetID   uuid.UUID `json:"asset_id"`
	Code      string    `json:"code"`
	QRState   QRState   `json:"qr_state"`
	QRLocator string    `json:"qr_locator,omitempty"`
	Trigger   string    `json:"trigger"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// WorkLogEvent is published after a work log is recorded.
type WorkLogEvent struct {
	WorkLog WorkLog   `json:"work_log"`
	At      time.Time `json:"at"`
}

func newAssetEvent(a Asset, trigger string, locErr error, at time.Time) AssetEvent {
	ev := AssetEvent{
		AssetID:   a.ID,
		Code:      a.Code,
		QRState:   a.QRState,
		QRLocator: a.QRLocator,
		Trigger:   trigger,
		At:        at.UTC(),
	}
	if locErr != nil {
		ev.Error = locErr.Error()
	}
	return ev
}
