package assets

import (
	"time"

	"github.com/google/uuid"
)

// QRState records whether onboarding managed to attach a code image locator.
type QRState string

const (
	// QRPending assets are persisted but have no locator yet.
	QRPending QRState = "pending"
	// QRSet assets carry their final, immutable locator.
	QRSet QRState = "set"
)

// Asset is a tracked piece of equipment identified by a human code.
type Asset struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Model        string    `json:"model,omitempty"`
	SerialNumber string    `json:"serial_number,omitempty"`
	Brand        string    `json:"brand,omitempty"`
	Location     string    `json:"location,omitempty"`
	AssetType    string    `json:"asset_type,omitempty"`
	ManualRef    string    `json:"manual_ref"`
	QRLocator    string    `json:"qr_locator,omitempty"`
	QRState      QRState   `json:"qr_state"`
	InstalledAt  time.Time `json:"installed_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Draft carries caller-supplied fields for a new asset. Code and InstalledAt
// are optional.
type Draft struct {
	Code         string     `json:"code,omitempty"`
	Name         string     `json:"name"`
	Model        string     `json:"model,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	Brand        string     `json:"brand,omitempty"`
	Location     string     `json:"location,omitempty"`
	AssetType    string     `json:"asset_type,omitempty"`
	ManualRef    string     `json:"manual_ref"`
	InstalledAt  *time.Time `json:"installed_at,omitempty"`
}

// Result is the outcome of onboarding. The asset is always persisted when
// Result is returned; LocatorErr is set when the code image could not be
// generated or stored and the asset was left in QRPending.
type Result struct {
	Asset      Asset
	LocatorErr error
}

// ManualPreview is a bounded excerpt of an asset's manual.
type ManualPreview struct {
	AssetID   uuid.UUID `json:"asset_id"`
	ManualRef string    `json:"manual_ref"`
	Text      string    `json:"text"`
	Truncated bool      `json:"truncated"`
}

// WorkLog is a maintenance entry recorded against an asset.
type WorkLog struct {
	ID              uuid.UUID `json:"id"`
	AssetID         uuid.UUID `json:"asset_id"`
	Action          string    `json:"action"`
	Technician      string    `json:"technician"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// WorkLogDraft carries caller-supplied fields for a new work log.
type WorkLogDraft struct {
	AssetID         uuid.UUID `json:"asset_id"`
	Action          string    `json:"action"`
	Technician      string    `json:"technician"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes,omitempty"`
}

// Page is one page of a search.
type Page struct {
	Items      []Asset `json:"items"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	Size       int     `json:"size"`
	TotalPages int     `json:"total_pages"`
}
