package assets

import (
	"time"

	"github.com/google/uuid"
)

type assetModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code         string    `gorm:"not null;uniqueIndex"`
	Name         string    `gorm:"not null"`
	Model        string
	SerialNumber string
	Brand        string
	Location     string
	AssetType    string
	ManualRef    string  `gorm:"not null"`
	QRLocator    *string `gorm:"column:qr_locator"`
	QRState      string  `gorm:"column:qr_state;not null;index"`
	InstalledAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	QRAttachedAt *time.Time `gorm:"column:qr_attached_at"`
}

func (assetModel) TableName() string { return "assets" }

func (m assetModel) toAPI() Asset {
	a := Asset{
		ID:           m.ID,
		Code:         m.Code,
		Name:         m.Name,
		Model:        m.Model,
		SerialNumber: m.SerialNumber,
		Brand:        m.Brand,
		Location:     m.Location,
		AssetType:    m.AssetType,
		ManualRef:    m.ManualRef,
		QRState:      QRState(m.QRState),
		InstalledAt:  m.InstalledAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.QRLocator != nil {
		a.QRLocator = *m.QRLocator
	}
	return a
}

func assetModelFrom(a Asset) assetModel {
	m := assetModel{
		ID:           a.ID,
		Code:         a.Code,
		Name:         a.Name,
		Model:        a.Model,
		SerialNumber: a.SerialNumber,
		Brand:        a.Brand,
		Location:     a.Location,
		AssetType:    a.AssetType,
		ManualRef:    a.ManualRef,
		QRState:      string(a.QRState),
		InstalledAt:  a.InstalledAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.QRLocator != "" {
		locator := a.QRLocator
		m.QRLocator = &locator
	}
	return m
}

type workLogModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	AssetID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Action          string    `gorm:"not null"`
	Technician      string    `gorm:"not null"`
	DurationMinutes int       `gorm:"not null"`
	Notes           string
	CreatedAt       time.Time `gorm:"index"`
}

func (workLogModel) TableName() string { return "work_logs" }

func (m workLogModel) toAPI() WorkLog {
	return WorkLog{
		ID:              m.ID,
		AssetID:         m.AssetID,
		Action:          m.Action,
		Technician:      m.Technician,
		DurationMinutes: m.DurationMinutes,
		Notes:           m.Notes,
		CreatedAt:       m.CreatedAt,
	}
}
