package migrations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Schema snapshots used by migrations. They are frozen copies of the
// repository models so later model changes don't rewrite history.

type Asset struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Code         string     `gorm:"type:text;not null;uniqueIndex"`
	Name         string     `gorm:"type:text;not null;index"`
	Model        string     `gorm:"type:text"`
	SerialNumber string     `gorm:"type:text"`
	Brand        string     `gorm:"type:text"`
	Location     string     `gorm:"type:text"`
	AssetType    string     `gorm:"type:text"`
	ManualRef    string     `gorm:"type:text;not null"`
	QRLocator    *string    `gorm:"type:text"`
	QRState      string     `gorm:"type:text;not null;default:'pending';index"`
	InstalledAt  time.Time  `gorm:"type:timestamptz;not null"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	QRAttachedAt *time.Time `gorm:"type:timestamptz"`
}

type WorkLog struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	AssetID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Action          string    `gorm:"type:text;not null"`
	Technician      string    `gorm:"type:text;not null"`
	DurationMinutes int       `gorm:"type:integer;not null;default:0"`
	Notes           string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime;index"`
	Asset           Asset     `gorm:"foreignKey:AssetID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (WorkLog) TableName() string { return "work_logs" }

type Audit struct {
	ID      int64             `gorm:"type:bigserial;primaryKey"`
	Actor   string            `gorm:"type:text;not null"`
	Action  string            `gorm:"type:text;not null"`
	Obj     string            `gorm:"type:text;index"`
	Details datatypes.JSONMap `gorm:"type:jsonb"`
	At      time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

func (Audit) TableName() string { return "audit" }
