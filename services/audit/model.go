package audit

import (
	"time"

	"gorm.io/datatypes"
)

type auditModel struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	Actor   string `gorm:"not null"`
	Action  string `gorm:"not null"`
	Obj     string `gorm:"index"`
	Details datatypes.JSONMap
	At      time.Time `gorm:"not null"`
}

func (auditModel) TableName() string { return "audit" }

func (m auditModel) toEntry() Entry {
	return Entry{
		ID:      m.ID,
		Actor:   m.Actor,
		Action:  m.Action,
		Obj:     m.Obj,
		Details: mapFromJSONMap(m.Details),
		At:      m.At,
	}
}

func mapFromJSONMap(src datatypes.JSONMap) map[string]any {
	if src == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func toJSONMap(src map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range src {
		out[k] = v
	}
	return out
}
