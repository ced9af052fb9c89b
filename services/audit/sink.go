package audit

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Entry is one row of the audit trail.
type Entry struct {
	ID      int64          `json:"id"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"`
	Obj     string         `json:"obj"`
	Details map[string]any `json:"details"`
	At      time.Time      `json:"at"`
}

// Sink stores audit entries.
type Sink interface {
	// PreviousSnapshot returns the snapshot recorded by the latest entry for
	// obj, or an empty map when there is none.
	PreviousSnapshot(ctx context.Context, obj string) (map[string]any, error)
	Insert(ctx context.Context, e Entry) error
}

// GormSink keeps the audit trail in the audit table.
type GormSink struct {
	orm *gorm.DB
}

func NewGormSink(orm *gorm.DB) (*GormSink, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	return &GormSink{orm: orm}, nil
}

func (s *GormSink) PreviousSnapshot(ctx context.Context, obj string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var model auditModel
	err := s.orm.WithContext(ctx).
		Where("obj = ?", obj).
		Order("at DESC").
		Order("id DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}

	snapshot, ok := model.Details[snapshotKey].(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return snapshot, nil
}

func (s *GormSink) Insert(ctx context.Context, e Entry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	model := auditModel{
		Actor:   e.Actor,
		Action:  e.Action,
		Obj:     e.Obj,
		Details: toJSONMap(e.Details),
		At:      e.At,
	}
	return s.orm.WithContext(ctx).Create(&model).Error
}

// List returns the entries recorded for obj, oldest first.
func (s *GormSink) List(ctx context.Context, obj string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var models []auditModel
	if err := s.orm.WithContext(ctx).Where("obj = ?", obj).Order("at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(models))
	for _, m := range models {
		out = append(out, m.toEntry())
	}
	return out, nil
}
