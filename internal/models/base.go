package models

import (
	"time"

	"gorm.io/gorm"
)

// SoftDeletable carries the bookkeeping timestamps shared by every entity.
// A row with DeletedAt set is hidden from default queries but keeps its
// foreign keys valid.
type SoftDeletable struct {
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s SoftDeletable) IsDeleted() bool {
	return s.DeletedAt.Valid
}

// DeletedAtTime returns the deletion timestamp or nil for active rows.
func (s SoftDeletable) DeletedAtTime() *time.Time {
	if !s.DeletedAt.Valid {
		return nil
	}
	t := s.DeletedAt.Time
	return &t
}

// DateOf truncates t to midnight UTC of its calendar day. Deadlines are
// stored and compared in this form.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
