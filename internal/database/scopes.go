package database

import (
	"gorm.io/gorm"
)

// WithDeleted lifts the soft-delete filter when include is true.
func WithDeleted(include bool) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if include {
			return db.Unscoped()
		}
		return db
	}
}

// Unscoped is a preload condition that resolves soft-deleted relations.
func Unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// Newest orders rows of table by creation time, newest first. The id breaks
// ties between rows created within the same clock tick.
func Newest(table string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(table + ".created_at DESC").Order(table + ".id DESC")
	}
}
