package database

import (
	"time"

	"gorm.io/gorm"
)

// SoftDelete stamps deleted_at on the row with the given id. Only that column
// is written. Deleting an already deleted row refreshes the timestamp.
func SoftDelete(db *gorm.DB, model interface{}, id uint64, at time.Time) error {
	result := db.Unscoped().Model(model).Where("id = ?", id).UpdateColumn("deleted_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDeleteWhere stamps every active row matching the condition and returns
// the number of rows touched.
func SoftDeleteWhere(db *gorm.DB, model interface{}, at time.Time, query interface{}, args ...interface{}) (int64, error) {
	result := db.Model(model).Where(query, args...).UpdateColumn("deleted_at", at)
	return result.RowsAffected, result.Error
}

// Restore clears deleted_at on the row with the given id. Only that column is
// written.
func Restore(db *gorm.DB, model interface{}, id uint64) error {
	result := db.Unscoped().Model(model).Where("id = ?", id).UpdateColumn("deleted_at", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
