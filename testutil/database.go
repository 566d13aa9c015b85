package testutil

import (
	"fmt"

	"gorm.io/gorm"
)

// DBHelper bundles the recurring database chores of integration tests.
type DBHelper struct {
	DB *gorm.DB
}

// NewDBHelper creates a helper over one gorm instance.
func NewDBHelper(db *gorm.DB) *DBHelper {
	return &DBHelper{DB: db}
}

func (h *DBHelper) count(tableName string, conds func(*gorm.DB) *gorm.DB) (int64, error) {
	var n int64
	q := h.DB.Table(tableName)
	if conds != nil {
		q = conds(q)
	}
	err := q.Count(&n).Error
	return n, err
}

// Count counts rows, excluding soft-deleted ones.
func (h *DBHelper) Count(tableName string) (int64, error) {
	return h.count(tableName, func(q *gorm.DB) *gorm.DB {
		return q.Where("deleted_at IS NULL")
	})
}

// CountWhere counts rows matching the condition.
func (h *DBHelper) CountWhere(tableName string, where string, args ...interface{}) (int64, error) {
	return h.count(tableName, func(q *gorm.DB) *gorm.DB {
		return q.Where(where, args...)
	})
}

// Exists reports whether a matching row exists.
func (h *DBHelper) Exists(tableName string, where string, args ...interface{}) (bool, error) {
	n, err := h.CountWhere(tableName, where, args...)
	return n > 0, err
}

// Seed inserts one record or struct slice.
func (h *DBHelper) Seed(data interface{}) error {
	return h.DB.Create(data).Error
}

// SeedMultiple inserts in batches of 100.
func (h *DBHelper) SeedMultiple(data interface{}) error {
	return h.DB.CreateInBatches(data, 100).Error
}

// FindOne loads the first matching record into dest.
func (h *DBHelper) FindOne(dest interface{}, where string, args ...interface{}) error {
	return h.DB.Where(where, args...).First(dest).Error
}

// FindAll loads every record of the table into dest.
func (h *DBHelper) FindAll(dest interface{}, tableName string) error {
	return h.DB.Table(tableName).Find(dest).Error
}

// DeleteAll removes every row without resetting auto increment. Works
// on every dialect, so prefer it in SQLite-backed tests.
func (h *DBHelper) DeleteAll(tableName string) error {
	return h.DB.Exec(fmt.Sprintf("DELETE FROM %s", tableName)).Error
}

// TruncateTable empties a table, resetting auto increment. MySQL only,
// it toggles FOREIGN_KEY_CHECKS around the truncate.
func (h *DBHelper) TruncateTable(tableName string) error {
	stmts := []string{
		"SET FOREIGN_KEY_CHECKS = 0",
		fmt.Sprintf("TRUNCATE TABLE %s", tableName),
		"SET FOREIGN_KEY_CHECKS = 1",
	}
	for _, stmt := range stmts {
		if err := h.DB.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// TruncateTables empties several tables.
func (h *DBHelper) TruncateTables(tableNames ...string) error {
	for _, table := range tableNames {
		if err := h.TruncateTable(table); err != nil {
			return err
		}
	}
	return nil
}
