// Package database is the persistence collaborator: a single attendance table
// keyed by (session_id, device_id) with a uniqueness constraint backing up the
// in-memory duplicate suppression.
package database

import (
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/NivethaMadhavan/Attendance/models"
)

// Store wraps the gorm handle. It implements sessions.Store.
type Store struct {
	db *gorm.DB
}

// Connect opens the sqlite database at path and runs migrations.
func Connect(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open attendance database")
	}
	if err := db.AutoMigrate(&models.AttendanceRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate attendance schema")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
