package database

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/NivethaMadhavan/Attendance/models"
	"github.com/NivethaMadhavan/Attendance/sessions"
)

// InsertAttendance writes one accepted claim. Inserts are idempotent per
// (sessionID, deviceID): a second insert for the same pair returns
// sessions.ErrDuplicateRecord, enforced by the composite unique index.
func (s *Store) InsertAttendance(ctx context.Context, record *models.AttendanceRecord) error {
	err := s.db.WithContext(ctx).Create(record).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrapf(sessions.ErrDuplicateRecord, "session %s device %s", record.SessionID, record.DeviceID)
	}
	return errors.Wrap(err, "insert attendance record")
}

// DeviceAlreadyClaimed reports whether a device already has a record for the
// session. Used as a durable duplicate check across process restarts.
func (s *Store) DeviceAlreadyClaimed(ctx context.Context, sessionID, deviceID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("session_id = ? AND device_id = ?", sessionID, deviceID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check claimed device")
	}
	return count > 0, nil
}

// ListAttendance returns the accepted records for a session, oldest first.
func (s *Store) ListAttendance(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "list attendance records")
	}
	return records, nil
}
