package models

import "gorm.io/gorm"

// AttendanceRecord is the durable artifact created when a claim is accepted.
// The composite unique index enforces one record per device per session at the
// storage layer, in addition to the in-memory duplicate check.
type AttendanceRecord struct {
	gorm.Model
	SessionID string `json:"sessionID" gorm:"uniqueIndex:idx_session_device"`
	DeviceID  string `json:"deviceID" gorm:"uniqueIndex:idx_session_device"`
	Token     string `json:"token"`
	Name      string `json:"name"`
	SRN       string `json:"SRN"`
	Note      string `json:"note"`
}
