package sessions

import (
	"context"
	"errors"

	"github.com/NivethaMadhavan/Attendance/models"
)

// ErrDuplicateRecord is returned by Store implementations when a record for
// the same (sessionID, deviceID) pair already exists.
var ErrDuplicateRecord = errors.New("attendance record already exists")

// ErrSessionNotFound is returned when a submission references a session that
// is not open.
var ErrSessionNotFound = errors.New("session not found")

// Store is the persistence collaborator invoked on the accept path. Inserts
// must be idempotent per (sessionID, deviceID): a second insert for the same
// pair fails with ErrDuplicateRecord rather than creating a second row.
type Store interface {
	InsertAttendance(ctx context.Context, record *models.AttendanceRecord) error
	DeviceAlreadyClaimed(ctx context.Context, sessionID, deviceID string) (bool, error)
}

// Renderer produces the scannable image for a newly issued token. The core
// only supplies the session ID and token; rendering lives at the presentation
// layer. A rendering error aborts that rotation tick and leaves the previous
// token active.
type Renderer interface {
	Render(sessionID string, token models.Token) ([]byte, error)
}
