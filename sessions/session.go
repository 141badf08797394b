package sessions

import (
	"sync"
	"time"

	"github.com/NivethaMadhavan/Attendance/models"
)

// TokenListener receives each token as it becomes active, together with its
// rendered QR image (nil when no renderer is configured).
type TokenListener func(token models.Token, image []byte)

// Session is one teacher-initiated attendance period. The token counter and
// rotation state are fields of the session, never process-wide globals, so
// two open sessions cannot interfere with each other.
type Session struct {
	ID string

	gen      generator
	policy   string
	window   time.Duration
	now      func() time.Time
	renderer Renderer

	mu       sync.Mutex
	active   models.Token
	previous models.Token
	counter  uint64
	epoch    uint64
	devices  *deviceSet
	listener TokenListener

	timerMu sync.Mutex
	stopCh  chan struct{}
}

// CurrentToken returns a consistent (value, issuedAt) snapshot of the active
// token.
func (s *Session) CurrentToken() models.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Notify registers the display listener. Only one listener per session; the
// teacher dashboard socket owns it.
func (s *Session) Notify(fn TokenListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = fn
}

// DeviceClaimed reports whether the device already claimed or holds a pending
// reservation for this session.
func (s *Session) DeviceClaimed(deviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devices.has(deviceID)
}

// ConfirmDevice promotes a reservation to a permanent claim after the
// attendance record has been persisted.
func (s *Session) ConfirmDevice(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices.confirm(deviceID)
}

// ReleaseDevice drops a reservation after a failed persistence write so that
// a retry with the same claim can succeed.
func (s *Session) ReleaseDevice(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices.release(deviceID)
}

// install atomically replaces the active token, archiving the previous value
// for the grace window, and returns the registered listener. The epoch guards
// against a tick that was already in flight when the session was reset: its
// stale candidate is dropped instead of overwriting the fresh baseline.
func (s *Session) install(tok models.Token, epoch uint64) (TokenListener, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return nil, false
	}
	s.previous = s.active
	s.active = tok
	s.counter++
	return s.listener, true
}

// resetBaseline reinstalls the baseline token and clears rotation history and
// claimed devices. Used when a session restarts for a new class period.
func (s *Session) resetBaseline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.counter = 0
	s.active = s.gen.next(models.Token{}, s.counter, s.now())
	s.counter++
	s.previous = models.Token{}
	s.devices = newDeviceSet()
}
