package sessions

import (
	"time"

	"github.com/NivethaMadhavan/Attendance/config"
	"github.com/NivethaMadhavan/Attendance/models"
)

// Validate checks a claim against the session's current token and replay
// history. On Accepted the claim's device identity is reserved; the caller
// must either ConfirmDevice after the record persists or ReleaseDevice if the
// write fails. Rejections leave no state behind.
//
// The duplicate check and the reservation happen in one critical section per
// session, so two concurrent claims from the same device cannot both pass.
func (s *Session) Validate(claim models.Claim, now time.Time) models.Outcome {
	if !s.gen.parseable(claim.Token) {
		return models.RejectedMalformed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if outcome := s.evaluateToken(claim, now); outcome != models.Accepted {
		return outcome
	}

	if claim.DeviceID != "" {
		if !s.devices.reserve(claim.DeviceID) {
			return models.RejectedDuplicateDevice
		}
	}
	return models.Accepted
}

// evaluateToken applies the configured match policy. Callers hold s.mu.
func (s *Session) evaluateToken(claim models.Claim, now time.Time) models.Outcome {
	if s.policy == config.PolicyExact {
		if claim.Token != s.active.Value {
			return models.RejectedTokenMismatch
		}
		return models.Accepted
	}

	// Windowed policy: the current token always matches; the previous token
	// is honored for validityWindow after the rotation that replaced it.
	nowMs := now.UnixMilli()
	windowMs := s.window.Milliseconds()
	switch claim.Token {
	case s.active.Value:
	case s.previous.Value:
		if s.previous.Value == "" || nowMs-s.active.IssuedAt > windowMs {
			return models.RejectedTokenMismatch
		}
	default:
		return models.RejectedTokenMismatch
	}

	// A matching value can still be stale when the page sat open too long
	// (clock-skew and stale-tab cases). Boundary is inclusive at the window.
	if claim.Timestamp != 0 && nowMs-claim.Timestamp > windowMs {
		return models.RejectedExpired
	}
	return models.Accepted
}
