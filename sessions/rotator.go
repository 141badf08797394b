package sessions

import (
	"time"

	"github.com/rs/zerolog/log"
)

// StartRotation begins replacing the active token every interval. A session
// has at most one rotation timer: starting while one is running stops it
// first.
func (s *Session) StartRotation(interval time.Duration) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	s.stopLocked()
	stop := make(chan struct{})
	s.stopCh = stop
	go s.rotateLoop(interval, stop)
}

// StopRotation cancels the rotation timer. Safe to call on a session that is
// not rotating.
func (s *Session) StopRotation() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	s.stopLocked()
}

// RestartRotation stops the timer, resets the token counter to its baseline
// and clears claimed devices, then starts a fresh timer. This is the teacher
// switching class mid-session.
func (s *Session) RestartRotation(interval time.Duration) {
	s.timerMu.Lock()
	s.stopLocked()
	s.timerMu.Unlock()

	s.resetBaseline()
	s.StartRotation(interval)
}

func (s *Session) stopLocked() {
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
}

func (s *Session) rotateLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.rotate()
		}
	}
}

// rotate issues the next token. Rendering happens before the new token is
// installed: if the renderer fails, the tick is abandoned and the previous
// token stays active until the next successful tick.
func (s *Session) rotate() {
	s.mu.Lock()
	candidate := s.gen.next(s.active, s.counter, s.now())
	epoch := s.epoch
	s.mu.Unlock()

	var image []byte
	if s.renderer != nil {
		var err error
		image, err = s.renderer.Render(s.ID, candidate)
		if err != nil {
			log.Error().Err(err).Str("session", s.ID).Msg("token rotation: render failed, keeping previous token")
			return
		}
	}

	listener, ok := s.install(candidate, epoch)
	if !ok {
		return
	}
	log.Debug().Str("session", s.ID).Str("token", candidate.Value).Msg("rotated attendance token")
	if listener != nil {
		listener(candidate, image)
	}
}
