package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/NivethaMadhavan/Attendance/config"
	"github.com/NivethaMadhavan/Attendance/models"
)

// Registry maps session IDs to live sessions and owns their lifecycles. Open
// starts the rotation timer, Close stops it; submissions are orchestrated
// here (validate, persist, confirm) so that handlers stay thin and rejections
// never leave partial state.
type Registry struct {
	cfg      *config.Config
	store    Store
	renderer Renderer
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(nowFunc func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = nowFunc
	}
}

// WithRenderer sets the QR rendering collaborator used on each rotation tick.
func WithRenderer(renderer Renderer) RegistryOption {
	return func(r *Registry) {
		r.renderer = renderer
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *config.Config, store Store, options ...RegistryOption) *Registry {
	r := &Registry{
		cfg:      cfg,
		store:    store,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Open creates a session for the given ID, installs its baseline token and
// starts rotation. Opening an ID that is already open replaces the prior
// session after stopping its timer, so there is never more than one rotation
// timer per ID.
func (r *Registry) Open(sessionID string) *Session {
	sess := &Session{
		ID:       sessionID,
		gen:      generator{mode: r.cfg.TokenMode},
		policy:   r.cfg.MatchPolicy,
		window:   r.cfg.ValidityWindow,
		now:      r.now,
		renderer: r.renderer,
		devices:  newDeviceSet(),
	}
	sess.resetBaseline()

	r.mu.Lock()
	prior := r.sessions[sessionID]
	r.sessions[sessionID] = sess
	r.mu.Unlock()

	if prior != nil {
		prior.StopRotation()
		log.Info().Str("session", sessionID).Msg("replaced already-open session")
	}

	sess.StartRotation(r.cfg.RotationInterval)
	log.Info().Str("session", sessionID).Str("token", sess.CurrentToken().Value).Msg("opened attendance session")
	return sess
}

// Get returns the live session for an ID.
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	return sess, ok
}

// Close stops the session's rotation timer before dropping the reference, so
// a rotator never writes into state nobody will read.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if ok {
		sess.StopRotation()
		log.Info().Str("session", sessionID).Msg("closed attendance session")
	}
}

// CloseSession stops sess and removes it from the registry only if it is
// still the live session for its ID. A closer left over from a session that
// has since been replaced must not tear down the replacement.
func (r *Registry) CloseSession(sess *Session) {
	r.mu.Lock()
	live := r.sessions[sess.ID] == sess
	if live {
		delete(r.sessions, sess.ID)
	}
	r.mu.Unlock()

	sess.StopRotation()
	if live {
		log.Info().Str("session", sess.ID).Msg("closed attendance session")
	}
}

// CloseAll tears down every open session. Called on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, sess := range r.sessions {
		all = append(all, sess)
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	for _, sess := range all {
		sess.StopRotation()
	}
}

// Submit validates a claim and, on acceptance, persists the attendance
// record. The device reservation taken during validation is confirmed only
// after the record is durably written; any storage failure releases it so the
// same claim can be retried.
func (r *Registry) Submit(ctx context.Context, sessionID string, claim models.Claim) (models.Outcome, error) {
	if claim.DeviceID == "" && !r.cfg.AllowAnonymous {
		return models.RejectedMalformed, nil
	}

	sess, ok := r.Get(sessionID)
	if !ok {
		return models.RejectedMalformed, ErrSessionNotFound
	}

	now := r.now()
	outcome := sess.Validate(claim, now)
	if outcome != models.Accepted {
		log.Debug().Str("session", sessionID).Str("device", claim.DeviceID).Stringer("outcome", outcome).Msg("submission rejected")
		return outcome, nil
	}

	deviceID := claim.DeviceID
	if deviceID == "" {
		// Anonymous claims get a throwaway identity so the storage-level
		// uniqueness constraint never collides between two of them.
		deviceID = "anon-" + uuid.NewString()
	}

	// Durable duplicate check: catches devices that claimed under a prior
	// process for the same session ID. Errors fail closed.
	if claim.DeviceID != "" {
		claimed, err := r.store.DeviceAlreadyClaimed(ctx, sessionID, claim.DeviceID)
		if err != nil {
			sess.ReleaseDevice(claim.DeviceID)
			return models.RejectedDuplicateDevice, errors.Wrap(err, "durable duplicate check")
		}
		if claimed {
			sess.ConfirmDevice(claim.DeviceID)
			return models.RejectedDuplicateDevice, nil
		}
	}

	record := &models.AttendanceRecord{
		SessionID: sessionID,
		DeviceID:  deviceID,
		Token:     claim.Token,
		Name:      claim.Payload.Name,
		SRN:       claim.Payload.SRN,
		Note:      claim.Payload.Note,
	}
	if err := r.store.InsertAttendance(ctx, record); err != nil {
		if claim.DeviceID != "" {
			if errors.Is(err, ErrDuplicateRecord) {
				sess.ConfirmDevice(claim.DeviceID)
				return models.RejectedDuplicateDevice, nil
			}
			sess.ReleaseDevice(claim.DeviceID)
		}
		return outcome, errors.Wrap(err, "insert attendance")
	}

	if claim.DeviceID != "" {
		sess.ConfirmDevice(claim.DeviceID)
	}
	log.Info().Str("session", sessionID).Str("device", deviceID).Str("name", claim.Payload.Name).Msg("attendance accepted")
	return models.Accepted, nil
}
