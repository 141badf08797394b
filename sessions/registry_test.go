package sessions_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/NivethaMadhavan/Attendance/config"
	"github.com/NivethaMadhavan/Attendance/models"
	"github.com/NivethaMadhavan/Attendance/sessions"
)

// fakeStore is an in-memory sessions.Store with injectable failures.
type fakeStore struct {
	mu         sync.Mutex
	records    []models.AttendanceRecord
	insertErr  error
	claimedErr error
}

func (f *fakeStore) InsertAttendance(_ context.Context, record *models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, r := range f.records {
		if r.SessionID == record.SessionID && r.DeviceID == record.DeviceID {
			return sessions.ErrDuplicateRecord
		}
	}
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeStore) DeviceAlreadyClaimed(_ context.Context, sessionID, deviceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimedErr != nil {
		return false, f.claimedErr
	}
	for _, r := range f.records {
		if r.SessionID == sessionID && r.DeviceID == deviceID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:         ":0",
		DatabasePath:     "unused",
		RotationInterval: time.Hour, // never ticks during a test
		ValidityWindow:   30 * time.Second,
		MatchPolicy:      config.PolicyWindowed,
		TokenMode:        config.TokenModeCounter,
		IdentitySource:   config.IdentityFingerprint,
	}
}

// testClock is an adjustable clock for WithNowTime.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry(t *testing.T, cfg *config.Config) (*sessions.Registry, *fakeStore, *testClock) {
	t.Helper()
	store := &fakeStore{}
	clock := newTestClock()
	reg := sessions.NewRegistry(cfg, store, sessions.WithNowTime(clock.Now))
	t.Cleanup(reg.CloseAll)
	return reg, store, clock
}

func claimFor(token, device string) models.Claim {
	return models.Claim{
		Token:    token,
		DeviceID: device,
		Payload:  models.Payload{Name: "John Doe", SRN: "PES1201800001"},
	}
}

func TestSubmitAcceptThenDuplicate(t *testing.T) {
	reg, store, _ := newTestRegistry(t, testConfig())
	sess := reg.Open("S1")
	token := sess.CurrentToken()
	require.Equal(t, "0", token.Value)

	outcome, err := reg.Submit(context.Background(), "S1", claimFor(token.Value, "D1"))
	require.NoError(t, err)
	require.Equal(t, models.Accepted, outcome)
	require.Equal(t, 1, store.count())

	outcome, err = reg.Submit(context.Background(), "S1", claimFor(token.Value, "D1"))
	require.NoError(t, err)
	require.Equal(t, models.RejectedDuplicateDevice, outcome)
	require.Equal(t, 1, store.count())
}

func TestSubmitUnknownSession(t *testing.T) {
	reg, _, _ := newTestRegistry(t, testConfig())

	_, err := reg.Submit(context.Background(), "nope", claimFor("0", "D1"))
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestSubmitMalformed(t *testing.T) {
	reg, store, _ := newTestRegistry(t, testConfig())
	sess := reg.Open("S1")
	token := sess.CurrentToken()

	// Missing device identity while anonymous submissions are off.
	outcome, err := reg.Submit(context.Background(), "S1", claimFor(token.Value, ""))
	require.NoError(t, err)
	require.Equal(t, models.RejectedMalformed, outcome)

	// Counter-mode token values must be numeric.
	outcome, err = reg.Submit(context.Background(), "S1", claimFor("not-a-number", "D1"))
	require.NoError(t, err)
	require.Equal(t, models.RejectedMalformed, outcome)

	require.Equal(t, 0, store.count())
}

func TestSubmitAnonymousAllowed(t *testing.T) {
	cfg := testConfig()
	cfg.AllowAnonymous = true
	reg, store, _ := newTestRegistry(t, cfg)
	sess := reg.Open("S1")
	token := sess.CurrentToken()

	for i := 0; i < 2; i++ {
		outcome, err := reg.Submit(context.Background(), "S1", claimFor(token.Value, ""))
		require.NoError(t, err)
		require.Equal(t, models.Accepted, outcome)
	}
	require.Equal(t, 2, store.count())
}

func TestStorageFailureReleasesDevice(t *testing.T) {
	reg, store, _ := newTestRegistry(t, testConfig())
	sess := reg.Open("S1")
	token := sess.CurrentToken()

	store.insertErr = errors.New("disk full")
	_, err := reg.Submit(context.Background(), "S1", claimFor(token.Value, "D1"))
	require.Error(t, err)
	require.False(t, sess.DeviceClaimed("D1"))

	// The same claim must be able to succeed on retry.
	store.insertErr = nil
	outcome, err := reg.Submit(context.Background(), "S1", claimFor(token.Value, "D1"))
	require.NoError(t, err)
	require.Equal(t, models.Accepted, outcome)
}

func TestDurableDuplicateCheckFailsClosed(t *testing.T) {
	reg, store, _ := newTestRegistry(t, testConfig())
	sess := reg.Open("S1")
	token := sess.CurrentToken()

	store.claimedErr = errors.New("database unreachable")
	_, err := reg.Submit(context.Background(), "S1", claimFor(token.Value, "D1"))
	require.Error(t, err)
	require.False(t, sess.DeviceClaimed("D1"))
	require.Equal(t, 0, store.count())
}

func TestDurableDuplicateAcrossRestart(t *testing.T) {
	reg, store, _ := newTestRegistry(t, testConfig())
	store.records = append(store.records, models.AttendanceRecord{SessionID: "S1", DeviceID: "D1"})

	sess := reg.Open("S1")
	outcome, err := reg.Submit(context.Background(), "S1", claimFor(sess.CurrentToken().Value, "D1"))
	require.NoError(t, err)
	require.Equal(t, models.RejectedDuplicateDevice, outcome)
	require.Equal(t, 1, store.count())
}

func TestReopenResetsSession(t *testing.T) {
	cfg := testConfig()
	cfg.TokenMode = config.TokenModeRandom
	reg, _, _ := newTestRegistry(t, cfg)

	first := reg.Open("S1")
	stale := first.CurrentToken()

	// Reopening the same ID replaces the session and issues a fresh token.
	second := reg.Open("S1")
	require.NotEqual(t, stale.Value, second.CurrentToken().Value)
	require.False(t, second.DeviceClaimed("D1"))

	outcome, err := reg.Submit(context.Background(), "S1", claimFor(stale.Value, "D1"))
	require.NoError(t, err)
	require.Equal(t, models.RejectedTokenMismatch, outcome)
}

func TestStaleCloserLeavesReplacementSessionOpen(t *testing.T) {
	reg, _, _ := newTestRegistry(t, testConfig())

	first := reg.Open("S1")
	second := reg.Open("S1")

	// The dashboard that owned the replaced session disconnects and closes
	// what it opened; the replacement must stay live and keep accepting.
	reg.CloseSession(first)

	got, ok := reg.Get("S1")
	require.True(t, ok)
	require.Same(t, second, got)

	outcome, err := reg.Submit(context.Background(), "S1", claimFor(second.CurrentToken().Value, "D1"))
	require.NoError(t, err)
	require.Equal(t, models.Accepted, outcome)

	// Closing the live session removes it.
	reg.CloseSession(second)
	_, ok = reg.Get("S1")
	require.False(t, ok)
}

func TestOpenReplacesStopsPriorTimer(t *testing.T) {
	cfg := testConfig()
	cfg.RotationInterval = 5 * time.Millisecond
	reg, _, _ := newTestRegistry(t, cfg)

	first := reg.Open("S1")
	reg.Open("S1")

	// The replaced session's rotator has been stopped; its token is frozen.
	time.Sleep(20 * time.Millisecond)
	frozen := first.CurrentToken()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, frozen, first.CurrentToken())
}

func TestConcurrentSameDeviceSingleAccept(t *testing.T) {
	reg, store, _ := newTestRegistry(t, testConfig())
	sess := reg.Open("S1")
	token := sess.CurrentToken()

	const attempts = 16
	outcomes := make(chan models.Outcome, attempts)
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := reg.Submit(context.Background(), "S1", claimFor(token.Value, "D1"))
			errs <- err
			outcomes <- outcome
		}()
	}
	wg.Wait()
	close(outcomes)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	accepted := 0
	for outcome := range outcomes {
		if outcome == models.Accepted {
			accepted++
		}
	}
	require.Equal(t, 1, accepted)
	require.Equal(t, 1, store.count())
}
