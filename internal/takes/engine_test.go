package takes

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takeshq/takes/internal/config"
	"github.com/takeshq/takes/internal/models"
	"github.com/takeshq/takes/internal/store"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	msgs []Message
	err  error
	seq  int
}

func (f *fakeNotifier) PostMessage(msg Message) (string, error) {
	f.msgs = append(f.msgs, msg)
	if f.err != nil {
		return "", f.err
	}
	f.seq++
	return fmt.Sprintf("1710000000.%06d", f.seq), nil
}

func (f *fakeNotifier) last() Message {
	return f.msgs[len(f.msgs)-1]
}

func testConfig() config.TakesConfig {
	return config.TakesConfig{
		DefaultDurationMinutes: 60,
		MaxPauseDuration:       120,
		PauseExpirationWarning: 15,
		LowTimeWarning:         5,
		SweepInterval:          time.Minute,
		UploadWindowHours:      24,
	}
}

func newTestEngine(t *testing.T) (*Engine, *store.Store, *fakeNotifier, *TestClock) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "takes.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	notifier := &fakeNotifier{}
	clock := &TestClock{CurrentTime: t0}
	engine := New(s, notifier, testConfig(), clock, zerolog.Nop())
	return engine, s, notifier, clock
}

func TestStart(t *testing.T) {
	engine, s, _, _ := newTestEngine(t)

	take, err := engine.Start("U1", 25, "short film")
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, take.Status)
	assert.Equal(t, 25, take.DurationMinutes)
	assert.Equal(t, "short film", take.Description)
	assert.True(t, take.StartedAt.Equal(t0))

	ps, err := take.Periods()
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.True(t, ps[0].Start.Equal(t0))
	assert.Nil(t, ps[0].End)

	// second start fails and creates no second row
	_, err = engine.Start("U1", 10, "")
	assert.ErrorIs(t, err, ErrSessionAlreadyOpen)

	active, err := s.FindByStatus(models.StatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestStartDefaultDuration(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	take, err := engine.Start("U1", 0, "")
	require.NoError(t, err)
	assert.Equal(t, 60, take.DurationMinutes)
}

func TestPauseResumeAccounting(t *testing.T) {
	engine, _, _, clock := newTestEngine(t)

	_, err := engine.Start("U1", 60, "")
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	paused, err := engine.Pause("U1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, paused.Status)
	require.NotNil(t, paused.PausedAt)
	assert.True(t, paused.PausedAt.Equal(clock.Now()))

	ps, err := paused.Periods()
	require.NoError(t, err)
	require.Len(t, ps, 1)
	require.NotNil(t, ps[0].End)

	clock.Advance(5 * time.Minute)
	resumed, err := engine.Resume("U1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, resumed.Status)
	assert.Nil(t, resumed.PausedAt)
	assert.Equal(t, (5 * time.Minute).Milliseconds(), resumed.PausedTimeMs)

	ps, err = resumed.Periods()
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Nil(t, ps[1].End)

	// pausing extends the deadline by the paused duration
	assert.True(t, resumed.EndTime().Equal(t0.Add(65*time.Minute)))
}

func TestResumeThenImmediatePause(t *testing.T) {
	engine, _, _, clock := newTestEngine(t)

	_, err := engine.Start("U1", 60, "")
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	_, err = engine.Pause("U1")
	require.NoError(t, err)

	clock.Advance(3 * time.Minute)
	resumed, err := engine.Resume("U1")
	require.NoError(t, err)
	pausedMs := resumed.PausedTimeMs

	// zero wall time between resume and pause
	paused, err := engine.Pause("U1")
	require.NoError(t, err)
	assert.Equal(t, pausedMs, paused.PausedTimeMs)

	ps, err := paused.Periods()
	require.NoError(t, err)
	require.Len(t, ps, 2)
	require.NotNil(t, ps[1].End)
	assert.Equal(t, time.Duration(0), ps[1].End.Sub(ps[1].Start))
}

func TestLifecyclePreconditions(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	_, err := engine.Pause("U1")
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = engine.Resume("U1")
	assert.ErrorIs(t, err, ErrNoPausedSession)

	_, err = engine.Stop("U1", "")
	assert.ErrorIs(t, err, ErrNoOpenSession)

	// a paused session cannot be paused again
	_, err = engine.Start("U1", 30, "")
	require.NoError(t, err)
	_, err = engine.Pause("U1")
	require.NoError(t, err)
	_, err = engine.Pause("U1")
	assert.ErrorIs(t, err, ErrNoActiveSession)

	// an active session cannot be resumed
	_, err = engine.Resume("U1")
	require.NoError(t, err)
	_, err = engine.Resume("U1")
	assert.ErrorIs(t, err, ErrNoPausedSession)
}

func TestStopActiveSession(t *testing.T) {
	engine, s, notifier, clock := newTestEngine(t)

	_, err := engine.Start("U1", 60, "documentary")
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	take, err := engine.Stop("U1", "wrapped early")
	require.NoError(t, err)

	assert.Equal(t, models.StatusWaitingUpload, take.Status)
	assert.Equal(t, int64(600000), take.ElapsedTimeMs)
	assert.Equal(t, "wrapped early", take.Notes)
	require.NotNil(t, take.CompletedAt)
	assert.True(t, take.CompletedAt.Equal(clock.Now()))

	// the thread anchor comes from the posted message
	require.Len(t, notifier.msgs, 1)
	assert.Equal(t, "U1", notifier.last().Channel)
	assert.Contains(t, notifier.last().Context, "10m")
	assert.Contains(t, notifier.last().Context, "documentary")
	assert.NotEmpty(t, take.TS)

	// elapsed time lands on the user's running total
	user, err := s.GetUser("U1")
	require.NoError(t, err)
	assert.Equal(t, int64(600000), user.TotalTakesTime)
}

func TestStopPausedSession(t *testing.T) {
	engine, _, notifier, clock := newTestEngine(t)

	_, err := engine.Start("U1", 60, "")
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	_, err = engine.Pause("U1")
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	take, err := engine.Stop("U1", "")
	require.NoError(t, err)

	// only active time counts
	assert.Equal(t, (20 * time.Minute).Milliseconds(), take.ElapsedTimeMs)
	assert.Contains(t, notifier.last().Text, "paused takes session has been completed")
}

func TestStopSurvivesNotificationFailure(t *testing.T) {
	engine, s, notifier, clock := newTestEngine(t)
	notifier.err = errors.New("slack is down")

	_, err := engine.Start("U1", 60, "")
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	take, err := engine.Stop("U1", "")
	require.NoError(t, err)

	// mutation persisted despite the failed send
	assert.Equal(t, models.StatusWaitingUpload, take.Status)
	assert.Empty(t, take.TS)

	waiting, err := s.FindByStatus(models.StatusWaitingUpload)
	require.NoError(t, err)
	assert.Len(t, waiting, 1)
}
