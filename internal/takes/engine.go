package takes

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/takeshq/takes/internal/config"
	"github.com/takeshq/takes/internal/metrics"
	"github.com/takeshq/takes/internal/models"
	"github.com/takeshq/takes/internal/periods"
	"github.com/takeshq/takes/internal/store"
)

var (
	// ErrSessionAlreadyOpen means the user already has an active or paused take.
	ErrSessionAlreadyOpen = errors.New("a takes session is already open")
	// ErrNoActiveSession means pause found nothing to pause.
	ErrNoActiveSession = errors.New("no active takes session")
	// ErrNoPausedSession means resume found nothing to resume.
	ErrNoPausedSession = errors.New("no paused takes session")
	// ErrNoOpenSession means stop found nothing to stop.
	ErrNoOpenSession = errors.New("no open takes session")
)

// Message is one outbound notification. Context, when set, is rendered as
// a secondary context line under the main text.
type Message struct {
	Channel string
	Text    string
	Context string
}

// Notifier delivers outbound messages to the messaging gateway.
// PostMessage returns the timestamp of the posted message, which anchors
// the upload thread.
type Notifier interface {
	PostMessage(msg Message) (ts string, err error)
}

// Engine drives the take lifecycle: start, pause, resume, stop, and the
// two sweep passes. One engine serves all users; each operation works on
// the caller's single open take.
type Engine struct {
	store    *store.Store
	notifier Notifier
	cfg      config.TakesConfig
	clock    Clock
	logger   zerolog.Logger
}

// New constructs an engine. A nil clock means system time.
func New(s *store.Store, n Notifier, cfg config.TakesConfig, clock Clock, logger zerolog.Logger) *Engine {
	if clock == nil {
		clock = RealClock{}
	}
	return &Engine{
		store:    s,
		notifier: n,
		cfg:      cfg,
		clock:    clock,
		logger:   logger.With().Str("component", "takes-engine").Logger(),
	}
}

// Now exposes the engine's clock so presentation code stays on the same
// time source as the lifecycle.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Start creates a new active take for the user. durationMinutes of zero or
// less falls back to the configured default.
func (e *Engine) Start(userID string, durationMinutes int, description string) (*models.Take, error) {
	open, err := e.store.FindOpenByUser(userID, models.StatusActive, models.StatusPaused)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrSessionAlreadyOpen
	}

	if durationMinutes <= 0 {
		durationMinutes = e.cfg.DefaultDurationMinutes
	}

	if _, err := e.store.GetOrCreateUser(userID); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	take := &models.Take{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          models.StatusActive,
		StartedAt:       now,
		DurationMinutes: durationMinutes,
		Description:     description,
		Multiplier:      "1.0",
	}
	if err := take.SetPeriods([]periods.Period{{Start: now}}); err != nil {
		return nil, err
	}
	if err := take.SetMedia(nil); err != nil {
		return nil, err
	}

	if err := e.store.InsertTake(take); err != nil {
		return nil, err
	}

	metrics.SessionsStarted.Inc()
	e.logger.Info().
		Str("user", userID).
		Str("take", take.ID).
		Int("duration_minutes", durationMinutes).
		Msg("Session started")

	return take, nil
}

// Pause closes the open period and parks the take.
func (e *Engine) Pause(userID string) (*models.Take, error) {
	take, err := e.store.FindOpenByUser(userID, models.StatusActive)
	if err != nil {
		return nil, err
	}
	if take == nil {
		return nil, ErrNoActiveSession
	}

	now := e.clock.Now()
	ps, err := take.Periods()
	if err != nil {
		return nil, err
	}
	ps = periods.CloseOpen(ps, now)
	periodsJSON, err := models.MarshalPeriods(ps)
	if err != nil {
		return nil, err
	}

	err = e.store.UpdateTakeIfStatus(take.ID, models.StatusActive, map[string]any{
		"status":    models.StatusPaused,
		"periods":   periodsJSON,
		"paused_at": now,
	})
	if errors.Is(err, store.ErrStatusConflict) || errors.Is(err, store.ErrNotFound) {
		// The sweep finalized it between our read and write.
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}

	take.Status = models.StatusPaused
	take.PeriodsJSON = periodsJSON
	take.PausedAt = &now

	e.logger.Info().Str("user", userID).Str("take", take.ID).Msg("Session paused")
	return take, nil
}

// Resume reopens a paused take: appends a fresh period, adds the pause
// episode to the accumulated paused time, and rearms the pause-expiry
// warning.
func (e *Engine) Resume(userID string) (*models.Take, error) {
	take, err := e.store.FindOpenByUser(userID, models.StatusPaused)
	if err != nil {
		return nil, err
	}
	if take == nil {
		return nil, ErrNoPausedSession
	}

	now := e.clock.Now()
	ps, err := take.Periods()
	if err != nil {
		return nil, err
	}
	ps = append(ps, periods.Period{Start: now})
	periodsJSON, err := models.MarshalPeriods(ps)
	if err != nil {
		return nil, err
	}

	pausedMs := take.PausedTimeMs
	if take.PausedAt != nil {
		pausedMs += now.Sub(*take.PausedAt).Milliseconds()
	}

	err = e.store.UpdateTakeIfStatus(take.ID, models.StatusPaused, map[string]any{
		"status":                    models.StatusActive,
		"periods":                   periodsJSON,
		"paused_time_ms":            pausedMs,
		"paused_at":                 nil,
		"notified_pause_expiration": false,
	})
	if errors.Is(err, store.ErrStatusConflict) || errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoPausedSession
	}
	if err != nil {
		return nil, err
	}

	take.Status = models.StatusActive
	take.PeriodsJSON = periodsJSON
	take.PausedTimeMs = pausedMs
	take.PausedAt = nil
	take.NotifiedPauseExpiration = false

	e.logger.Info().Str("user", userID).Str("take", take.ID).Msg("Session resumed")
	return take, nil
}

// Stop finalizes whichever open take the user has, posts the completion
// message, and parks the take in waitingUpload anchored to the message's
// thread. A failed send still finalizes the take.
func (e *Engine) Stop(userID, notes string) (*models.Take, error) {
	take, err := e.store.FindOpenByUser(userID, models.StatusActive)
	if err != nil {
		return nil, err
	}
	if take == nil {
		take, err = e.store.FindOpenByUser(userID, models.StatusPaused)
		if err != nil {
			return nil, err
		}
	}
	if take == nil {
		return nil, ErrNoOpenSession
	}

	now := e.clock.Now()
	prevStatus := take.Status

	ps, err := take.Periods()
	if err != nil {
		return nil, err
	}
	ps = periods.CloseOpen(ps, now)
	periodsJSON, err := models.MarshalPeriods(ps)
	if err != nil {
		return nil, err
	}
	elapsedMs := periods.ElapsedMs(ps, now)

	noun := "takes session"
	if prevStatus == models.StatusPaused {
		noun = "paused takes session"
	}
	text := fmt.Sprintf("🎬 Your %s has been completed. Please upload your takes video in this thread within the next %d hours!",
		noun, e.cfg.UploadWindowHours)

	ts := e.send("stop", Message{
		Channel: userID,
		Text:    text,
		Context: e.elapsedContext(elapsedMs, take.Description),
	})

	fields := map[string]any{
		"status":          models.StatusWaitingUpload,
		"periods":         periodsJSON,
		"ts":              ts,
		"completed_at":    now,
		"elapsed_time_ms": elapsedMs,
	}
	if notes != "" {
		fields["notes"] = notes
	}

	err = e.store.UpdateTakeIfStatus(take.ID, prevStatus, fields)
	if errors.Is(err, store.ErrStatusConflict) || errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoOpenSession
	}
	if err != nil {
		return nil, err
	}

	take.Status = models.StatusWaitingUpload
	take.PeriodsJSON = periodsJSON
	take.TS = ts
	take.CompletedAt = &now
	take.ElapsedTimeMs = elapsedMs
	if notes != "" {
		take.Notes = notes
	}

	metrics.SessionsCompleted.WithLabelValues(metrics.ReasonStopped).Inc()
	e.logger.Info().
		Str("user", userID).
		Str("take", take.ID).
		Int64("elapsed_ms", elapsedMs).
		Msg("Session stopped")

	return take, nil
}

// send posts a message and logs (rather than propagating) any delivery
// failure. Returns the thread timestamp, or "" when the send failed.
func (e *Engine) send(kind string, msg Message) string {
	ts, err := e.notifier.PostMessage(msg)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues(kind).Inc()
		e.logger.Error().Err(err).
			Str("kind", kind).
			Str("channel", msg.Channel).
			Msg("Failed to send notification")
		return ""
	}
	metrics.NotificationsSent.WithLabelValues(kind).Inc()
	return ts
}

func (e *Engine) elapsedContext(elapsedMs int64, description string) string {
	ctx := fmt.Sprintf("*Elapsed Time:* `%s`", periods.PrettyPrintMs(elapsedMs))
	if description != "" {
		ctx += fmt.Sprintf(" working on: *%s*", description)
	}
	return ctx
}
