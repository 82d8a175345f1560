package takes

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/takeshq/takes/internal/metrics"
	"github.com/takeshq/takes/internal/models"
	"github.com/takeshq/takes/internal/periods"
	"github.com/takeshq/takes/internal/store"
)

// RunPauseExpirySweep checks every paused take against the pause budget:
// a warning once the episode nears the limit, a forced completion once it
// crosses it. Failures on one take never stop the scan.
func (e *Engine) RunPauseExpirySweep() {
	metrics.SweepRuns.WithLabelValues("pause_expiry").Inc()

	paused, err := e.store.FindByStatus(models.StatusPaused)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to scan paused sessions")
		return
	}

	now := e.clock.Now()
	for i := range paused {
		take := &paused[i]
		if take.PausedAt == nil {
			continue
		}
		pausedMinutes := now.Sub(*take.PausedAt).Minutes()

		warnAfter := float64(e.cfg.MaxPauseDuration - e.cfg.PauseExpirationWarning)
		if pausedMinutes > warnAfter && !take.NotifiedPauseExpiration {
			e.warnPauseExpiry(take, pausedMinutes)
		}

		if pausedMinutes > float64(e.cfg.MaxPauseDuration) {
			e.expirePaused(take, now)
		}
	}
}

func (e *Engine) warnPauseExpiry(take *models.Take, pausedMinutes float64) {
	err := e.store.UpdateTakeIfStatus(take.ID, models.StatusPaused, map[string]any{
		"notified_pause_expiration": true,
	})
	if errors.Is(err, store.ErrStatusConflict) || errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		e.logger.Error().Err(err).Str("take", take.ID).Msg("Failed to mark pause expiration warning")
		return
	}

	remaining := int(math.Round(float64(e.cfg.MaxPauseDuration) - pausedMinutes))
	e.send("pause_expiry_warning", Message{
		Channel: take.UserID,
		Text: fmt.Sprintf("⚠️ Reminder: Your paused takes session will automatically complete in about %d minutes if not resumed.",
			remaining),
	})
}

func (e *Engine) expirePaused(take *models.Take, now time.Time) {
	ps, err := take.Periods()
	if err != nil {
		e.logger.Error().Err(err).Str("take", take.ID).Msg("Failed to decode periods")
		return
	}
	// The pause transition already closed the trailing period.
	elapsedMs := periods.ElapsedMs(ps, now)

	ts := e.send("pause_timeout", Message{
		Channel: take.UserID,
		Text: fmt.Sprintf("⏰ Your paused takes session has been automatically completed because it was paused for more than %d minutes.\n\nPlease upload your takes video in this thread within the next %d hours!",
			e.cfg.MaxPauseDuration, e.cfg.UploadWindowHours),
	})

	err = e.store.UpdateTakeIfStatus(take.ID, models.StatusPaused, map[string]any{
		"status":          models.StatusWaitingUpload,
		"completed_at":    now,
		"ts":              ts,
		"elapsed_time_ms": elapsedMs,
		"notes":           appendNote(take.Notes, "Automatically completed due to pause timeout"),
	})
	if errors.Is(err, store.ErrStatusConflict) || errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		e.logger.Error().Err(err).Str("take", take.ID).Msg("Failed to expire paused session")
		return
	}

	metrics.SessionsCompleted.WithLabelValues(metrics.ReasonPauseTimeout).Inc()
	e.logger.Info().
		Str("user", take.UserID).
		Str("take", take.ID).
		Msg("Paused session auto-completed")
}

// RunLowTimeSweep checks every active take against its planned end time:
// a warning inside the low-time window, a forced completion once time is
// up.
func (e *Engine) RunLowTimeSweep() {
	metrics.SweepRuns.WithLabelValues("low_time").Inc()

	active, err := e.store.FindByStatus(models.StatusActive)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to scan active sessions")
		return
	}

	now := e.clock.Now()
	for i := range active {
		take := &active[i]
		remaining := take.EndTime().Sub(now)
		remainingMinutes := remaining.Minutes()

		if remainingMinutes > 0 && remainingMinutes <= float64(e.cfg.LowTimeWarning) && !take.NotifiedLowTime {
			e.warnLowTime(take)
		}

		if remaining <= 0 {
			e.expireActive(take, now)
		}
	}
}

func (e *Engine) warnLowTime(take *models.Take) {
	err := e.store.UpdateTakeIfStatus(take.ID, models.StatusActive, map[string]any{
		"notified_low_time": true,
	})
	if errors.Is(err, store.ErrStatusConflict) || errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		e.logger.Error().Err(err).Str("take", take.ID).Msg("Failed to mark low time warning")
		return
	}

	e.send("low_time_warning", Message{
		Channel: take.UserID,
		Text: fmt.Sprintf("⏱️ Your takes session has less than %d minutes remaining.",
			e.cfg.LowTimeWarning),
	})
}

func (e *Engine) expireActive(take *models.Take, now time.Time) {
	ps, err := take.Periods()
	if err != nil {
		e.logger.Error().Err(err).Str("take", take.ID).Msg("Failed to decode periods")
		return
	}
	ps = periods.CloseOpen(ps, now)
	periodsJSON, err := models.MarshalPeriods(ps)
	if err != nil {
		e.logger.Error().Err(err).Str("take", take.ID).Msg("Failed to encode periods")
		return
	}
	elapsedMs := periods.ElapsedMs(ps, now)

	ts := e.send("time_expired", Message{
		Channel: take.UserID,
		Text: fmt.Sprintf("⏰ Your takes session has automatically completed because the time is up. Please upload your takes video in this thread within the next %d hours!",
			e.cfg.UploadWindowHours),
	})

	err = e.store.UpdateTakeIfStatus(take.ID, models.StatusActive, map[string]any{
		"status":          models.StatusWaitingUpload,
		"periods":         periodsJSON,
		"completed_at":    now,
		"ts":              ts,
		"elapsed_time_ms": elapsedMs,
		"notes":           appendNote(take.Notes, "Automatically completed - time expired"),
	})
	if errors.Is(err, store.ErrStatusConflict) || errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		e.logger.Error().Err(err).Str("take", take.ID).Msg("Failed to expire active session")
		return
	}

	metrics.SessionsCompleted.WithLabelValues(metrics.ReasonTimeExpired).Inc()
	e.logger.Info().
		Str("user", take.UserID).
		Str("take", take.ID).
		Int64("elapsed_ms", elapsedMs).
		Msg("Active session auto-completed")
}

// appendNote suffixes an auto-completion reason onto any existing notes.
func appendNote(notes, reason string) string {
	if notes == "" {
		return reason
	}
	return fmt.Sprintf("%s (%s)", notes, reason)
}
