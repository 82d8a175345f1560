package slackbot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/takeshq/takes/internal/models"
	"github.com/takeshq/takes/internal/periods"
	"github.com/takeshq/takes/internal/takes"
)

const helpText = `*Takes* tracks timed work sessions.
` + "`/takes start [minutes] [description]`" + ` - start a session
` + "`/takes pause`" + ` - pause the running session
` + "`/takes resume`" + ` - resume a paused session
` + "`/takes stop [notes]`" + ` - finish and open the upload thread
` + "`/takes status`" + ` - where you stand`

// HandleCommand runs one slash-command invocation and returns the
// ephemeral reply text. Lifecycle errors come back as friendly text, not
// as an error.
func (l *Listener) HandleCommand(cmd Command) string {
	switch cmd.Subcommand {
	case "start":
		return l.handleStart(cmd)
	case "pause":
		return l.handlePause(cmd)
	case "resume":
		return l.handleResume(cmd)
	case "stop":
		return l.handleStop(cmd)
	case "status":
		return l.handleStatus(cmd)
	case "help":
		return helpText
	default:
		return fmt.Sprintf("Unknown subcommand `%s`.\n\n%s", cmd.Subcommand, helpText)
	}
}

func (l *Listener) handleStart(cmd Command) string {
	duration := 0
	args := cmd.Args
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			duration = n
			args = args[1:]
		}
	}
	description := strings.Join(args, " ")

	take, err := l.engine.Start(cmd.UserID, duration, description)
	if err != nil {
		if errors.Is(err, takes.ErrSessionAlreadyOpen) {
			return "You already have a takes session going! Use `/takes status` to check on it."
		}
		return l.internalError(cmd, err)
	}

	return fmt.Sprintf("🎬 Takes session started for %d minutes. Good luck!", take.DurationMinutes)
}

func (l *Listener) handlePause(cmd Command) string {
	take, err := l.engine.Pause(cmd.UserID)
	if err != nil {
		if errors.Is(err, takes.ErrNoActiveSession) {
			return "You don't have an active takes session to pause."
		}
		return l.internalError(cmd, err)
	}

	ps, err := take.Periods()
	if err != nil {
		return l.internalError(cmd, err)
	}
	elapsed := periods.Elapsed(ps, l.engine.Now())
	return fmt.Sprintf("⏸️ Session paused with %s recorded. It will auto-complete if left paused for more than %d minutes.",
		periods.PrettyPrint(elapsed), l.cfg.Takes.MaxPauseDuration)
}

func (l *Listener) handleResume(cmd Command) string {
	take, err := l.engine.Resume(cmd.UserID)
	if err != nil {
		if errors.Is(err, takes.ErrNoPausedSession) {
			return "You don't have a paused takes session to resume."
		}
		return l.internalError(cmd, err)
	}

	remaining := take.EndTime().Sub(l.engine.Now())
	return fmt.Sprintf("▶️ Session resumed. %s remaining.", periods.PrettyPrint(remaining))
}

func (l *Listener) handleStop(cmd Command) string {
	notes := strings.Join(cmd.Args, " ")

	_, err := l.engine.Stop(cmd.UserID, notes)
	if err != nil {
		if errors.Is(err, takes.ErrNoOpenSession) {
			return "You don't have an active or paused takes session!"
		}
		return l.internalError(cmd, err)
	}

	return "✅ Takes session completed! I hope you had fun!"
}

func (l *Listener) handleStatus(cmd Command) string {
	take, err := l.store.FindOpenByUser(cmd.UserID, models.StatusActive, models.StatusPaused)
	if err != nil {
		return l.internalError(cmd, err)
	}
	if take == nil {
		return "No takes session right now. Start one with `/takes start`!"
	}

	now := l.engine.Now()
	switch take.Status {
	case models.StatusPaused:
		pausedAt := now
		if take.PausedAt != nil {
			pausedAt = *take.PausedAt
		}
		pausedFor := now.Sub(pausedAt)
		budget := time.Duration(l.cfg.Takes.MaxPauseDuration)*time.Minute - pausedFor
		return fmt.Sprintf("⏸️ Session paused for %s. It auto-completes in %s unless resumed.",
			periods.PrettyPrint(pausedFor), periods.PrettyPrint(budget))
	default:
		remaining := take.EndTime().Sub(now)
		msg := fmt.Sprintf("⏱️ Session active, %s remaining.", periods.PrettyPrint(remaining))
		if take.Description != "" {
			msg += fmt.Sprintf(" Working on: *%s*", take.Description)
		}
		return msg
	}
}

func (l *Listener) internalError(cmd Command, err error) string {
	l.logger.Error().Err(err).
		Str("user", cmd.UserID).
		Str("subcommand", cmd.Subcommand).
		Msg("Command failed")
	return "Something went wrong on our side. Please try again."
}
