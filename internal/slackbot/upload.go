package slackbot

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/takeshq/takes/internal/models"
)

// TODO: replace the fixed elapsed-time placeholder with a hackatime
// lookup using the user's stored hackatime keys.
const standaloneElapsedMs = 60000

// HandleUpload processes a top-level message in the listen channel: it
// collects media, rewrites the text to markdown, and either completes the
// user's waitingUpload take or records a standalone completed take. Any
// failure leaves the user informed with a best-effort thread reply.
func (l *Listener) HandleUpload(ev FileUpload) {
	if err := l.processUpload(ev); err != nil {
		l.logger.Error().Err(err).
			Str("channel", ev.Channel).
			Str("user", ev.UserID).
			Str("thread_ts", ev.TS).
			Msg("Error handling upload")

		if replyErr := l.client.PostThreadMessage(ev.Channel, ev.TS,
			":warning: there was an error processing your upload"); replyErr != nil {
			l.logger.Error().Err(replyErr).
				Str("channel", ev.Channel).
				Msg("Failed to send upload error reply")
		}
	}
}

func (l *Listener) processUpload(ev FileUpload) error {
	user, err := l.store.GetUser(ev.UserID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return l.client.PostThreadMessage(ev.Channel, ev.TS,
			"We don't have a project for you; set one up by running `/takes`. Don't forget to resend your update afterwards!")
	}

	notes := l.slackToMarkdown(ev.Text)
	media := l.collectMedia(ev.Files)

	waiting, err := l.store.FindOpenByUser(ev.UserID, models.StatusWaitingUpload)
	if err != nil {
		return fmt.Errorf("lookup waiting take: %w", err)
	}

	if waiting != nil {
		take := waiting
		if err := take.SetMedia(media); err != nil {
			return fmt.Errorf("encode media: %w", err)
		}
		fields := map[string]any{
			"status": models.StatusCompleted,
			"media":  take.MediaJSON,
		}
		if notes != "" {
			fields["notes"] = notes
		}
		if err := l.store.UpdateTakeIfStatus(take.ID, models.StatusWaitingUpload, fields); err != nil {
			return fmt.Errorf("complete take: %w", err)
		}
	} else {
		now := time.Now()
		take := &models.Take{
			ID:            uuid.NewString(),
			UserID:        ev.UserID,
			Status:        models.StatusCompleted,
			StartedAt:     now,
			TS:            ev.TS,
			Notes:         notes,
			ElapsedTimeMs: standaloneElapsedMs,
			CompletedAt:   &now,
			Multiplier:    "1.0",
		}
		if err := take.SetMedia(media); err != nil {
			return fmt.Errorf("encode media: %w", err)
		}
		if err := take.SetPeriods(nil); err != nil {
			return fmt.Errorf("encode periods: %w", err)
		}
		if err := l.store.InsertTake(take); err != nil {
			return fmt.Errorf("insert standalone take: %w", err)
		}
	}

	if err := l.client.AddReaction("fire", ev.Channel, ev.TS); err != nil {
		l.logger.Warn().Err(err).Str("channel", ev.Channel).Msg("Failed to add reaction")
	}

	ack := ":inbox_tray: saved your notes!"
	if len(media) > 0 {
		ack = ":inbox_tray: uploaded media and saved your notes!"
	}
	return l.client.PostThreadMessage(ev.Channel, ev.TS, ack)
}

// collectMedia publishes image/video files and gathers their public URLs.
// Files that fail to publish are skipped, not fatal.
func (l *Listener) collectMedia(files []UploadedFile) []string {
	var urls []string
	for _, f := range files {
		if !f.IsMedia() {
			continue
		}
		url, err := l.client.PublicFileURL(f.ID)
		if err != nil {
			l.logger.Warn().Err(err).Str("file", f.ID).Msg("Failed to publish file")
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

var (
	mentionRe = regexp.MustCompile(`<@([A-Z0-9]+)>`)
	boldRe    = regexp.MustCompile(`\*(.*?)\*`)
	italicRe  = regexp.MustCompile(`_(.*?)_`)
	strikeRe  = regexp.MustCompile(`~(.*?)~`)
	linkRe    = regexp.MustCompile(`<(https?://[^|]+)\|([^>]+)>`)
)

// slackToMarkdown converts Slack message markup to plain markdown and
// resolves user mentions to names.
func (l *Listener) slackToMarkdown(text string) string {
	text = mentionRe.ReplaceAllStringFunc(text, func(match string) string {
		userID := mentionRe.FindStringSubmatch(match)[1]
		name, err := l.client.DisplayName(userID)
		if err != nil {
			return "@" + userID
		}
		return "@" + name
	})

	text = boldRe.ReplaceAllString(text, "**$1**")
	text = italicRe.ReplaceAllString(text, "*$1*")
	text = strikeRe.ReplaceAllString(text, "~~$1~~")
	text = linkRe.ReplaceAllString(text, "[$2]($1)")
	return text
}
