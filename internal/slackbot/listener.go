package slackbot

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/takeshq/takes/internal/config"
	"github.com/takeshq/takes/internal/store"
	"github.com/takeshq/takes/internal/takes"
)

// Gateway is the outbound Slack surface the listener depends on. *Client
// is the production implementation.
type Gateway interface {
	takes.Notifier
	PostThreadMessage(channel, threadTS, text string) error
	AddReaction(name, channel, ts string) error
	DisplayName(userID string) (string, error)
	PublicFileURL(fileID string) (string, error)
}

// Listener receives inbound Slack events over socket mode and dispatches
// them as Command or FileUpload variants.
type Listener struct {
	socket *socketmode.Client
	client Gateway
	engine *takes.Engine
	store  *store.Store
	cfg    *config.Config
	logger zerolog.Logger
}

// NewListener wires the listener. socket may be nil in tests; Run then
// must not be called.
func NewListener(socket *socketmode.Client, client Gateway, engine *takes.Engine, s *store.Store, cfg *config.Config, logger zerolog.Logger) *Listener {
	return &Listener{
		socket: socket,
		client: client,
		engine: engine,
		store:  s,
		cfg:    cfg,
		logger: logger.With().Str("component", "slack-listener").Logger(),
	}
}

// Run pumps socket-mode events until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	go l.dispatch(ctx)
	return l.socket.RunContext(ctx)
}

func (l *Listener) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-l.socket.Events:
			if !ok {
				return
			}
			l.handleEvent(evt)
		}
	}
}

func (l *Listener) handleEvent(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnected:
		l.logger.Info().Msg("Connected to Slack")

	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		reply := l.HandleCommand(ParseCommand(cmd.UserID, cmd.ChannelID, cmd.Text))
		l.socket.Ack(*evt.Request, map[string]any{
			"response_type": "ephemeral",
			"text":          reply,
		})

	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		l.socket.Ack(*evt.Request)

		inner, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
		if !ok {
			return
		}
		if upload, ok := l.uploadEvent(inner); ok {
			l.HandleUpload(upload)
		}
	}
}

// uploadEvent filters message events down to top-level user posts in the
// listen channel and converts them to the FileUpload variant.
func (l *Listener) uploadEvent(ev *slackevents.MessageEvent) (FileUpload, bool) {
	if ev.SubType == "bot_message" || ev.SubType == "thread_broadcast" {
		return FileUpload{}, false
	}
	if ev.ThreadTimeStamp != "" || ev.BotID != "" {
		return FileUpload{}, false
	}
	if ev.Channel != l.cfg.Slack.ListenChannel {
		return FileUpload{}, false
	}

	upload := FileUpload{
		UserID:  ev.User,
		Channel: ev.Channel,
		TS:      ev.TimeStamp,
		Text:    ev.Text,
	}
	for _, f := range ev.Files {
		upload.Files = append(upload.Files, UploadedFile{ID: f.ID, Mimetype: f.Mimetype})
	}
	return upload, true
}
