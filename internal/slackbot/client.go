package slackbot

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/takeshq/takes/internal/takes"
)

// Client wraps the Slack Web API for the bot's outbound calls. It is the
// messaging gateway the lifecycle engine posts through.
type Client struct {
	api     *slack.Client
	userAPI *slack.Client // user-token client, needed for files.sharedPublicURL
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient builds a client from bot and (optional) user tokens. The user
// token is only needed to publish uploaded files.
func NewClient(api *slack.Client, userToken string, logger zerolog.Logger) *Client {
	c := &Client{
		api:    api,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger.With().Str("component", "slack-client").Logger(),
	}
	if userToken != "" {
		c.userAPI = slack.New(userToken)
	}
	return c
}

// PostMessage sends a message and returns its timestamp. Satisfies
// takes.Notifier.
func (c *Client) PostMessage(msg takes.Message) (string, error) {
	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, msg.Text, false, false), nil, nil),
	}
	if msg.Context != "" {
		blocks = append(blocks,
			slack.NewDividerBlock(),
			slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, msg.Context, false, false)),
		)
	}

	_, ts, err := c.api.PostMessage(msg.Channel,
		slack.MsgOptionText(msg.Text, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return "", fmt.Errorf("postMessage to %s: %w", msg.Channel, err)
	}
	return ts, nil
}

// PostThreadMessage replies inside a thread.
func (c *Client) PostThreadMessage(channel, threadTS, text string) error {
	_, _, err := c.api.PostMessage(channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		return fmt.Errorf("postMessage to %s thread %s: %w", channel, threadTS, err)
	}
	return nil
}

// AddReaction reacts to a message.
func (c *Client) AddReaction(name, channel, ts string) error {
	return c.api.AddReaction(name, slack.ItemRef{Channel: channel, Timestamp: ts})
}

// DisplayName resolves a user ID to the best available human name.
func (c *Client) DisplayName(userID string) (string, error) {
	info, err := c.api.GetUserInfo(userID)
	if err != nil {
		return "", err
	}
	if info.Profile.DisplayName != "" {
		return info.Profile.DisplayName, nil
	}
	if info.RealName != "" {
		return info.RealName, nil
	}
	return userID, nil
}

var pubSecretRe = regexp.MustCompile(`https://files\.slack\.com/files-pri/[^"]+pub_secret=([^"&]*)`)

// PublicFileURL publishes a file and scrapes the direct pub_secret URL
// from its public permalink page.
func (c *Client) PublicFileURL(fileID string) (string, error) {
	if c.userAPI == nil {
		return "", fmt.Errorf("no user token configured for file publishing")
	}

	file, _, _, err := c.userAPI.ShareFilePublicURL(fileID)
	if err != nil {
		return "", fmt.Errorf("sharedPublicURL for %s: %w", fileID, err)
	}
	if file.PermalinkPublic == "" {
		return "", fmt.Errorf("file %s has no public permalink", fileID)
	}

	resp, err := c.http.Get(file.PermalinkPublic)
	if err != nil {
		return "", fmt.Errorf("fetch public permalink: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read public permalink: %w", err)
	}

	match := pubSecretRe.Find(body)
	if match == nil {
		return "", fmt.Errorf("no pub_secret URL on permalink page for %s", fileID)
	}
	return string(match), nil
}
