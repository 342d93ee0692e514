// Package slackconn receives support tickets from Slack via Socket Mode
// and replies in-thread with the pipeline's response.
package slackconn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/deskd-io/deskd/internal/connector"
)

// Config holds Slack connector configuration.
type Config struct {
	BotToken string   // xoxb-... Bot User OAuth Token
	AppToken string   // xapp-... App-Level Token for Socket Mode
	Channels []string // only accept tickets from these channels; empty allows all
}

// Connector listens for Slack events over Socket Mode.
type Connector struct {
	api     *slack.Client
	socket  *socketmode.Client
	cfg     Config
	handler connector.Handler
	logger  *slog.Logger
	cancel  context.CancelFunc
	botID   string
}

// New creates the connector and verifies both tokens.
func New(cfg Config, handler connector.Handler, logger *slog.Logger) (*Connector, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack: bot_token is required")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("slack: app_token is required for socket mode")
	}
	if logger == nil {
		logger = slog.Default()
	}

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	authResp, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack: auth test: %w", err)
	}
	logger.Info("slack bot authorized", "user", authResp.User, "team", authResp.Team)

	return &Connector{
		api:     api,
		socket:  socketmode.New(api),
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		botID:   authResp.UserID,
	}, nil
}

func (c *Connector) Name() string { return "slack" }

// Start begins listening for events. Blocks until the context is
// cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	go c.eventLoop(ctx)

	c.logger.Info("slack connector started")
	return c.socket.RunContext(ctx)
}

// Stop cancels the event loop.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *Connector) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-c.socket.Events:
			if event.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			apiEvent, ok := event.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			c.socket.Ack(*event.Request)

			switch ev := apiEvent.InnerEvent.Data.(type) {
			case *slackevents.MessageEvent:
				// Only direct messages; channel traffic comes in
				// through mentions.
				if ev.ChannelType == "im" {
					c.process(ctx, ev.User, ev.BotID, ev.Channel, ev.ThreadTimeStamp, ev.TimeStamp, ev.Text, ev.SubType)
				}
			case *slackevents.AppMentionEvent:
				text := stripMention(ev.Text, c.botID)
				c.process(ctx, ev.User, "", ev.Channel, ev.ThreadTimeStamp, ev.TimeStamp, text, "")
			}
		}
	}
}

func (c *Connector) process(ctx context.Context, user, botID, channel, threadTS, ts, text, subType string) {
	// Skip our own and other bots' messages, and edits/deletes.
	if botID != "" || user == "" || user == c.botID || subType != "" {
		return
	}
	if !channelAllowed(c.cfg.Channels, channel) {
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	reply, err := c.handler(ctx, connector.InboundTicket{
		Source:   "slack",
		SenderID: user,
		ChatID:   channel,
		Text:     text,
	})
	if err != nil {
		c.logger.Error("ticket handler failed", "channel", channel, "user", user, "error", err)
		reply = "Sorry, something went wrong processing your request. Please try again."
	}

	// Reply in the originating thread; start one if the message was
	// top-level in a channel.
	replyTS := threadTS
	if replyTS == "" {
		replyTS = ts
	}
	opts := []slack.MsgOption{slack.MsgOptionText(reply, false)}
	if replyTS != "" {
		opts = append(opts, slack.MsgOptionTS(replyTS))
	}
	if _, _, err := c.api.PostMessage(channel, opts...); err != nil {
		c.logger.Error("slack send failed", "channel", channel, "error", err)
	}
}

func channelAllowed(allow []string, channel string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, ch := range allow {
		if ch == channel {
			return true
		}
	}
	return false
}

// stripMention removes the leading <@BOTID> mention from message text.
func stripMention(text, botID string) string {
	mention := fmt.Sprintf("<@%s>", botID)
	return strings.TrimSpace(strings.Replace(text, mention, "", 1))
}
