// Package telegram receives support tickets from a Telegram bot and
// replies with the pipeline's response.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/deskd-io/deskd/internal/connector"
)

// Telegram caps messages at 4096 characters; longer replies are split.
const maxMessageLen = 4096

const greeting = "Hi! Describe your issue and I'll route it to the right specialist. " +
	"Complex cases are flagged for human review automatically."

// Config holds Telegram connector configuration.
type Config struct {
	Token     string  // bot token from @BotFather
	AllowFrom []int64 // allowed Telegram user IDs; empty allows all
}

// Connector listens for Telegram messages via long polling.
type Connector struct {
	bot     *tgbotapi.BotAPI
	cfg     Config
	handler connector.Handler
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// New creates the connector and verifies the bot token.
func New(cfg Config, handler connector.Handler, logger *slog.Logger) (*Connector, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("telegram bot authorized", "username", bot.Self.UserName)

	return &Connector{
		bot:     bot,
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}, nil
}

func (c *Connector) Name() string { return "telegram" }

// Start begins long-polling for updates. Blocks until the context is
// cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.bot.GetUpdatesChan(u)

	c.logger.Info("telegram connector started", "bot", c.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			c.handleMessage(ctx, update.Message)

		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.logger.Info("telegram connector stopped")
			return ctx.Err()
		}
	}
}

// Stop cancels the update loop.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *Connector) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if !senderAllowed(c.cfg.AllowFrom, userID) {
		c.logger.Warn("unauthorized sender", "user_id", userID, "username", msg.From.UserName)
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			c.reply(chatID, greeting)
		default:
			c.reply(chatID, "Unknown command. Just describe your issue in a message.")
		}
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return
	}

	// Typing indicator while the pipeline runs.
	c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	reply, err := c.handler(ctx, connector.InboundTicket{
		Source:   "telegram",
		SenderID: strconv.FormatInt(userID, 10),
		ChatID:   strconv.FormatInt(chatID, 10),
		Text:     text,
	})
	if err != nil {
		c.logger.Error("ticket handler failed", "chat_id", chatID, "error", err)
		c.reply(chatID, "Sorry, something went wrong processing your request. Please try again.")
		return
	}

	c.reply(chatID, reply)
}

func (c *Connector) reply(chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	for _, chunk := range splitMessage(text, maxMessageLen) {
		m := tgbotapi.NewMessage(chatID, chunk)
		m.DisableWebPagePreview = true
		if _, err := c.bot.Send(m); err != nil {
			c.logger.Error("telegram send failed", "chat_id", chatID, "error", err)
			return
		}
	}
}

// splitMessage breaks text into chunks of at most limit bytes,
// preferring to split at line boundaries.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func senderAllowed(allow []int64, id int64) bool {
	if len(allow) == 0 {
		return true
	}
	for _, v := range allow {
		if v == id {
			return true
		}
	}
	return false
}
