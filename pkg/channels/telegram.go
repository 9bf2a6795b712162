package channels

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/tinyland-inc/relayclaw/pkg/bus"
	"github.com/tinyland-inc/relayclaw/pkg/config"
	"github.com/tinyland-inc/relayclaw/pkg/logger"
	"github.com/tinyland-inc/relayclaw/pkg/message"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// TelegramChannel bridges Telegram chats via long polling.
type TelegramChannel struct {
	*BaseChannel
	cfg config.TelegramConfig
	bot *telego.Bot
}

func NewTelegramChannel(cfg config.TelegramConfig, b *bus.MessageBus) *TelegramChannel {
	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", b, cfg.AllowFrom),
		cfg:         cfg,
	}
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	bot, err := telego.NewBot(c.cfg.Token, telego.WithDefaultLogger(false, false))
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	c.bot = bot

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("telegram long polling: %w", err)
	}

	go func() {
		for update := range updates {
			if update.Message != nil {
				c.handleMessage(update.Message)
			}
		}
		c.SetRunning(false)
	}()

	c.SetRunning(true)
	return nil
}

func (c *TelegramChannel) Stop(_ context.Context) error {
	// Long polling stops when the Start context is cancelled.
	c.SetRunning(false)
	return nil
}

func (c *TelegramChannel) handleMessage(msg *telego.Message) {
	if msg.From == nil {
		return
	}

	kind := umo.GroupMessage
	if msg.Chat.Type == telego.ChatTypePrivate {
		kind = umo.FriendMessage
	}
	origin := umo.UMO{
		Platform: "telegram",
		Kind:     kind,
		ID:       strconv.FormatInt(msg.Chat.ID, 10),
	}

	var segments message.Content
	if msg.Text != "" {
		segments = append(segments, message.Text(msg.Text))
	}
	if msg.Caption != "" {
		segments = append(segments, message.Text(msg.Caption))
	}
	// Largest photo size is last; its file ID travels as the image reference.
	if len(msg.Photo) > 0 {
		segments = append(segments, message.Image(msg.Photo[len(msg.Photo)-1].FileID))
	}
	if len(segments) == 0 {
		return
	}

	senderID := strconv.FormatInt(msg.From.ID, 10)
	if msg.From.Username != "" {
		senderID += "|" + msg.From.Username
	}
	senderName := msg.From.FirstName
	if msg.From.LastName != "" {
		senderName += " " + msg.From.LastName
	}

	c.HandleMessage(origin, strconv.Itoa(msg.MessageID), senderName, senderID, segments)
}

func (c *TelegramChannel) Send(ctx context.Context, target umo.UMO, content message.Content) error {
	if c.bot == nil {
		return fmt.Errorf("telegram channel not started")
	}
	chatID, err := strconv.ParseInt(target.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat ID %q: %w", target.ID, err)
	}

	text := chatText(content)
	if text != "" {
		if _, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}

	for _, seg := range content {
		if seg.Type != message.SegmentImage || !isHTTPURL(seg.URL) {
			continue
		}
		if _, err := c.bot.SendPhoto(ctx, tu.Photo(tu.ID(chatID), tu.FileFromURL(seg.URL))); err != nil {
			logger.WarnCF("telegram", "Photo delivery failed", map[string]any{
				"chat":  target.ID,
				"error": err.Error(),
			})
		}
	}
	return nil
}
