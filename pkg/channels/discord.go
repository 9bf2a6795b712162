package channels

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/tinyland-inc/relayclaw/pkg/bus"
	"github.com/tinyland-inc/relayclaw/pkg/config"
	"github.com/tinyland-inc/relayclaw/pkg/logger"
	"github.com/tinyland-inc/relayclaw/pkg/message"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// DiscordChannel bridges Discord channels and DMs. It also provides
// webhook creation and webhook delivery for virtual-user forwarding.
type DiscordChannel struct {
	*BaseChannel
	cfg     config.DiscordConfig
	session *discordgo.Session
}

func NewDiscordChannel(cfg config.DiscordConfig, b *bus.MessageBus) *DiscordChannel {
	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", b, cfg.AllowFrom),
		cfg:         cfg,
	}
}

func (c *DiscordChannel) Start(_ context.Context) error {
	session, err := discordgo.New("Bot " + c.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord session init: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	session.AddHandler(c.onMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	c.session = session
	c.SetRunning(true)
	return nil
}

func (c *DiscordChannel) Stop(_ context.Context) error {
	c.SetRunning(false)
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *DiscordChannel) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore our own traffic and other bots; webhook deliveries arrive as
	// bot messages, so this also keeps forwarded copies out of the inbound
	// pipeline.
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}

	kind := umo.GroupMessage
	if m.GuildID == "" {
		kind = umo.FriendMessage
	}
	origin := umo.UMO{Platform: "discord", Kind: kind, ID: m.ChannelID}

	var segments message.Content
	if m.Content != "" {
		segments = append(segments, message.Text(m.Content))
	}
	for _, att := range m.Attachments {
		if strings.HasPrefix(att.ContentType, "image/") {
			segments = append(segments, message.Image(att.URL))
		} else {
			segments = append(segments, message.Record(att.URL))
		}
	}
	if len(segments) == 0 {
		return
	}

	name := m.Author.Username
	if m.Author.GlobalName != "" {
		name = m.Author.GlobalName
	}
	c.HandleMessage(origin, m.ID, name, m.Author.ID, segments)
}

func (c *DiscordChannel) Send(_ context.Context, target umo.UMO, content message.Content) error {
	if c.session == nil {
		return fmt.Errorf("discord channel not started")
	}
	// Discord renders HTTP media URLs inline, so the flattened form keeps
	// images visible without re-uploading.
	text := content.PlainText()
	if text == "" {
		return nil
	}
	if _, err := c.session.ChannelMessageSend(target.ID, text); err != nil {
		return fmt.Errorf("discord send to %s: %w", target.ID, err)
	}
	return nil
}

// CreateWebhook provisions a webhook in the given channel and returns its
// URL. Implements relay.WebhookCreator.
func (c *DiscordChannel) CreateWebhook(_ context.Context, session umo.UMO) (string, error) {
	if c.session == nil {
		return "", fmt.Errorf("discord channel not started")
	}
	if session.Platform != "discord" {
		return "", fmt.Errorf("webhooks are only supported for discord sessions, got %q", session.Platform)
	}

	wh, err := c.session.WebhookCreate(session.ID, "relayclaw", "")
	if err != nil {
		return "", fmt.Errorf("webhook create in %s: %w", session.ID, err)
	}
	logger.InfoCF("discord", "Webhook created", map[string]any{"channel": session.ID})
	return fmt.Sprintf("https://discord.com/api/webhooks/%s/%s", wh.ID, wh.Token), nil
}

// SendWebhook posts msg through a webhook URL as a virtual user carrying
// the original sender's name and avatar. Implements relay.WebhookSender.
func (c *DiscordChannel) SendWebhook(_ context.Context, url string, msg bus.InboundMessage) error {
	if c.session == nil {
		return fmt.Errorf("discord channel not started")
	}
	id, token, err := parseWebhookURL(url)
	if err != nil {
		return err
	}

	content := msg.Segments.PlainText()
	if content == "" {
		content = "\u200b" // Discord rejects empty content
	}

	_, err = c.session.WebhookExecute(id, token, false, &discordgo.WebhookParams{
		Content:   content,
		Username:  VirtualUsername(msg.SenderName, msg.Origin.Platform),
		AvatarURL: AvatarURL(msg.Origin.Platform, msg.SenderID),
	})
	if err != nil {
		return fmt.Errorf("webhook execute: %w", err)
	}
	return nil
}

// parseWebhookURL extracts the webhook ID and token from a Discord
// webhook URL (…/api/webhooks/<id>/<token>).
func parseWebhookURL(url string) (id, token string, err error) {
	parts := strings.Split(strings.TrimRight(url, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("malformed webhook URL %q", url)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
