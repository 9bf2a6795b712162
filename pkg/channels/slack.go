package channels

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/tinyland-inc/relayclaw/pkg/bus"
	"github.com/tinyland-inc/relayclaw/pkg/config"
	"github.com/tinyland-inc/relayclaw/pkg/logger"
	"github.com/tinyland-inc/relayclaw/pkg/message"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// SlackChannel bridges Slack conversations using Socket Mode.
type SlackChannel struct {
	*BaseChannel
	cfg    config.SlackConfig
	client *slack.Client
	socket *socketmode.Client
	botUID string // the bot's own user ID, to avoid echoing itself
}

func NewSlackChannel(cfg config.SlackConfig, b *bus.MessageBus) *SlackChannel {
	return &SlackChannel{
		BaseChannel: NewBaseChannel("slack", b, cfg.AllowFrom),
		cfg:         cfg,
	}
}

func (c *SlackChannel) Start(ctx context.Context) error {
	api := slack.New(c.cfg.BotToken, slack.OptionAppLevelToken(c.cfg.AppToken))

	authResp, err := api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	c.client = api
	c.botUID = authResp.UserID
	c.socket = socketmode.New(api)

	go c.eventLoop(ctx)
	go func() {
		if err := c.socket.RunContext(ctx); err != nil && ctx.Err() == nil {
			logger.ErrorCF("slack", "Socket mode stopped", map[string]any{"error": err.Error()})
		}
		c.SetRunning(false)
	}()

	c.SetRunning(true)
	return nil
}

func (c *SlackChannel) Stop(_ context.Context) error {
	// Socket mode stops when the Start context is cancelled.
	c.SetRunning(false)
	return nil
}

func (c *SlackChannel) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.socket.Events:
			if !ok {
				return
			}
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			c.socket.Ack(*evt.Request)

			if ev, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent); ok {
				c.handleMessage(ev)
			}
		}
	}
}

func (c *SlackChannel) handleMessage(ev *slackevents.MessageEvent) {
	// Drop bot traffic, edits and our own messages.
	if ev.BotID != "" || ev.SubType != "" || ev.User == c.botUID || ev.User == "" {
		return
	}

	kind := umo.GroupMessage
	if ev.ChannelType == "im" {
		kind = umo.FriendMessage
	}
	origin := umo.UMO{Platform: "slack", Kind: kind, ID: ev.Channel}

	var segments message.Content
	if ev.Text != "" {
		segments = append(segments, message.Text(ev.Text))
	}
	if len(segments) == 0 {
		return
	}

	name := ev.User
	if info, err := c.client.GetUserInfo(ev.User); err == nil {
		if info.Profile.DisplayName != "" {
			name = info.Profile.DisplayName
		} else if info.RealName != "" {
			name = info.RealName
		}
	}

	c.HandleMessage(origin, ev.TimeStamp, name, ev.User, segments)
}

func (c *SlackChannel) Send(ctx context.Context, target umo.UMO, content message.Content) error {
	if c.client == nil {
		return fmt.Errorf("slack channel not started")
	}
	text := content.PlainText()
	if text == "" {
		return nil
	}
	_, _, err := c.client.PostMessageContext(ctx, target.ID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack send to %s: %w", target.ID, err)
	}
	return nil
}
