package channels

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tinyland-inc/relayclaw/pkg/bus"
	"github.com/tinyland-inc/relayclaw/pkg/config"
	"github.com/tinyland-inc/relayclaw/pkg/logger"
	"github.com/tinyland-inc/relayclaw/pkg/message"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// platformAliases maps UMO platform names onto the channel that serves
// them. OneBot hosts carry QQ traffic under several historical names.
var platformAliases = map[string]string{
	"aiocqhttp": "onebot",
	"qq":        "onebot",
}

// Manager owns the platform adapters and routes outbound deliveries to the
// adapter matching the target UMO's platform. It implements relay.Sender.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
	bus      *bus.MessageBus
}

func NewManager(cfg *config.Config, b *bus.MessageBus) (*Manager, error) {
	m := &Manager{
		channels: make(map[string]Channel),
		bus:      b,
	}

	if cfg.Channels.Telegram.Enabled {
		m.channels["telegram"] = NewTelegramChannel(cfg.Channels.Telegram, b)
	}
	if cfg.Channels.Discord.Enabled {
		m.channels["discord"] = NewDiscordChannel(cfg.Channels.Discord, b)
	}
	if cfg.Channels.Slack.Enabled {
		m.channels["slack"] = NewSlackChannel(cfg.Channels.Slack, b)
	}
	if cfg.Channels.OneBot.Enabled {
		m.channels["onebot"] = NewOneBotChannel(cfg.Channels.OneBot, b)
	}
	if cfg.Channels.Console.Enabled {
		m.channels["console"] = NewConsoleChannel(b)
	}

	return m, nil
}

// Register adds a channel under its own name. Used by tests and by hosts
// embedding the relay with custom adapters.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

func (m *Manager) GetChannel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// GetEnabledChannels returns the configured channel names, sorted.
func (m *Manager) GetEnabledChannels() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Send delivers content to the session named by target, through the
// adapter serving target's platform.
func (m *Manager) Send(ctx context.Context, target umo.UMO, content message.Content) error {
	name := target.Platform
	if alias, ok := platformAliases[name]; ok {
		name = alias
	}

	ch, ok := m.GetChannel(name)
	if !ok {
		return fmt.Errorf("no channel for platform %q", target.Platform)
	}
	return ch.Send(ctx, target, content)
}

func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			logger.ErrorCF("channels", "Channel failed to start", map[string]any{
				"channel": name,
				"error":   err.Error(),
			})
			continue
		}
		logger.InfoCF("channels", "Channel started", map[string]any{"channel": name})
	}
	return nil
}

func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		if err := ch.Stop(ctx); err != nil {
			logger.WarnCF("channels", "Channel failed to stop", map[string]any{
				"channel": name,
				"error":   err.Error(),
			})
		}
	}
}

// RunOutbound drains the outbound bus into Send until ctx is done. Command
// replies travel this way; forwarded copies go straight through Send.
func (m *Manager) RunOutbound(ctx context.Context) {
	for {
		msg, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}
		if err := m.Send(ctx, msg.Target, msg.Segments); err != nil {
			logger.ErrorCF("channels", "Outbound delivery failed", map[string]any{
				"target": msg.Target.String(),
				"error":  err.Error(),
			})
		}
	}
}
