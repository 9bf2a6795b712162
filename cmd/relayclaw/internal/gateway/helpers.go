package gateway

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/tinyland-inc/relayclaw/cmd/relayclaw/internal"
	"github.com/tinyland-inc/relayclaw/pkg/bus"
	"github.com/tinyland-inc/relayclaw/pkg/channels"
	"github.com/tinyland-inc/relayclaw/pkg/janitor"
	"github.com/tinyland-inc/relayclaw/pkg/logger"
	"github.com/tinyland-inc/relayclaw/pkg/message"
	"github.com/tinyland-inc/relayclaw/pkg/relay"
	"github.com/tinyland-inc/relayclaw/pkg/store"
)

func gatewayCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if err := os.MkdirAll(cfg.StorageDir(), 0o755); err != nil {
		return fmt.Errorf("error creating storage dir: %w", err)
	}

	rules, err := store.NewRuleStore(cfg.RulesPath())
	if err != nil {
		return fmt.Errorf("error loading rules: %w", err)
	}
	pending, err := store.NewPendingStore(cfg.PendingPath(), time.Duration(cfg.Relay.PendingTTLHours)*time.Hour)
	if err != nil {
		return fmt.Errorf("error loading pending requests: %w", err)
	}
	webhooks, err := store.NewWebhookStore(cfg.WebhooksPath())
	if err != nil {
		return fmt.Errorf("error loading webhooks: %w", err)
	}

	fmt.Println("\n📦 Relay Status:")
	fmt.Printf("  • Rules: %d loaded\n", rules.Len())
	fmt.Printf("  • Pending requests: %d\n", pending.Len())

	logger.InfoCF("gateway", "Stores loaded", map[string]any{
		"rules":   rules.Len(),
		"pending": pending.Len(),
	})

	msgBus := bus.NewMessageBus()
	engine := relay.NewEngine(rules, pending)
	commander := relay.NewCommander(engine, webhooks)

	channelManager, err := channels.NewManager(cfg, msgBus)
	if err != nil {
		return fmt.Errorf("error creating channel manager: %w", err)
	}

	router := relay.NewRouter(rules, webhooks, channelManager)
	router.SetSendTimeout(time.Duration(cfg.Relay.SendTimeoutSeconds) * time.Second)

	// Discord is the only platform with webhook support; attach it when the
	// channel is enabled.
	if discordChannel, ok := channelManager.GetChannel("discord"); ok {
		if dc, ok := discordChannel.(*channels.DiscordChannel); ok {
			commander.SetWebhookCreator(dc)
			router.SetWebhookSender(dc)
		}
	}

	jan, err := janitor.New(cfg.Relay.SweepSchedule, pending)
	if err != nil {
		return fmt.Errorf("error setting up sweep schedule: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enabledChannels := channelManager.GetEnabledChannels()
	if len(enabledChannels) > 0 {
		fmt.Printf("✓ Channels enabled: %s\n", enabledChannels)
	} else {
		fmt.Println("⚠ Warning: No channels enabled")
	}

	if err := channelManager.StartAll(ctx); err != nil {
		fmt.Printf("Error starting channels: %v\n", err)
	}

	go jan.Run(ctx)
	go channelManager.RunOutbound(ctx)
	go runInbound(ctx, msgBus, commander, router)

	fmt.Println("✓ Gateway started")
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	channelManager.StopAll(context.Background())
	msgBus.Close()
	fmt.Println("✓ Gateway stopped")

	return nil
}

// runInbound drains the inbound bus: command lines go to the commander and
// the reply returns to the invoking session; everything else is dispatched
// through the forwarding router.
func runInbound(ctx context.Context, msgBus *bus.MessageBus, commander *relay.Commander, router *relay.Router) {
	for {
		msg, ok := msgBus.ConsumeInbound(ctx)
		if !ok {
			return
		}

		text := msg.Segments.PlainText()
		if relay.IsCommand(text) {
			reply, handled := commander.Handle(ctx, msg.Origin, text)
			if handled {
				if err := msgBus.PublishOutbound(ctx, bus.OutboundMessage{
					Target:   msg.Origin,
					Segments: replyContent(reply),
				}); err != nil {
					logger.WarnCF("gateway", "Command reply dropped", map[string]any{
						"target": msg.Origin.String(),
						"error":  err.Error(),
					})
				}
				continue
			}
		}

		router.OnMessage(ctx, msg)
	}
}

func replyContent(text string) message.Content {
	return message.Content{message.Text(text)}
}
