package status

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/relayclaw/cmd/relayclaw/internal"
	"github.com/tinyland-inc/relayclaw/pkg/store"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and rule store summary",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return statusCmd()
		},
	}
}

func statusCmd() error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	fmt.Printf("%s relayclaw v%s\n\n", internal.Logo, internal.FormatVersion())
	fmt.Printf("Config:  %s\n", internal.GetConfigPath())
	fmt.Printf("Storage: %s\n", cfg.StorageDir())

	if _, err := os.Stat(cfg.StorageDir()); os.IsNotExist(err) {
		fmt.Println("\nStorage directory does not exist yet; run the gateway once to create it.")
		return nil
	}

	rules, err := store.NewRuleStore(cfg.RulesPath())
	if err != nil {
		return fmt.Errorf("error loading rules: %w", err)
	}
	pending, err := store.NewPendingStore(cfg.PendingPath(), time.Duration(cfg.Relay.PendingTTLHours)*time.Hour)
	if err != nil {
		return fmt.Errorf("error loading pending requests: %w", err)
	}

	fmt.Printf("\nRules: %d\n", rules.Len())
	for _, r := range rules.ListAll() {
		fmt.Printf("  %s -> %s\n", r.Source, r.Target)
	}
	fmt.Printf("Pending requests: %d\n", pending.Len())

	enabled := []string{}
	if cfg.Channels.Telegram.Enabled {
		enabled = append(enabled, "telegram")
	}
	if cfg.Channels.Discord.Enabled {
		enabled = append(enabled, "discord")
	}
	if cfg.Channels.Slack.Enabled {
		enabled = append(enabled, "slack")
	}
	if cfg.Channels.OneBot.Enabled {
		enabled = append(enabled, "onebot")
	}
	if cfg.Channels.Console.Enabled {
		enabled = append(enabled, "console")
	}
	fmt.Printf("Channels: %v\n", enabled)

	return nil
}
