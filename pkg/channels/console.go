package channels

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/relayclaw/pkg/bus"
	"github.com/tinyland-inc/relayclaw/pkg/message"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// ConsoleOrigin is the UMO the local operator's console appears as.
var ConsoleOrigin = umo.UMO{Platform: "console", Kind: umo.FriendMessage, ID: "operator"}

// ConsoleChannel is a readline REPL for local testing: each line becomes an
// inbound message from ConsoleOrigin, and deliveries to console sessions
// print to stdout.
type ConsoleChannel struct {
	*BaseChannel
	rl *readline.Instance
}

func NewConsoleChannel(b *bus.MessageBus) *ConsoleChannel {
	return &ConsoleChannel{
		BaseChannel: NewBaseChannel("console", b, nil),
	}
}

func (c *ConsoleChannel) Start(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "relayclaw> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".relayclaw_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("console init: %w", err)
	}
	c.rl = rl

	go c.readLoop(ctx)
	c.SetRunning(true)
	return nil
}

func (c *ConsoleChannel) Stop(_ context.Context) error {
	c.SetRunning(false)
	if c.rl != nil {
		return c.rl.Close()
	}
	return nil
}

func (c *ConsoleChannel) readLoop(ctx context.Context) {
	seq := 0
	for ctx.Err() == nil {
		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				c.SetRunning(false)
				return
			}
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seq++
		c.HandleMessage(ConsoleOrigin, fmt.Sprintf("console-%d", seq), "operator", "operator",
			message.Content{message.Text(line)})
	}
}

func (c *ConsoleChannel) Send(_ context.Context, target umo.UMO, content message.Content) error {
	text := content.PlainText()
	if text == "" {
		return nil
	}
	if c.rl != nil {
		fmt.Fprintf(c.rl.Stdout(), "[%s] %s\n", target.String(), text)
	} else {
		fmt.Printf("[%s] %s\n", target.String(), text)
	}
	return nil
}
