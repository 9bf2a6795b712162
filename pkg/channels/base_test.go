package channels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/relayclaw/pkg/bus"
	"github.com/tinyland-inc/relayclaw/pkg/message"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

func TestIsAllowedEmptyListAllowsEveryone(t *testing.T) {
	c := NewBaseChannel("test", bus.NewMessageBus(), nil)
	require.True(t, c.IsAllowed("12345"))
	require.True(t, c.IsAllowed("12345|someone"))
}

func TestIsAllowedCompoundForms(t *testing.T) {
	c := NewBaseChannel("test", bus.NewMessageBus(), []string{"123|alice", "@bob", "999"})

	require.True(t, c.IsAllowed("123"))
	require.True(t, c.IsAllowed("123|alice"))
	require.True(t, c.IsAllowed("456|alice"))
	require.True(t, c.IsAllowed("777|bob"))
	require.True(t, c.IsAllowed("999"))

	require.False(t, c.IsAllowed("456"))
	require.False(t, c.IsAllowed("456|carol"))
}

func TestHandleMessagePublishesInbound(t *testing.T) {
	b := bus.NewMessageBus()
	c := NewBaseChannel("test", b, nil)
	origin := umo.MustParse("telegram:GroupMessage:42")

	c.HandleMessage(origin, "m1", "Alice", "123", message.Content{message.Text("hi")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msg, ok := b.ConsumeInbound(ctx)
	require.True(t, ok)
	require.Equal(t, origin, msg.Origin)
	require.Equal(t, "Alice", msg.SenderName)
	require.Equal(t, "hi", msg.Segments.PlainText())
}

func TestHandleMessageDropsDisallowedSender(t *testing.T) {
	b := bus.NewMessageBus()
	c := NewBaseChannel("test", b, []string{"999"})
	origin := umo.MustParse("telegram:GroupMessage:42")

	c.HandleMessage(origin, "m1", "Mallory", "123", message.Content{message.Text("hi")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := b.ConsumeInbound(ctx)
	require.False(t, ok)
}
