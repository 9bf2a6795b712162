package channels

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/relayclaw/pkg/message"
)

func TestChatTextInlinesNonURLMedia(t *testing.T) {
	content := message.Content{
		message.Text("look"),
		message.Face("21"),
		message.Image("file-id-123"),
		message.Image("https://example.com/a.png"),
	}
	// HTTP media is attached natively by the adapter, so only the opaque
	// file ID shows up as a reference.
	require.Equal(t, "look[face:21]\n[image:file-id-123]", chatText(content))
}
