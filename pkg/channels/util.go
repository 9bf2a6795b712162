package channels

import (
	"fmt"
	"strings"

	"github.com/tinyland-inc/relayclaw/pkg/message"
)

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// chatText flattens content for adapters that deliver media natively:
// text and faces inline, plus references for media the adapter cannot
// re-upload (non-URL file IDs). HTTP media is left out so the caller can
// attach it properly.
func chatText(c message.Content) string {
	var b strings.Builder
	for _, seg := range c {
		switch seg.Type {
		case message.SegmentText:
			b.WriteString(seg.Text)
		case message.SegmentFace:
			fmt.Fprintf(&b, "[face:%s]", seg.FaceID)
		case message.SegmentImage:
			if !isHTTPURL(seg.URL) {
				fmt.Fprintf(&b, "\n[image:%s]", seg.URL)
			}
		case message.SegmentRecord:
			if !isHTTPURL(seg.URL) {
				fmt.Fprintf(&b, "\n[record:%s]", seg.URL)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
