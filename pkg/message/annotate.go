package message

import (
	"fmt"

	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// Sender identifies the original author of a forwarded message.
type Sender struct {
	Name string
	ID   string
}

// HeaderFor formats the provenance header prepended to forwarded content:
// who sent the message and which session it came from.
func HeaderFor(sender Sender, source, target umo.UMO) string {
	return fmt.Sprintf(
		"[forwarded] %s (%s)\nfrom %s %s\n%s -> %s",
		sender.Name,
		sender.ID,
		umo.PlatformDisplayName(source.Platform),
		source.SessionDisplay(),
		source.String(),
		target.String(),
	)
}

// Annotate returns a new Content with a provenance header segment followed
// by the inbound segments. The inbound slice is never mutated and its
// segments are shared, not re-encoded, so media passes through byte-identical.
func Annotate(inbound Content, sender Sender, source, target umo.UMO) Content {
	out := make(Content, 0, len(inbound)+1)
	out = append(out, Text(HeaderFor(sender, source, target)+"\n"))
	out = append(out, inbound...)
	return out
}
