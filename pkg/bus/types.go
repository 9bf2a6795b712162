package bus

import (
	"github.com/tinyland-inc/relayclaw/pkg/message"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// InboundMessage is a message received by a platform adapter, addressed by
// the UMO of the session it arrived in.
type InboundMessage struct {
	Origin     umo.UMO         `json:"origin"`
	SenderName string          `json:"sender_name"`
	SenderID   string          `json:"sender_id"`
	Segments   message.Content `json:"segments"`
	MessageID  string          `json:"message_id,omitempty"`
}

// Sender returns the message author as an annotator Sender.
func (m InboundMessage) Sender() message.Sender {
	return message.Sender{Name: m.SenderName, ID: m.SenderID}
}

// OutboundMessage is content to deliver to a target session. Outbound
// traffic never re-enters the inbound pipeline; that asymmetry is what
// makes bidirectional rule pairs safe.
type OutboundMessage struct {
	Target   umo.UMO         `json:"target"`
	Segments message.Content `json:"segments"`
}
