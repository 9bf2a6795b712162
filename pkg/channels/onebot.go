package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tinyland-inc/relayclaw/pkg/bus"
	"github.com/tinyland-inc/relayclaw/pkg/config"
	"github.com/tinyland-inc/relayclaw/pkg/logger"
	"github.com/tinyland-inc/relayclaw/pkg/message"
	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// OneBotChannel bridges QQ sessions through a OneBot v11 host (go-cqhttp,
// NapCat, Lagrange) over a forward websocket connection.
type OneBotChannel struct {
	*BaseChannel
	cfg config.OneBotConfig

	mu   sync.Mutex
	conn *websocket.Conn
}

// onebotEvent is the subset of a OneBot v11 event we act on.
type onebotEvent struct {
	PostType    string            `json:"post_type"`
	MessageType string            `json:"message_type"`
	GroupID     int64             `json:"group_id"`
	UserID      int64             `json:"user_id"`
	MessageID   json.Number       `json:"message_id"`
	Message     []json.RawMessage `json:"message"`
	Sender      struct {
		UserID   int64  `json:"user_id"`
		Nickname string `json:"nickname"`
		Card     string `json:"card"`
	} `json:"sender"`
}

// onebotSegment is the wire form of a message segment.
type onebotSegment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func NewOneBotChannel(cfg config.OneBotConfig, b *bus.MessageBus) *OneBotChannel {
	return &OneBotChannel{
		BaseChannel: NewBaseChannel("onebot", b, cfg.AllowFrom),
		cfg:         cfg,
	}
}

func (c *OneBotChannel) Start(ctx context.Context) error {
	go c.connectLoop(ctx)
	c.SetRunning(true)
	return nil
}

func (c *OneBotChannel) Stop(_ context.Context) error {
	c.SetRunning(false)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// connectLoop dials the OneBot host and reconnects after failures until
// ctx is cancelled.
func (c *OneBotChannel) connectLoop(ctx context.Context) {
	interval := time.Duration(c.cfg.ReconnectInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	for ctx.Err() == nil {
		if err := c.runConnection(ctx); err != nil && ctx.Err() == nil {
			logger.WarnCF("onebot", "Connection lost, reconnecting", map[string]any{
				"url":   c.cfg.WSUrl,
				"error": err.Error(),
			})
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (c *OneBotChannel) runConnection(ctx context.Context) error {
	header := http.Header{}
	if c.cfg.AccessToken != "" {
		header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.WSUrl, header)
	if err != nil {
		return fmt.Errorf("onebot dial %s: %w", c.cfg.WSUrl, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	logger.InfoCF("onebot", "Connected", map[string]any{"url": c.cfg.WSUrl})

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			return err
		}
		c.handleEvent(data)
	}
}

func (c *OneBotChannel) handleEvent(data []byte) {
	var ev onebotEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		logger.WarnCF("onebot", "Unparseable event", map[string]any{"error": err.Error()})
		return
	}
	if ev.PostType != "message" {
		return
	}

	var origin umo.UMO
	switch ev.MessageType {
	case "group":
		origin = umo.UMO{Platform: "onebot", Kind: umo.GroupMessage, ID: strconv.FormatInt(ev.GroupID, 10)}
	case "private":
		origin = umo.UMO{Platform: "onebot", Kind: umo.FriendMessage, ID: strconv.FormatInt(ev.UserID, 10)}
	default:
		return
	}

	segments := decodeOneBotSegments(ev.Message)
	if len(segments) == 0 {
		return
	}

	name := ev.Sender.Card
	if name == "" {
		name = ev.Sender.Nickname
	}
	if name == "" {
		name = strconv.FormatInt(ev.UserID, 10)
	}

	c.HandleMessage(origin, ev.MessageID.String(), name, strconv.FormatInt(ev.UserID, 10), segments)
}

// decodeOneBotSegments converts wire segments to relay content. Types the
// relay does not model ride through as Opaque and are re-emitted verbatim
// on send.
func decodeOneBotSegments(raw []json.RawMessage) message.Content {
	var out message.Content
	for _, r := range raw {
		var seg onebotSegment
		if err := json.Unmarshal(r, &seg); err != nil {
			continue
		}
		switch seg.Type {
		case "text":
			if s, _ := seg.Data["text"].(string); s != "" {
				out = append(out, message.Text(s))
			}
		case "image":
			url, _ := seg.Data["url"].(string)
			if url == "" {
				url, _ = seg.Data["file"].(string)
			}
			if url != "" {
				out = append(out, message.Image(url))
			}
		case "face":
			switch id := seg.Data["id"].(type) {
			case string:
				out = append(out, message.Face(id))
			case float64:
				out = append(out, message.Face(strconv.FormatInt(int64(id), 10)))
			}
		case "record":
			url, _ := seg.Data["url"].(string)
			if url == "" {
				url, _ = seg.Data["file"].(string)
			}
			if url != "" {
				out = append(out, message.Record(url))
			}
		default:
			out = append(out, message.Opaque(append(json.RawMessage(nil), r...)))
		}
	}
	return out
}

// encodeOneBotSegments converts relay content back to the wire form.
func encodeOneBotSegments(content message.Content) []json.RawMessage {
	var out []json.RawMessage
	marshal := func(seg onebotSegment) {
		if data, err := json.Marshal(seg); err == nil {
			out = append(out, data)
		}
	}
	for _, seg := range content {
		switch seg.Type {
		case message.SegmentText:
			marshal(onebotSegment{Type: "text", Data: map[string]any{"text": seg.Text}})
		case message.SegmentImage:
			marshal(onebotSegment{Type: "image", Data: map[string]any{"file": seg.URL}})
		case message.SegmentFace:
			marshal(onebotSegment{Type: "face", Data: map[string]any{"id": seg.FaceID}})
		case message.SegmentRecord:
			marshal(onebotSegment{Type: "record", Data: map[string]any{"file": seg.URL}})
		case message.SegmentOpaque:
			if len(seg.Raw) > 0 {
				out = append(out, seg.Raw)
			}
		}
	}
	return out
}

func (c *OneBotChannel) Send(_ context.Context, target umo.UMO, content message.Content) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("onebot not connected")
	}

	id, err := strconv.ParseInt(target.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("onebot session ID %q: %w", target.ID, err)
	}

	segments := encodeOneBotSegments(content)
	if len(segments) == 0 {
		return nil
	}

	action := "send_private_msg"
	params := map[string]any{"user_id": id, "message": segments}
	if target.Kind == umo.GroupMessage {
		action = "send_group_msg"
		params = map[string]any{"group_id": id, "message": segments}
	}

	payload := map[string]any{"action": action, "params": params}

	// gorilla/websocket allows one concurrent writer.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("onebot not connected")
	}
	if err := c.conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("onebot %s: %w", action, err)
	}
	return nil
}
