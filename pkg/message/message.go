// Package message models platform-agnostic message content as an ordered
// sequence of typed segments, and builds annotated copies for forwarding.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SegmentType discriminates the segment variants on the wire.
type SegmentType string

const (
	SegmentText   SegmentType = "text"
	SegmentImage  SegmentType = "image"
	SegmentFace   SegmentType = "face"
	SegmentRecord SegmentType = "record"
	SegmentOpaque SegmentType = "opaque"
)

// Segment is one component of a message. Exactly one payload field is set,
// according to Type. Segments the engine does not understand are preserved
// as Opaque and passed through untouched.
type Segment struct {
	Type SegmentType `json:"type"`

	// Text payload, for SegmentText.
	Text string `json:"text,omitempty"`

	// URL points at image/record media, for SegmentImage and SegmentRecord.
	URL string `json:"url,omitempty"`

	// FaceID identifies a platform sticker/emote, for SegmentFace.
	FaceID string `json:"face_id,omitempty"`

	// Raw carries the original encoding of an unrecognized segment.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Content is an ordered message body.
type Content []Segment

func Text(s string) Segment     { return Segment{Type: SegmentText, Text: s} }
func Image(url string) Segment  { return Segment{Type: SegmentImage, URL: url} }
func Face(id string) Segment    { return Segment{Type: SegmentFace, FaceID: id} }
func Record(url string) Segment { return Segment{Type: SegmentRecord, URL: url} }

// Opaque wraps an unrecognized payload so it survives the relay verbatim.
func Opaque(raw json.RawMessage) Segment {
	return Segment{Type: SegmentOpaque, Raw: raw}
}

// UnmarshalJSON decodes a segment, downgrading unknown types to Opaque so a
// newer platform adapter never breaks an older relay.
func (s *Segment) UnmarshalJSON(data []byte) error {
	type alias Segment
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	switch a.Type {
	case SegmentText, SegmentImage, SegmentFace, SegmentRecord, SegmentOpaque:
		*s = Segment(a)
	default:
		*s = Segment{Type: SegmentOpaque, Raw: append(json.RawMessage(nil), data...)}
	}
	return nil
}

// PlainText flattens content to a single string: text joined in order,
// media URLs each on their own line. Used for transports that only accept
// plain text, e.g. webhook delivery.
func (c Content) PlainText() string {
	var text strings.Builder
	var media []string
	for _, seg := range c {
		switch seg.Type {
		case SegmentText:
			text.WriteString(seg.Text)
		case SegmentImage, SegmentRecord:
			if seg.URL != "" {
				media = append(media, seg.URL)
			}
		case SegmentFace:
			fmt.Fprintf(&text, "[face:%s]", seg.FaceID)
		}
	}
	out := text.String()
	if len(media) > 0 {
		if out != "" && !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += strings.Join(media, "\n")
	}
	return out
}
