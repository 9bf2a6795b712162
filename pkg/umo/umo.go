// Package umo defines the Unified Message Origin: the canonical identifier
// for a conversation endpoint across platform, session kind and session ID.
package umo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedUMO is returned by Parse for strings that are not a
// three-field "platform:kind:id" identifier.
var ErrMalformedUMO = errors.New("malformed UMO")

// SessionKind is the conversation kind portion of a UMO. The set is open:
// unknown kinds round-trip verbatim so new platforms don't need code changes.
type SessionKind string

const (
	GroupMessage  SessionKind = "GroupMessage"
	FriendMessage SessionKind = "FriendMessage"
)

// UMO identifies one conversation endpoint. Zero value is invalid.
// UMO is comparable and safe to use as a map key.
type UMO struct {
	Platform string      `json:"platform"`
	Kind     SessionKind `json:"kind"`
	ID       string      `json:"id"`
}

// Parse splits s into exactly three non-empty colon-separated fields.
func Parse(s string) (UMO, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return UMO{}, fmt.Errorf("%w: %q (want platform:kind:id)", ErrMalformedUMO, s)
	}
	for _, p := range parts {
		if p == "" {
			return UMO{}, fmt.Errorf("%w: %q (empty field)", ErrMalformedUMO, s)
		}
	}
	return UMO{Platform: parts[0], Kind: SessionKind(parts[1]), ID: parts[2]}, nil
}

// MustParse is Parse that panics on error. For tests and literals only.
func MustParse(s string) UMO {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String renders the canonical "platform:kind:id" form, the inverse of Parse.
func (u UMO) String() string {
	return u.Platform + ":" + string(u.Kind) + ":" + u.ID
}

// IsZero reports whether u is the zero UMO.
func (u UMO) IsZero() bool {
	return u == UMO{}
}

// MarshalJSON encodes the UMO as its canonical string form, matching the
// wire format of the persisted rule and pending files.
func (u UMO) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *UMO) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// PlatformDisplayName maps internal platform identifiers to names users
// recognize in provenance headers.
func PlatformDisplayName(platform string) string {
	switch platform {
	case "aiocqhttp", "onebot", "qq":
		return "QQ"
	case "discord":
		return "Discord"
	case "telegram":
		return "Telegram"
	case "slack":
		return "Slack"
	case "wechatpadpro":
		return "WeChat"
	default:
		return platform
	}
}

// SessionDisplay renders the kind+ID portion of a UMO as a human phrase.
func (u UMO) SessionDisplay() string {
	switch u.Kind {
	case GroupMessage:
		return fmt.Sprintf("group %s", u.ID)
	case FriendMessage:
		return fmt.Sprintf("direct chat with %s", u.ID)
	default:
		return fmt.Sprintf("%s %s", u.Kind, u.ID)
	}
}
