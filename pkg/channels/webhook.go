package channels

import (
	"fmt"

	"github.com/tinyland-inc/relayclaw/pkg/umo"
)

// VirtualUsername builds the display name a webhook delivery impersonates:
// the original sender plus their home platform.
func VirtualUsername(senderName, platform string) string {
	return fmt.Sprintf("%s (%s)", senderName, umo.PlatformDisplayName(platform))
}

// AvatarURL returns a best-effort avatar for the original sender on their
// home platform, falling back to a neutral default.
func AvatarURL(platform, userID string) string {
	switch platform {
	case "aiocqhttp", "onebot", "qq":
		return fmt.Sprintf("http://q1.qlogo.cn/g?b=qq&nk=%s&s=100", userID)
	case "discord":
		return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/default.png", userID)
	default:
		return "https://cdn.discordapp.com/embed/avatars/0.png"
	}
}
