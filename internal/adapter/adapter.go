package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/harunnryd/shukan/internal/notify"
)

// OutputAdapter delivers notification text to an external chat.
type OutputAdapter interface {
	// Name returns the adapter name (e.g. "slack", "telegram").
	Name() string

	// Start connects to the platform. Must respect context cancellation.
	Start(ctx context.Context) error

	// Send posts content to the configured chat or channel.
	Send(ctx context.Context, content string) error

	// Health checks if the adapter can send messages.
	Health(ctx context.Context) error
}

// Format renders a notification as chat text. Kinds that only make sense
// on a local screen report false.
func Format(n notify.Notification) (string, bool) {
	switch n.Kind {
	case notify.KindToast:
		return n.Message, n.Message != ""
	case notify.KindReminder:
		return "⏰ " + n.Message, true
	case notify.KindRewardOffered:
		if n.Reward == nil {
			return "", false
		}
		return "🎁 " + n.Reward.Text, true
	case notify.KindAchievementsUnlocked:
		if len(n.Achievements) == 0 {
			return "", false
		}
		labels := make([]string, 0, len(n.Achievements))
		for _, a := range n.Achievements {
			labels = append(labels, a.Label)
		}
		return fmt.Sprintf("🏆 Unlocked: %s", strings.Join(labels, ", ")), true
	default:
		return "", false
	}
}
