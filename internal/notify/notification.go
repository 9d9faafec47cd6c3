// Package notify carries engine notifications to presenters: the CLI, chat
// adapters and HTTP clients.
package notify

import (
	"time"

	"github.com/harunnryd/shukan/internal/progression"
	"github.com/harunnryd/shukan/internal/routine"

	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindToast                Kind = "toast"
	KindCelebrate            Kind = "celebrate"
	KindRewardOffered        Kind = "reward_offered"
	KindAchievementsUnlocked Kind = "achievements_unlocked"
	KindRoutineCompleted     Kind = "routine_completed"
	KindReminder             Kind = "reminder"
)

// Notification is one event for the presentation layer. Only the fields
// relevant to Kind are set.
type Notification struct {
	ID           string                    `json:"id"`
	Kind         Kind                      `json:"kind"`
	Message      string                    `json:"message,omitempty"`
	RoutineID    string                    `json:"routine_id,omitempty"`
	Reward       *progression.Reward       `json:"reward,omitempty"`
	Achievements []progression.Unlock      `json:"achievements,omitempty"`
	Completed    *routine.RoutineCompleted `json:"completed,omitempty"`
	At           time.Time                 `json:"at"`
}

func newNotification(kind Kind, at time.Time) Notification {
	return Notification{ID: ulid.Make().String(), Kind: kind, At: at}
}

func Toast(message string, at time.Time) Notification {
	n := newNotification(KindToast, at)
	n.Message = message
	return n
}

func Celebrate(at time.Time) Notification {
	return newNotification(KindCelebrate, at)
}

func RewardOffered(r progression.Reward, at time.Time) Notification {
	n := newNotification(KindRewardOffered, at)
	n.Reward = &r
	n.Message = r.Text
	n.RoutineID = r.RoutineID
	return n
}

func AchievementsUnlocked(list []progression.Unlock, at time.Time) Notification {
	n := newNotification(KindAchievementsUnlocked, at)
	n.Achievements = list
	return n
}

func RoutineCompleted(ev routine.RoutineCompleted, at time.Time) Notification {
	n := newNotification(KindRoutineCompleted, at)
	n.Completed = &ev
	n.RoutineID = ev.RoutineID
	return n
}

func Reminder(routineID, message string, at time.Time) Notification {
	n := newNotification(KindReminder, at)
	n.RoutineID = routineID
	n.Message = message
	return n
}

// Encouragements are the toasts shown after a completed session.
var Encouragements = []string{
	"Small step, big effect ✨",
	"You are laying a strong foundation.",
	"Consistency beats perfection.",
	"1% better today. That counts.",
	"Your future self says: thank you!",
}

// Encouragement picks one message with the given random index source.
func Encouragement(intN func(int) int) string {
	return Encouragements[intN(len(Encouragements))]
}
