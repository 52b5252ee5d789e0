package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Personality is the closed set of coaching styles a user can pick during
// onboarding. Unknown values are tolerated on input and degrade to the
// neutral coaching instruction when the prompt is composed.
type Personality string

const (
	PersonalityEncouragementSeeker Personality = "Encouragement Seeker"
	PersonalityCreativeExplorer    Personality = "Creative Explorer"
	PersonalityGoalFinisher        Personality = "Goal Finisher"
)

// DefaultPersonality is assigned on first contact when the client sends none.
const DefaultPersonality = PersonalityEncouragementSeeker

// IsKnown reports whether p is one of the defined coaching styles.
func (p Personality) IsKnown() bool {
	switch p {
	case PersonalityEncouragementSeeker, PersonalityCreativeExplorer, PersonalityGoalFinisher:
		return true
	}
	return false
}

// User represents a chat user. The ID is the client-generated distinct ID
// (stable per device/install), not a Mongo ObjectID, so first contact can
// upsert by it directly.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID      string             `bson:"userId" json:"user_id"`
	Personality Personality        `bson:"personality" json:"personality"`
	Coins       int64              `bson:"coins" json:"coins"`
	CreatedAt   time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updated_at"`
}

// UsageDays returns how many days the user has been active, counted the way
// the coaching stages expect: ceil of the elapsed time in days, never
// negative. Any positive elapsed time rounds up, so a user's first request
// already lands on day 1; only a non-positive elapsed time yields 0.
func (u *User) UsageDays(now time.Time) int {
	elapsed := now.Sub(u.CreatedAt)
	if elapsed <= 0 {
		return 0
	}
	days := int(elapsed / (24 * time.Hour))
	if elapsed%(24*time.Hour) != 0 {
		days++
	}
	return days
}
