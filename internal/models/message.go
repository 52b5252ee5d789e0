package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message roles. The original mobile client renders exactly these two.
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// Message is one turn of a user's conversation. Messages are append-only;
// the only deletion path is the retention trim that drops the oldest rows
// beyond the retained window.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    string             `bson:"userId" json:"user_id"`
	Role      string             `bson:"role" json:"role"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
}

// HistoryMessage is the wire form of a message for the history endpoint.
type HistoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToHistory converts a stored message to its wire form.
func (m *Message) ToHistory() HistoryMessage {
	return HistoryMessage{
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
