package chat

import "time"

// Conversation is a durable thread of messages among a fixed but mutable set
// of participants. A direct (two-party) conversation between the same pair of
// users is unique; exceeding two participants implicitly converts it to a
// group chat. UpdatedAt is the last-activity timestamp used for list ordering.
type Conversation struct {
	ID        string    `db:"id" json:"id"`
	Name      *string   `db:"name" json:"name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// hydrated relations, not columns
	Participants []Participant `json:"participants,omitempty"`
	LastMessage  *Message      `json:"lastMessage,omitempty"`
	UnreadCount  int           `json:"unreadCount"`
}

// IsDirect reports whether the conversation is a two-party chat.
func (c *Conversation) IsDirect() bool {
	return len(c.Participants) == 2
}

// HasParticipant tells whether userID is a member.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
