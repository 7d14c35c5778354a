package chat

import "time"

// Participant captures membership of one user in one conversation together
// with their read progress. Primary key: (ConversationID, UserID).
// LastReadAt nil means the user has never read the conversation.
type Participant struct {
	ConversationID string     `db:"conversation_id" json:"conversationId"`
	UserID         string     `db:"user_id" json:"userId"`
	JoinedAt       time.Time  `db:"joined_at" json:"joinedAt"`
	LastReadAt     *time.Time `db:"last_read_at" json:"lastReadAt,omitempty"`
}

// HasRead reports whether the participant had read the conversation at or
// after the given instant.
func (p *Participant) HasRead(at time.Time) bool {
	return p.LastReadAt != nil && !p.LastReadAt.Before(at)
}
