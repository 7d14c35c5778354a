package chat

import "errors"

// Domain-level errors for chat behaviors
var (
	ErrNotParticipant = errors.New("chat: user is not a participant of the conversation")
	ErrNotOwner       = errors.New("chat: user is not the sender of the message")
	ErrNotFound       = errors.New("chat: conversation or message not found")
	ErrEmptyMessage   = errors.New("chat: message content is empty")
)
