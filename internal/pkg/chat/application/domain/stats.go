package chat

import "time"

// DailyStats is the rollup of messaging activity over one day, computed by a
// scheduled batch job purely from durable storage.
type DailyStats struct {
	Day                 time.Time `json:"day"`
	Messages            int       `json:"messages"`
	ActiveConversations int       `json:"activeConversations"`
	ActiveSenders       int       `json:"activeSenders"`
}
