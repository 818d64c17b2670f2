// Package events defines the payloads carried over the domain-event medium
// and pushed to connected clients.
package events

import "encoding/json"

// User identifies the author of a posting.
type User struct {
	ID string `json:"id"`
}

// Posting is a chat post flowing through the timeline topics.
type Posting struct {
	ID        string `json:"id"`
	User      User   `json:"user"`
	Text      string `json:"text,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// PostingEvent is the payload of the redis.posting.* domain events.
type PostingEvent struct {
	Posting Posting `json:"posting"`
}

// FollowingEvent is the payload of the redis.following domain event.
type FollowingEvent struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Follow bool   `json:"follow"`
}

// Push is the envelope delivered to a connection for every stream event.
type Push struct {
	EventType string `json:"eventType"`
	Resource  any    `json:"resource"`
}

// DecodePostingEvent parses a raw domain-event payload.
func DecodePostingEvent(data []byte) (PostingEvent, error) {
	var ev PostingEvent
	err := json.Unmarshal(data, &ev)
	return ev, err
}
