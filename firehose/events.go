package firehose

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventProfileCreated EventKind = "profile_created"
	EventPostCreated    EventKind = "post_created"
	EventFollowed       EventKind = "followed"
	EventUnfollowed     EventKind = "unfollowed"
	EventPostLiked      EventKind = "post_liked"
)

// Event describes one accepted ledger mutation. Actor is the caller that
// triggered it; Subject is the other account involved, if any.
type Event struct {
	ID      string    `json:"id"`
	Kind    EventKind `json:"kind"`
	Actor   string    `json:"actor"`
	Subject string    `json:"subject,omitempty"`
	PostID  int64     `json:"post_id,omitempty"`
	Time    time.Time `json:"time"`
}

func NewEvent(kind EventKind, actor, subject string, postID int64) Event {
	return Event{
		ID:      uuid.NewString(),
		Kind:    kind,
		Actor:   actor,
		Subject: subject,
		PostID:  postID,
		Time:    time.Now().UTC(),
	}
}
