// Package collab keeps a session's document store in step with a transient
// multi-party editing room.
package collab

import (
	"time"

	"resume-sync/internal/document"
)

// EventType names the messages exchanged over a room channel.
type EventType string

const (
	EventRemoteUpdate      EventType = "remoteUpdate"
	EventParticipantJoined EventType = "participantJoined"
	EventParticipantLeft   EventType = "participantLeft"
	EventCommentAdded      EventType = "commentAdded"
	EventCommentResolved   EventType = "commentResolved"
	EventCommentDeleted    EventType = "commentDeleted"
)

// Participant is one connected room member.
type Participant struct {
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Comment is a room-scoped annotation. Comments ride a parallel stream: they
// are not part of the document and never participate in undo/redo.
type Comment struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	Text       string    `json:"text"`
	TargetType string    `json:"targetType"`
	TargetID   string    `json:"targetId"`
	Resolved   bool      `json:"resolved"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Event is one message on a room channel.
type Event struct {
	Type        EventType          `json:"type"`
	RoomID      string             `json:"roomId"`
	SenderID    string             `json:"senderId,omitempty"`
	AuthorName  string             `json:"authorName,omitempty"`
	Document    *document.Document `json:"document,omitempty"`
	Participant *Participant       `json:"participant,omitempty"`
	Comment     *Comment           `json:"comment,omitempty"`
	CommentID   string             `json:"commentId,omitempty"`
}

// Subscription is one member's inbound event stream. Events is closed when
// the member leaves or the room shuts down.
type Subscription interface {
	Events() <-chan Event
	Close()
}

// Channel is the abstract room transport. The synchronizer is written against
// this interface so it can be tested without a live connection; Hub is the
// in-process implementation backing the HTTP surface.
type Channel interface {
	Join(roomID string, p Participant) (Subscription, error)
	Leave(roomID, userID string)
	Publish(roomID string, ev Event)
	Participants(roomID string) []Participant
}
