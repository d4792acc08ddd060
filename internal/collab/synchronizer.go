package collab

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-sync/internal/document"
	"resume-sync/internal/shared/metrics"
	"resume-sync/internal/shared/telemetry"
)

// ErrNotConnected indicates a room operation on a disconnected synchronizer.
var ErrNotConnected = errors.New("collab: not connected to a room")

// Synchronizer maps one document store onto one editing room. Inbound remote
// updates are applied with history recording and re-broadcast suppressed, so a
// collaborator's edit neither pollutes the local undo stack nor echoes back
// into the room.
type Synchronizer struct {
	store   *document.Store
	channel Channel

	mu           sync.Mutex
	roomID       string
	userID       string
	userName     string
	sub          Subscription
	connected    bool
	participants map[string]Participant
	comments     map[string]Comment
	done         chan struct{}
	taps         map[int]chan Event
	nextTap      int
}

// NewSynchronizer constructs a synchronizer bound to a store and a transport.
func NewSynchronizer(store *document.Store, channel Channel) *Synchronizer {
	return &Synchronizer{
		store:        store,
		channel:      channel,
		participants: make(map[string]Participant),
		comments:     make(map[string]Comment),
		taps:         make(map[int]chan Event),
	}
}

// Tap returns a stream of the inbound room events this synchronizer handles,
// for pushing to a connected client. The cancel func releases the tap. A slow
// consumer drops events rather than stalling the room.
func (s *Synchronizer) Tap() (<-chan Event, func()) {
	s.mu.Lock()
	id := s.nextTap
	s.nextTap++
	ch := make(chan Event, 64)
	s.taps[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if tap, ok := s.taps[id]; ok {
			delete(s.taps, id)
			close(tap)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Synchronizer) fanOut(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tap := range s.taps {
		select {
		case tap <- ev:
		default:
		}
	}
}

// Connect joins a room and starts consuming its event stream. Connecting
// while already connected leaves the previous room first.
func (s *Synchronizer) Connect(roomID, userName string) error {
	s.Disconnect()

	p := Participant{
		UserID:   uuid.NewString(),
		Name:     userName,
		JoinedAt: time.Now().UTC(),
	}
	sub, err := s.channel.Join(roomID, p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.roomID = roomID
	s.userID = p.UserID
	s.userName = userName
	s.sub = sub
	s.connected = true
	s.participants = make(map[string]Participant)
	for _, existing := range s.channel.Participants(roomID) {
		s.participants[existing.UserID] = existing
	}
	s.comments = make(map[string]Comment)
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.consume(sub, done)
	return nil
}

// Disconnect leaves the room. Local editing continues uninterrupted.
func (s *Synchronizer) Disconnect() {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return
	}
	roomID, userID := s.roomID, s.userID
	s.connected = false
	s.sub = nil
	s.mu.Unlock()

	s.channel.Leave(roomID, userID)
}

// IsConnected reports whether the room channel is live.
func (s *Synchronizer) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// RoomID returns the connected room id, empty when disconnected.
func (s *Synchronizer) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ""
	}
	return s.roomID
}

// UserID returns the local participant id for the current connection.
func (s *Synchronizer) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// BroadcastLocal sends a locally-originated document to the room. No-op when
// disconnected; the caller already holds the canonical normalized document.
func (s *Synchronizer) BroadcastLocal(doc document.Document) {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return
	}
	roomID, userID, userName := s.roomID, s.userID, s.userName
	s.mu.Unlock()

	s.channel.Publish(roomID, Event{
		Type:       EventRemoteUpdate,
		RoomID:     roomID,
		SenderID:   userID,
		AuthorName: userName,
		Document:   &doc,
	})
}

// Participants returns the current room members ordered by join time.
func (s *Synchronizer) Participants() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Comments returns the room's comments ordered by creation time.
func (s *Synchronizer) Comments() []Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Comment, 0, len(s.comments))
	for _, c := range s.comments {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// AddComment creates a comment and mirrors it to the room.
func (s *Synchronizer) AddComment(text, targetType, targetID string) (Comment, error) {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return Comment{}, ErrNotConnected
	}
	c := Comment{
		ID:         uuid.NewString(),
		Author:     s.userName,
		Text:       text,
		TargetType: targetType,
		TargetID:   targetID,
		CreatedAt:  time.Now().UTC(),
	}
	s.comments[c.ID] = c
	roomID, userID := s.roomID, s.userID
	s.mu.Unlock()

	s.channel.Publish(roomID, Event{
		Type:     EventCommentAdded,
		RoomID:   roomID,
		SenderID: userID,
		Comment:  &c,
	})
	return c, nil
}

// ResolveComment marks a comment resolved and mirrors the change.
func (s *Synchronizer) ResolveComment(commentID string) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	c, ok := s.comments[commentID]
	if ok {
		c.Resolved = true
		s.comments[commentID] = c
	}
	roomID, userID := s.roomID, s.userID
	s.mu.Unlock()

	s.channel.Publish(roomID, Event{
		Type:      EventCommentResolved,
		RoomID:    roomID,
		SenderID:  userID,
		CommentID: commentID,
	})
	return nil
}

// DeleteComment removes a comment and mirrors the change.
func (s *Synchronizer) DeleteComment(commentID string) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	delete(s.comments, commentID)
	roomID, userID := s.roomID, s.userID
	s.mu.Unlock()

	s.channel.Publish(roomID, Event{
		Type:      EventCommentDeleted,
		RoomID:    roomID,
		SenderID:  userID,
		CommentID: commentID,
	})
	return nil
}

func (s *Synchronizer) consume(sub Subscription, done chan struct{}) {
	defer close(done)
	for ev := range sub.Events() {
		s.handle(ev)
	}

	// Channel closed underneath us: surface as disconnected, keep editing
	// local. No replay is attempted on reconnect.
	s.mu.Lock()
	if s.sub == sub {
		s.connected = false
	}
	s.mu.Unlock()
}

func (s *Synchronizer) handle(ev Event) {
	defer s.fanOut(ev)
	switch ev.Type {
	case EventRemoteUpdate:
		if ev.Document == nil {
			return
		}
		// Both side effects suppressed: remote edits are not locally
		// undoable and must not echo back into the room.
		s.store.Apply(*ev.Document, document.ApplyOptions{
			Source:        document.SourceRemote,
			RecordHistory: false,
			Broadcast:     false,
		})
		metrics.IncRemoteUpdateApplied()
		telemetry.Info("collab.remote_update.applied", map[string]any{
			"room_id": ev.RoomID,
			"author":  ev.AuthorName,
		})
	case EventParticipantJoined:
		if ev.Participant == nil {
			return
		}
		s.mu.Lock()
		s.participants[ev.Participant.UserID] = *ev.Participant
		s.mu.Unlock()
	case EventParticipantLeft:
		if ev.Participant == nil {
			return
		}
		s.mu.Lock()
		delete(s.participants, ev.Participant.UserID)
		s.mu.Unlock()
	case EventCommentAdded:
		if ev.Comment == nil {
			return
		}
		s.mu.Lock()
		s.comments[ev.Comment.ID] = *ev.Comment
		s.mu.Unlock()
	case EventCommentResolved:
		s.mu.Lock()
		if c, ok := s.comments[ev.CommentID]; ok {
			c.Resolved = true
			s.comments[ev.CommentID] = c
		}
		s.mu.Unlock()
	case EventCommentDeleted:
		s.mu.Lock()
		delete(s.comments, ev.CommentID)
		s.mu.Unlock()
	}
}
