package collab

import (
	"sort"
	"sync"

	"resume-sync/internal/shared/telemetry"
)

const memberBuffer = 64

// Hub is the in-process Channel implementation. Rooms are created on first
// join and dropped when the last member leaves; there is no replay on
// reconnect, consistency is re-established by the next update.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	members map[string]*member
}

type member struct {
	participant Participant
	events      chan Event
	closed      bool
}

type subscription struct {
	hub    *Hub
	roomID string
	userID string
	events chan Event
}

func (s *subscription) Events() <-chan Event { return s.events }

func (s *subscription) Close() { s.hub.Leave(s.roomID, s.userID) }

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

// Join adds a participant to a room, creating the room on first join. The
// join is announced to the other members.
func (h *Hub) Join(roomID string, p Participant) (Subscription, error) {
	h.mu.Lock()
	rm, ok := h.rooms[roomID]
	if !ok {
		rm = &room{members: make(map[string]*member)}
		h.rooms[roomID] = rm
	}
	// Rejoining with the same user id replaces the previous subscription.
	if prev, ok := rm.members[p.UserID]; ok && !prev.closed {
		prev.closed = true
		close(prev.events)
	}
	m := &member{participant: p, events: make(chan Event, memberBuffer)}
	rm.members[p.UserID] = m
	h.mu.Unlock()

	h.Publish(roomID, Event{
		Type:        EventParticipantJoined,
		RoomID:      roomID,
		SenderID:    p.UserID,
		Participant: &p,
	})

	return &subscription{hub: h, roomID: roomID, userID: p.UserID, events: m.events}, nil
}

// Leave removes a participant and announces the departure. Leaving a room or
// user that does not exist is a no-op.
func (h *Hub) Leave(roomID, userID string) {
	h.mu.Lock()
	rm, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	m, ok := rm.members[userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(rm.members, userID)
	if len(rm.members) == 0 {
		delete(h.rooms, roomID)
	}
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	participant := m.participant
	h.mu.Unlock()

	h.Publish(roomID, Event{
		Type:        EventParticipantLeft,
		RoomID:      roomID,
		SenderID:    userID,
		Participant: &participant,
	})
}

// Publish delivers ev to every room member except the sender. Delivery is
// best-effort: a member whose buffer is full misses the event, which the next
// update makes up for.
func (h *Hub) Publish(roomID string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for id, m := range rm.members {
		if id == ev.SenderID || m.closed {
			continue
		}
		select {
		case m.events <- ev:
		default:
			telemetry.Warn("collab.hub.event_dropped", map[string]any{
				"room_id": roomID,
				"user_id": m.participant.UserID,
				"type":    string(ev.Type),
			})
		}
	}
}

// Participants returns the room's members ordered by join time.
func (h *Hub) Participants(roomID string) []Participant {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]Participant, 0, len(rm.members))
	for _, m := range rm.members {
		out = append(out, m.participant)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}
