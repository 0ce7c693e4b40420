// Package backendtest provides an in-memory implementation of the dojo REST API
// for tests of the client, the workflow controllers and the console server.
package backendtest

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when an event has no remaining slots.
var ErrEventFull = errors.New("event is fully booked")

// ErrAlreadyRegistered is returned when the same email registers twice.
var ErrAlreadyRegistered = errors.New("email already registered for this event")

// Store holds events and participants behind a single mutex, which plays the
// part of the backend's row lock: the capacity check and the slot decrement of
// a registration happen atomically.
type Store struct {
	mu           sync.Mutex
	events       map[string]*model.Event
	order        []string
	participants map[string]*model.Participant
	seq          map[string]int
	next         int
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		events:       make(map[string]*model.Event),
		participants: make(map[string]*model.Participant),
		seq:          make(map[string]int),
	}
}

// ─── Events ───────────────────────────────────────────────────────────────────

// SeedEvent inserts e as-is, generating an id when e has none.
func (s *Store) SeedEvent(e model.Event) model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	s.events[e.ID] = &e
	s.order = append(s.order, e.ID)
	return e
}

// CreateEvent inserts a new event and returns it with a generated UUID.
func (s *Store) CreateEvent(p model.EventPayload) model.Event {
	return s.SeedEvent(model.Event{
		UserID:         p.UserID,
		Name:           p.Name,
		Bio:            p.Bio,
		ParticipantNbr: p.ParticipantNbr,
		Prix:           p.Prix,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
	})
}

// UpdateEvent replaces the mutable fields of an event.
func (s *Store) UpdateEvent(id string, p model.EventPayload) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	e.Name = p.Name
	e.Bio = p.Bio
	e.ParticipantNbr = p.ParticipantNbr
	e.Prix = p.Prix
	e.StartDate = p.StartDate
	e.EndDate = p.EndDate
	return *e, nil
}

// DeleteEvent removes an event and its roster.
func (s *Store) DeleteEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	for i, eid := range s.order {
		if eid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for pid, p := range s.participants {
		if p.EventID == id {
			delete(s.participants, pid)
		}
	}
	return nil
}

// GetEvent returns a single event or ErrNotFound.
func (s *Store) GetEvent(id string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return *e, nil
}

// ListEvents returns all events in creation order.
func (s *Store) ListEvents() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Event, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.events[id])
	}
	return out
}

// ─── Participants ─────────────────────────────────────────────────────────────

// Register books one slot of an event for the participant described by p.
func (s *Store) Register(p model.ParticipantPayload) (model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[p.EventID]
	if !ok {
		return model.Participant{}, ErrNotFound
	}

	for _, existing := range s.participants {
		if existing.EventID == p.EventID && strings.EqualFold(existing.Email, p.Email) {
			return model.Participant{}, ErrAlreadyRegistered
		}
	}

	if e.ParticipantNbr <= 0 {
		return model.Participant{}, ErrEventFull
	}
	e.ParticipantNbr--

	part := &model.Participant{
		ID:        uuid.New().String(),
		EventID:   p.EventID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
	}
	s.participants[part.ID] = part
	s.next++
	s.seq[part.ID] = s.next
	return *part, nil
}

// ListParticipants returns the roster of an event in registration order.
func (s *Store) ListParticipants(eventID string) ([]model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return nil, ErrNotFound
	}

	var out []model.Participant
	for _, p := range s.participants {
		if p.EventID == eventID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

// DeleteParticipant removes a participant and frees their slot.
func (s *Store) DeleteParticipant(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[id]
	if !ok {
		return ErrNotFound
	}
	if e, ok := s.events[p.EventID]; ok {
		e.ParticipantNbr++
	}
	delete(s.participants, id)
	delete(s.seq, id)
	return nil
}

// UpdateParticipant replaces the contact fields of a participant.
func (s *Store) UpdateParticipant(id string, p model.ParticipantPayload) (model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.participants[id]
	if !ok {
		return model.Participant{}, ErrNotFound
	}
	existing.FirstName = p.FirstName
	existing.LastName = p.LastName
	existing.Email = p.Email
	existing.Phone = p.Phone
	return *existing, nil
}
