package handler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/workflow"
	"github.com/google/uuid"
)

// ErrDialogNotFound is returned for unknown, expired or foreign dialog ids.
var ErrDialogNotFound = errors.New("registration dialog not found")

// DialogObserver is told how many dialogs are open after every change.
type DialogObserver interface {
	SetOpenDialogs(n int)
}

// relay forwards controller notifications to whichever request currently
// drives the dialog.
type relay struct {
	mu  sync.Mutex
	out *workflow.Outbox
}

func (r *relay) Notify(n workflow.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out != nil {
		r.out.Notify(n)
	}
}

func (r *relay) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out != nil {
		r.out.Navigate(path)
	}
}

// attach routes notifications to out until the returned func is called.
func (r *relay) attach(out *workflow.Outbox) (detach func()) {
	r.mu.Lock()
	r.out = out
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		if r.out == out {
			r.out = nil
		}
		r.mu.Unlock()
	}
}

type dialog struct {
	id    string
	owner string
	reg   *workflow.Registration
	page  *workflow.EventPage
	sink  *relay
	seen  time.Time

	// held by the one request driving a submission
	submitting sync.Mutex
}

// DialogStore keeps the registration dialogs opened through the console, keyed
// by a random id and bound to the session that opened them. A dialog lives in
// memory only, so its single-submission latch holds across requests.
type DialogStore struct {
	ttl time.Duration
	now func() time.Time
	obs DialogObserver

	mu      sync.Mutex
	dialogs map[string]*dialog
}

// NewDialogStore returns a store whose idle dialogs expire after ttl.
func NewDialogStore(ttl time.Duration, obs DialogObserver) *DialogStore {
	return &DialogStore{
		ttl:     ttl,
		now:     time.Now,
		obs:     obs,
		dialogs: make(map[string]*dialog),
	}
}

func (s *DialogStore) put(d *dialog) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.id = uuid.NewString()
	d.seen = s.now()
	s.dialogs[d.id] = d
	s.report()
	return d.id
}

func (s *DialogStore) get(owner, id string) (*dialog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dialogs[id]
	if !ok || d.owner != owner {
		return nil, ErrDialogNotFound
	}
	d.seen = s.now()
	return d, nil
}

func (s *DialogStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dialogs, id)
	s.report()
}

// Len returns the number of open dialogs.
func (s *DialogStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dialogs)
}

// Prune drops dialogs idle for longer than the ttl. A dialog with a pending
// submission is kept.
func (s *DialogStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, d := range s.dialogs {
		if d.seen.Before(cutoff) && !d.reg.IsSubmitting() {
			delete(s.dialogs, id)
			n++
		}
	}
	if n > 0 {
		s.report()
	}
	return n
}

// Run prunes every interval until ctx is done.
func (s *DialogStore) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Prune()
		}
	}
}

// report must be called with mu held.
func (s *DialogStore) report() {
	if s.obs != nil {
		s.obs.SetOpenDialogs(len(s.dialogs))
	}
}
