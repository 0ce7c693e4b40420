package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/backend"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
)

// EventPage is the detail view of one event: its header, capacity gate and
// roster. It is the Reloader of the registration dialogs it opens.
type EventPage struct {
	events       EventAPI
	participants ParticipantAPI
	note         Notifier
	nav          Navigator
	opts         []Option
	o            options

	Roster *Roster

	mu      sync.Mutex
	eventID string
	event   *model.Event
}

// NewEventPage returns an unloaded page.
func NewEventPage(events EventAPI, participants ParticipantAPI, n Notifier, nav Navigator, opts ...Option) *EventPage {
	n = notifierOrDiscard(n)
	return &EventPage{
		events:       events,
		participants: participants,
		note:         n,
		nav:          navigatorOrDiscard(nav),
		opts:         opts,
		o:            buildOptions(opts),
		Roster:       NewRoster(participants, n, opts...),
	}
}

// Load fetches the event and its roster. Both are attempted; the first error
// is returned.
func (p *EventPage) Load(ctx context.Context, eventID string) error {
	var errs []error
	if err := p.LoadEvent(ctx, eventID); err != nil {
		errs = append(errs, err)
	}
	if err := p.Roster.Load(ctx, eventID); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// LoadEvent binds the page to eventID and fetches the event without its
// roster.
func (p *EventPage) LoadEvent(ctx context.Context, eventID string) error {
	p.mu.Lock()
	p.eventID = eventID
	p.mu.Unlock()

	e, err := p.events.GetEvent(ctx, eventID)
	if err != nil {
		re := backend.AsRequestError(err)
		p.o.log.Warn("load event failed", "event_id", eventID, "status", re.Status, "error", err)
		p.note.Notify(failure("Could not load event", re.UserMessage()))
		return fmt.Errorf("load event: %w", err)
	}
	p.mu.Lock()
	p.event = e
	p.mu.Unlock()
	return nil
}

// Reload re-fetches the event and roster of the last Load.
func (p *EventPage) Reload(ctx context.Context) error {
	p.mu.Lock()
	id := p.eventID
	p.mu.Unlock()
	if id == "" {
		return ErrNotLoaded
	}
	return p.Load(ctx, id)
}

// Event returns the last fetched event.
func (p *EventPage) Event() (model.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.event == nil {
		return model.Event{}, false
	}
	return *p.event, true
}

// Gate returns the registration control for the last fetched event. Before the
// first successful load the control is disabled.
func (p *EventPage) Gate() Gate {
	e, ok := p.Event()
	if !ok {
		return Gate{Disabled: true, Label: LabelRegister}
	}
	return GateFor(e)
}

// OpenRegistration opens a registration dialog for the event unless it is
// sold out.
func (p *EventPage) OpenRegistration() (*Registration, error) {
	e, ok := p.Event()
	if !ok {
		return nil, ErrNotLoaded
	}
	if IsSoldOut(e) {
		return nil, ErrSoldOut
	}
	r := NewRegistration(p.participants, e.ID, p.note, p, p.opts...)
	r.Open()
	return r, nil
}

// Delete removes the event and navigates back to the event list.
func (p *EventPage) Delete(ctx context.Context) error {
	p.mu.Lock()
	id := p.eventID
	p.mu.Unlock()
	if id == "" {
		return ErrNotLoaded
	}

	if err := p.events.DeleteEvent(ctx, id); err != nil {
		re := backend.AsRequestError(err)
		p.o.log.Warn("delete event failed", "event_id", id, "status", re.Status, "error", err)
		p.note.Notify(failure("Could not delete event", re.UserMessage()))
		return fmt.Errorf("delete event: %w", err)
	}
	p.note.Notify(success("Event deleted", ""))
	p.nav.Navigate("/events")
	return nil
}

// ─── Event list ───────────────────────────────────────────────────────────────

// ListItem is one event with its registration control.
type ListItem struct {
	Event model.Event `json:"event"`
	Gate  Gate        `json:"gate"`
}

// EventList is the index of events.
type EventList struct {
	api  EventAPI
	note Notifier
	opts options

	mu      sync.Mutex
	events  []model.Event
	pending int
}

// NewEventList returns an unloaded list.
func NewEventList(api EventAPI, n Notifier, opts ...Option) *EventList {
	return &EventList{api: api, note: notifierOrDiscard(n), opts: buildOptions(opts)}
}

// Load fetches every event. On failure the previous list stays.
func (l *EventList) Load(ctx context.Context) error {
	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	events, err := l.api.ListEvents(ctx)

	l.mu.Lock()
	l.pending--
	if err == nil {
		l.events = events
	}
	l.mu.Unlock()

	if err != nil {
		re := backend.AsRequestError(err)
		l.opts.log.Warn("load events failed", "status", re.Status, "error", err)
		l.note.Notify(failure("Could not load events", re.UserMessage()))
		return fmt.Errorf("load events: %w", err)
	}
	return nil
}

// Items returns the last fetched events with their gates.
func (l *EventList) Items() []ListItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ListItem, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, ListItem{Event: e, Gate: GateFor(e)})
	}
	return out
}

// Loading reports whether a fetch is pending.
func (l *EventList) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending > 0
}
