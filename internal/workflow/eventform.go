package workflow

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/backend"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/session"
)

// EventForm backs the create and edit event forms.
type EventForm struct {
	api  EventAPI
	sess session.Session
	note Notifier
	nav  Navigator
	opts options

	// eventID is empty when the form creates a new event.
	eventID string

	mu         sync.Mutex
	draft      model.EventDraft
	errors     FieldErrors
	submitting bool
}

// NewEventForm returns a form that creates events owned by sess.
func NewEventForm(api EventAPI, sess session.Session, n Notifier, nav Navigator, opts ...Option) *EventForm {
	return &EventForm{
		api:  api,
		sess: sess,
		note: notifierOrDiscard(n),
		nav:  navigatorOrDiscard(nav),
		opts: buildOptions(opts),
	}
}

// EditEventForm returns a form that updates e, prefilled with its values.
func EditEventForm(api EventAPI, sess session.Session, e model.Event, n Notifier, nav Navigator, opts ...Option) *EventForm {
	f := NewEventForm(api, sess, n, nav, opts...)
	f.eventID = e.ID
	f.draft = DraftFromEvent(e, f.opts.loc)
	return f
}

// DraftFromEvent renders e the way the form's inputs show it.
func DraftFromEvent(e model.Event, loc *time.Location) model.EventDraft {
	const layout = "2006-01-02T15:04"
	return model.EventDraft{
		Name:           e.Name,
		Bio:            e.Bio,
		ParticipantNbr: strconv.Itoa(e.ParticipantNbr),
		Prix:           strconv.FormatFloat(e.Prix, 'f', 2, 64),
		StartDate:      e.StartDate.In(loc).Format(layout),
		EndDate:        e.EndDate.In(loc).Format(layout),
	}
}

// Creating reports whether the form creates rather than updates.
func (f *EventForm) Creating() bool {
	return f.eventID == ""
}

// Validate checks d without touching the form state.
func (f *EventForm) Validate(d model.EventDraft) (model.ValidatedEvent, FieldErrors) {
	return validateEvent(d, f.opts.now(), f.opts.loc, f.Creating())
}

// Submit validates d and sends it to the backend. Local violations come back as
// FieldErrors without a network call. A backend rejection is notified with its
// message verbatim and returned; the draft stays in the form either way.
func (f *EventForm) Submit(ctx context.Context, d model.EventDraft) (*model.Event, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	f.draft = d
	v, errs := f.Validate(d)
	f.errors = errs
	if errs != nil {
		f.mu.Unlock()
		return nil, errs
	}
	if f.sess.UserID == "" {
		f.mu.Unlock()
		return nil, session.ErrNoSession
	}
	f.submitting = true
	f.mu.Unlock()

	payload := model.EventPayload{
		Name:           v.Name,
		Bio:            v.Bio,
		ParticipantNbr: v.ParticipantNbr,
		Prix:           v.Prix,
		StartDate:      v.StartDate,
		EndDate:        v.EndDate,
		UserID:         f.sess.UserID,
	}

	var (
		e   *model.Event
		err error
	)
	if f.Creating() {
		e, err = f.api.CreateEvent(ctx, payload)
	} else {
		e, err = f.api.UpdateEvent(ctx, f.eventID, payload)
	}

	f.mu.Lock()
	f.submitting = false
	if err != nil {
		re := backend.AsRequestError(err)
		f.errors = FieldErrors(re.FieldErrors).clone()
		f.mu.Unlock()

		f.opts.log.Warn("event submit failed", "event_id", f.eventID, "status", re.Status, "error", err)
		f.note.Notify(failure(f.verb("Could not create event", "Could not update event"), re.UserMessage()))
		return nil, fmt.Errorf("submit event: %w", err)
	}
	f.mu.Unlock()

	f.note.Notify(success(f.verb("Event created", "Event updated"), e.Name))
	f.nav.Navigate("/events/" + e.ID)
	return e, nil
}

// Draft returns the values last submitted (or prefilled).
func (f *EventForm) Draft() model.EventDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Errors returns the field errors of the last submit.
func (f *EventForm) Errors() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors.clone()
}

// IsSubmitting reports whether a submit is waiting for the backend.
func (f *EventForm) IsSubmitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

func (f *EventForm) verb(create, update string) string {
	if f.Creating() {
		return create
	}
	return update
}
