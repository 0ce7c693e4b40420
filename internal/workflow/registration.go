package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/backend"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
)

// State is the lifecycle position of a registration dialog. StateSuccess and
// StateFailed name the outcomes of a submission; State never reports them, as a
// success settles in StateIdle and a failure in StateEditing.
type State int

const (
	StateIdle State = iota
	StateEditing
	StateSubmitting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText lets State appear by name in JSON view models.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for c := StateIdle; c <= StateFailed; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown registration state %q", b)
}

// Registration is the dialog that registers one participant for a fixed event.
//
// Success and Failed are transient: a success closes the dialog (back to Idle)
// and a failure returns it to Editing with the errors annotated. Only one
// submission may be in flight at a time.
type Registration struct {
	api     ParticipantAPI
	eventID string
	note    Notifier
	reload  Reloader
	opts    options

	mu     sync.Mutex
	state  State
	draft  model.ParticipantDraft
	errors FieldErrors
}

// NewRegistration returns a closed dialog bound to eventID. reload, when not
// nil, is called after every successful registration.
func NewRegistration(api ParticipantAPI, eventID string, n Notifier, reload Reloader, opts ...Option) *Registration {
	return &Registration{
		api:     api,
		eventID: eventID,
		note:    notifierOrDiscard(n),
		reload:  reload,
		opts:    buildOptions(opts),
	}
}

// EventID returns the event the dialog registers for.
func (r *Registration) EventID() string {
	return r.eventID
}

// Open shows the dialog. Opening an open dialog keeps its draft.
func (r *Registration) Open() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateIdle {
		r.state = StateEditing
	}
}

// Close hides the dialog and discards the draft. A dialog cannot be closed
// while its submission is pending.
func (r *Registration) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	r.state = StateIdle
	r.draft = model.ParticipantDraft{}
	r.errors = nil
	return nil
}

// UpdateField sets one draft field by its wire name and clears its error.
func (r *Registration) UpdateField(name, value string) error {
	return r.UpdateFields(map[string]string{name: value})
}

// UpdateFields sets several draft fields by wire name and clears their
// errors. Nothing is applied when any name is unknown.
func (r *Registration) UpdateFields(fields map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateSubmitting:
		return ErrSubmitInProgress
	case StateEditing:
	default:
		return ErrDialogClosed
	}

	for name := range fields {
		if draftField(&r.draft, name) == nil {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}
	for name, value := range fields {
		*draftField(&r.draft, name) = value
		delete(r.errors, name)
	}
	return nil
}

func draftField(d *model.ParticipantDraft, name string) *string {
	switch name {
	case "firstName":
		return &d.FirstName
	case "lastName":
		return &d.LastName
	case "email":
		return &d.Email
	case "phone":
		return &d.Phone
	}
	return nil
}

// Submit registers the draft. Local violations are annotated and returned
// without a network call. On success the dialog closes, the draft is cleared
// and the page is reloaded.
func (r *Registration) Submit(ctx context.Context) (*model.Participant, error) {
	r.mu.Lock()
	switch r.state {
	case StateSubmitting:
		r.mu.Unlock()
		return nil, ErrSubmitInProgress
	case StateEditing:
	default:
		r.mu.Unlock()
		return nil, ErrDialogClosed
	}
	payload, errs := ValidateParticipant(r.eventID, r.draft)
	if errs != nil {
		r.errors = errs
		r.mu.Unlock()
		return nil, errs
	}
	r.errors = nil
	r.state = StateSubmitting
	r.mu.Unlock()

	p, err := r.api.RegisterParticipant(ctx, payload)
	if err != nil {
		re := backend.AsRequestError(err)

		r.mu.Lock()
		if re.Structured() {
			r.errors = FieldErrors(re.FieldErrors).clone()
		}
		r.state = StateEditing
		r.mu.Unlock()

		r.opts.log.Warn("registration failed", "event_id", r.eventID, "status", re.Status, "error", err)
		if !re.Structured() {
			r.note.Notify(failure("Registration failed", re.UserMessage()))
		}
		return nil, fmt.Errorf("register participant: %w", err)
	}

	r.mu.Lock()
	r.draft = model.ParticipantDraft{}
	r.errors = nil
	r.state = StateIdle
	r.mu.Unlock()

	r.note.Notify(success("Participant registered", p.FullName()))
	if r.reload != nil {
		if err := r.reload.Reload(ctx); err != nil {
			r.opts.log.Warn("reload after registration failed", "event_id", r.eventID, "error", err)
		}
	}
	return p, nil
}

// State returns the current lifecycle state.
func (r *Registration) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// IsOpen reports whether the dialog is shown.
func (r *Registration) IsOpen() bool {
	return r.State() != StateIdle
}

// IsSubmitting reports whether a submission is pending. The submit control is
// disabled while it is true.
func (r *Registration) IsSubmitting() bool {
	return r.State() == StateSubmitting
}

// Draft returns the current field values.
func (r *Registration) Draft() model.ParticipantDraft {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft
}

// Errors returns the field annotations currently shown.
func (r *Registration) Errors() FieldErrors {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors.clone()
}
