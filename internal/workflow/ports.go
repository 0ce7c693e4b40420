// Package workflow implements the event registration workflow of the console:
// the event form, the registration dialog, the participant roster and the
// capacity gate. Controllers hold view state only; the backend owns the data
// and every mutation is followed by a full re-fetch.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
)

// EventAPI is the part of the backend the event views consume.
type EventAPI interface {
	CreateEvent(ctx context.Context, p model.EventPayload) (*model.Event, error)
	UpdateEvent(ctx context.Context, id string, p model.EventPayload) (*model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
}

// ParticipantAPI is the part of the backend the roster and the registration
// dialog consume.
type ParticipantAPI interface {
	RegisterParticipant(ctx context.Context, p model.ParticipantPayload) (*model.Participant, error)
	ListParticipants(ctx context.Context, eventID string) ([]model.Participant, error)
	DeleteParticipant(ctx context.Context, id string) error
	UpdateParticipant(ctx context.Context, id string, p model.ParticipantPayload) (*model.Participant, error)
	ExportParticipants(ctx context.Context, eventID string, format model.ExportFormat) (*model.Export, error)
}

// Reloader re-fetches whatever a view shows.
type Reloader interface {
	Reload(ctx context.Context) error
}

var (
	ErrSubmitInProgress  = errors.New("a submission is already in progress")
	ErrDialogClosed      = errors.New("registration dialog is not open")
	ErrSoldOut           = errors.New("event is sold out")
	ErrNotLoaded         = errors.New("event has not been loaded")
	ErrUnknownField      = errors.New("unknown field")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrUnsafeFilename    = errors.New("export filename escapes the target directory")
)

type options struct {
	log *slog.Logger
	now func() time.Time
	loc *time.Location
}

// Option configures a controller.
type Option func(*options)

// WithLogger sets the logger backend failures are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock replaces time.Now, which decides whether a start date is in the future.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation sets the zone datetime-local inputs are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.loc = loc }
}

func buildOptions(opts []Option) options {
	o := options{log: slog.Default(), now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
