package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/backend"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
)

// EmptyRosterMessage is the text of the single row an empty roster renders.
const EmptyRosterMessage = "No participants registered yet."

// Row is one rendered roster line.
type Row struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Saver stores a downloaded export.
type Saver interface {
	Save(exp *model.Export) error
}

// DirSaver saves exports as files in a directory.
type DirSaver string

// Save writes exp under its derived filename. A filename that is not a single
// local path element is refused with ErrUnsafeFilename.
func (d DirSaver) Save(exp *model.Export) error {
	name := exp.Filename
	if !filepath.IsLocal(name) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrUnsafeFilename, name)
	}
	path := filepath.Join(string(d), name)
	if err := os.WriteFile(path, exp.Data, 0o644); err != nil {
		return fmt.Errorf("save export: %w", err)
	}
	return nil
}

// Roster is the participant list of one event page.
type Roster struct {
	api  ParticipantAPI
	note Notifier
	opts options

	mu           sync.Mutex
	eventID      string
	participants []model.Participant
	loaded       bool
	pending      int
}

// NewRoster returns an empty, unloaded roster.
func NewRoster(api ParticipantAPI, n Notifier, opts ...Option) *Roster {
	return &Roster{api: api, note: notifierOrDiscard(n), opts: buildOptions(opts)}
}

// Load fetches the roster of eventID. On failure the previous roster stays
// visible and a notification is raised. Overlapping loads settle in completion
// order; the last one to finish wins.
func (r *Roster) Load(ctx context.Context, eventID string) error {
	r.mu.Lock()
	r.pending++
	r.mu.Unlock()

	ps, err := r.api.ListParticipants(ctx, eventID)

	r.mu.Lock()
	r.pending--
	if err == nil {
		r.eventID = eventID
		r.participants = ps
		r.loaded = true
	}
	r.mu.Unlock()

	if err != nil {
		r.fail("Could not load participants", eventID, err)
		return fmt.Errorf("load participants: %w", err)
	}
	return nil
}

// Remove deletes a participant and reloads the roster from the backend.
func (r *Roster) Remove(ctx context.Context, eventID, participantID string) error {
	if err := r.api.DeleteParticipant(ctx, participantID); err != nil {
		r.fail("Could not remove participant", eventID, err)
		return fmt.Errorf("remove participant: %w", err)
	}
	r.note.Notify(success("Participant removed", ""))
	return r.Load(ctx, eventID)
}

// Update edits a participant and reloads the roster from the backend.
func (r *Roster) Update(ctx context.Context, eventID, participantID string, d model.ParticipantDraft) (*model.Participant, error) {
	payload, errs := ValidateParticipant(eventID, d)
	if errs != nil {
		return nil, errs
	}
	p, err := r.api.UpdateParticipant(ctx, participantID, payload)
	if err != nil {
		r.fail("Could not update participant", eventID, err)
		return nil, fmt.Errorf("update participant: %w", err)
	}
	r.note.Notify(success("Participant updated", p.FullName()))
	if err := r.Load(ctx, eventID); err != nil {
		return p, err
	}
	return p, nil
}

// Download exports the roster of eventID in format and hands it to s.
func (r *Roster) Download(ctx context.Context, eventID string, format model.ExportFormat, s Saver) (*model.Export, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	exp, err := r.api.ExportParticipants(ctx, eventID, format)
	if err != nil {
		r.fail("Export failed", eventID, err)
		return nil, fmt.Errorf("export participants: %w", err)
	}
	if s != nil {
		if err := s.Save(exp); err != nil {
			r.note.Notify(failure("Export failed", err.Error()))
			return nil, err
		}
	}
	r.note.Notify(success("Export ready", exp.Filename))
	return exp, nil
}

// EventID returns the event of the last successful load.
func (r *Roster) EventID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eventID
}

// Participants returns the last fetched roster.
func (r *Roster) Participants() []model.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

// Loading reports whether a fetch is pending.
func (r *Roster) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending > 0
}

// Loaded reports whether any fetch has succeeded.
func (r *Roster) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Rows renders the roster. An empty roster renders one placeholder row.
func (r *Roster) Rows() []Row {
	return RowsFor(r.Participants())
}

// Search filters the last fetched roster by name, email or phone, ignoring case.
func (r *Roster) Search(query string) []model.Participant {
	q := strings.ToLower(strings.TrimSpace(query))
	all := r.Participants()
	if q == "" {
		return all
	}
	out := make([]model.Participant, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.FullName()), q) ||
			strings.Contains(strings.ToLower(p.Email), q) ||
			strings.Contains(p.Phone, q) {
			out = append(out, p)
		}
	}
	return out
}

// RowsFor renders ps the way Rows does.
func RowsFor(ps []model.Participant) []Row {
	if len(ps) == 0 {
		return []Row{{Name: EmptyRosterMessage, Placeholder: true}}
	}
	out := make([]Row, 0, len(ps))
	for _, p := range ps {
		out = append(out, Row{ID: p.ID, Name: p.FullName(), Email: p.Email, Phone: p.Phone})
	}
	return out
}

func (r *Roster) fail(title, eventID string, err error) {
	re := backend.AsRequestError(err)
	r.opts.log.Warn(strings.ToLower(title), "event_id", eventID, "status", re.Status, "error", err)
	r.note.Notify(failure(title, re.UserMessage()))
}
