// Package handler contains the chi HTTP handlers of the admin console. Each
// request builds the workflow controllers it needs for the caller's session,
// drives them, and renders their view state as JSON.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/backend"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/session"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/workflow"
	"github.com/go-chi/chi/v5"
)

// ConsoleHandler holds all HTTP handlers of the console API.
type ConsoleHandler struct {
	client  *backend.Client
	dialogs *DialogStore
	secret  string
	log     *slog.Logger
	opts    []workflow.Option
}

// NewConsoleHandler constructs a ConsoleHandler. Backend calls go through
// client on behalf of the session named by each request's bearer token.
func NewConsoleHandler(client *backend.Client, dialogs *DialogStore, secret string, log *slog.Logger, opts ...workflow.Option) *ConsoleHandler {
	if log == nil {
		log = slog.Default()
	}
	opts = append([]workflow.Option{workflow.WithLogger(log)}, opts...)
	return &ConsoleHandler{client: client, dialogs: dialogs, secret: secret, log: log, opts: opts}
}

// Routes returns the authenticated console router, meant to be mounted at
// /console.
func (h *ConsoleHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(Authenticate(h.secret))

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)
		r.Get("/{id}", h.GetEvent)
		r.Put("/{id}", h.UpdateEvent)
		r.Delete("/{id}", h.DeleteEvent)
		r.Post("/{id}/registrations", h.OpenRegistration)
		r.Get("/{id}/participants", h.ListParticipants)
		r.Get("/{id}/participants/export", h.ExportParticipants)
		r.Put("/{id}/participants/{pid}", h.UpdateParticipant)
		r.Delete("/{id}/participants/{pid}", h.RemoveParticipant)
	})
	r.Route("/registrations/{dialogID}", func(r chi.Router) {
		r.Get("/", h.GetRegistration)
		r.Patch("/", h.UpdateRegistration)
		r.Delete("/", h.CloseRegistration)
		r.Post("/submit", h.SubmitRegistration)
	})
	return r
}

// ─── View models ──────────────────────────────────────────────────────────────

// View is the envelope of every successful console response.
type View struct {
	Data          any                     `json:"data,omitempty"`
	Notifications []workflow.Notification `json:"notifications,omitempty"`
	Redirect      string                  `json:"redirect,omitempty"`
}

// ErrorView is the envelope of every failed console response.
type ErrorView struct {
	Message       string                  `json:"message"`
	Errors        map[string]string       `json:"errors,omitempty"`
	Notifications []workflow.Notification `json:"notifications,omitempty"`
}

// EventView is the event detail page.
type EventView struct {
	Event   model.Event    `json:"event"`
	Gate    workflow.Gate  `json:"gate"`
	Roster  []workflow.Row `json:"roster"`
	Loading bool           `json:"loading"`
}

// DialogView is the state of a registration dialog.
type DialogView struct {
	ID         string                 `json:"id"`
	EventID    string                 `json:"eventId"`
	State      workflow.State         `json:"state"`
	Submitting bool                   `json:"submitting"`
	Draft      model.ParticipantDraft `json:"draft"`
	Errors     workflow.FieldErrors   `json:"errors,omitempty"`
}

// RegisteredView is returned after a successful registration.
type RegisteredView struct {
	Participant *model.Participant `json:"participant"`
	Event       *EventView         `json:"event,omitempty"`
}

func eventView(p *workflow.EventPage) *EventView {
	e, ok := p.Event()
	if !ok {
		return nil
	}
	return &EventView{Event: e, Gate: p.Gate(), Roster: p.Roster.Rows(), Loading: p.Roster.Loading()}
}

func dialogView(d *dialog) DialogView {
	return DialogView{
		ID:         d.id,
		EventID:    d.reg.EventID(),
		State:      d.reg.State(),
		Submitting: d.reg.IsSubmitting(),
		Draft:      d.reg.Draft(),
		Errors:     d.reg.Errors(),
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, out *workflow.Outbox) {
	ev := ErrorView{Message: msg}
	if out != nil {
		ev.Notifications = out.Notifications()
	}
	writeJSON(w, status, ev)
}

func writeView(w http.ResponseWriter, status int, data any, out *workflow.Outbox) {
	writeJSON(w, status, View{Data: data, Notifications: out.Notifications(), Redirect: out.Redirect()})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// handleError maps controller and backend failures onto console responses.
func (h *ConsoleHandler) handleError(w http.ResponseWriter, err error, out *workflow.Outbox) {
	ev := ErrorView{Message: err.Error()}
	if out != nil {
		ev.Notifications = out.Notifications()
	}

	var (
		fe     workflow.FieldErrors
		re     *backend.RequestError
		status int
	)
	switch {
	case errors.As(err, &fe):
		status = http.StatusUnprocessableEntity
		ev.Message = "validation failed"
		ev.Errors = fe
	case errors.Is(err, workflow.ErrSoldOut),
		errors.Is(err, workflow.ErrSubmitInProgress),
		errors.Is(err, workflow.ErrDialogClosed):
		status = http.StatusConflict
	case errors.Is(err, ErrDialogNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrUnknownField),
		errors.Is(err, workflow.ErrUnsupportedFormat):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrBadToken):
		status = http.StatusUnauthorized
	case errors.As(err, &re):
		status = re.Status
		if re.Transport() {
			status = http.StatusBadGateway
		}
		ev.Message = re.UserMessage()
		ev.Errors = re.FieldErrors
	default:
		h.log.Error("console request failed", "error", err)
		status = http.StatusInternalServerError
		ev.Message = backend.FallbackMessage
	}
	writeJSON(w, status, ev)
}

// caller returns the session of the request and a backend client acting as it.
func (h *ConsoleHandler) caller(r *http.Request) (session.Session, *backend.Client, error) {
	s, ok := session.FromContext(r.Context())
	if !ok || !s.Valid() {
		return session.Session{}, nil, session.ErrNoSession
	}
	return s, h.client.As(s), nil
}

// ─── Events ───────────────────────────────────────────────────────────────────

// ListEvents handles GET /console/events
// Returns every event with its registration control.
func (h *ConsoleHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	_, api, err := h.caller(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	list := workflow.NewEventList(api, out, h.opts...)
	if err := list.Load(r.Context()); err != nil {
		h.handleError(w, err, out)
		return
	}
	writeView(w, http.StatusOK, list.Items(), out)
}

// CreateEvent handles POST /console/events
// Validates an event draft and creates the event.
func (h *ConsoleHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	sess, api, err := h.caller(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	var draft model.EventDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	form := workflow.NewEventForm(api, sess, out, out, h.opts...)
	e, err := form.Submit(r.Context(), draft)
	if err != nil {
		h.handleError(w, err, out)
		return
	}
	writeView(w, http.StatusCreated, e, out)
}

// GetEvent handles GET /console/events/{id}
// Returns the event detail page: event, gate and roster.
func (h *ConsoleHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	_, api, err := h.caller(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	page := workflow.NewEventPage(api, api, out, out, h.opts...)
	if err := page.Load(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, err, out)
		return
	}
	writeView(w, http.StatusOK, eventView(page), out)
}

// UpdateEvent handles PUT /console/events/{id}
// Validates an event draft and updates the event.
func (h *ConsoleHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	sess, api, err := h.caller(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	var draft model.EventDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	form := workflow.EditEventForm(api, sess, model.Event{ID: chi.URLParam(r, "id")}, out, out, h.opts...)
	e, err := form.Submit(r.Context(), draft)
	if err != nil {
		h.handleError(w, err, out)
		return
	}
	writeView(w, http.StatusOK, e, out)
}

// DeleteEvent handles DELETE /console/events/{id}
func (h *ConsoleHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	_, api, err := h.caller(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	page := workflow.NewEventPage(api, api, out, out, h.opts...)
	if err := page.LoadEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, err, out)
		return
	}
	if err := page.Delete(r.Context()); err != nil {
		h.handleError(w, err, out)
		return
	}
	writeView(w, http.StatusOK, nil, out)
}

// ─── Registration dialogs ─────────────────────────────────────────────────────

// OpenRegistration handles POST /console/events/{id}/registrations
// Opens a registration dialog unless the event is sold out.
func (h *ConsoleHandler) OpenRegistration(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	sess, api, err := h.caller(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	sink := &relay{}
	detach := sink.attach(out)
	defer detach()

	page := workflow.NewEventPage(api, api, sink, sink, h.opts...)
	if err := page.Load(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, err, out)
		return
	}
	reg, err := page.OpenRegistration()
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	d := &dialog{owner: sess.UserID, reg: reg, page: page, sink: sink}
	h.dialogs.put(d)
	writeView(w, http.StatusCreated, dialogView(d), out)
}

func (h *ConsoleHandler) dialog(r *http.Request) (*dialog, error) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		return nil, session.ErrNoSession
	}
	return h.dialogs.get(sess.UserID, chi.URLParam(r, "dialogID"))
}

// GetRegistration handles GET /console/registrations/{dialogID}
func (h *ConsoleHandler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	d, err := h.dialog(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}
	writeView(w, http.StatusOK, dialogView(d), out)
}

// UpdateRegistration handles PATCH /console/registrations/{dialogID}
// The body maps field names to their new values.
func (h *ConsoleHandler) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	d, err := h.dialog(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	var fields map[string]string
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	if err := d.reg.UpdateFields(fields); err != nil {
		h.handleError(w, err, out)
		return
	}
	writeView(w, http.StatusOK, dialogView(d), out)
}

// CloseRegistration handles DELETE /console/registrations/{dialogID}
func (h *ConsoleHandler) CloseRegistration(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	d, err := h.dialog(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}
	if err := d.reg.Close(); err != nil {
		h.handleError(w, err, out)
		return
	}
	h.dialogs.remove(d.id)
	w.WriteHeader(http.StatusNoContent)
}

// SubmitRegistration handles POST /console/registrations/{dialogID}/submit
// Registers the drafted participant. On success the dialog is discarded and
// the reloaded event page is returned.
func (h *ConsoleHandler) SubmitRegistration(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	d, err := h.dialog(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	// only the request holding the dialog's submit slot may own its relay
	if !d.submitting.TryLock() {
		h.handleError(w, workflow.ErrSubmitInProgress, out)
		return
	}
	detach := d.sink.attach(out)
	p, err := d.reg.Submit(r.Context())
	detach()
	d.submitting.Unlock()
	if err != nil {
		if errors.Is(err, workflow.ErrValidation) || backend.AsRequestError(err).Structured() {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorView{
				Message:       "validation failed",
				Errors:        d.reg.Errors(),
				Notifications: out.Notifications(),
			})
			return
		}
		h.handleError(w, err, out)
		return
	}

	h.dialogs.remove(d.id)
	writeView(w, http.StatusCreated, RegisteredView{Participant: p, Event: eventView(d.page)}, out)
}

// ─── Participants ─────────────────────────────────────────────────────────────

// ListParticipants handles GET /console/events/{id}/participants?q=
// Returns the roster rows, filtered by q when given.
func (h *ConsoleHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	_, api, err := h.caller(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	roster := workflow.NewRoster(api, out, h.opts...)
	if err := roster.Load(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, err, out)
		return
	}
	writeView(w, http.StatusOK, workflow.RowsFor(roster.Search(r.URL.Query().Get("q"))), out)
}

// UpdateParticipant handles PUT /console/events/{id}/participants/{pid}
func (h *ConsoleHandler) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	_, api, err := h.caller(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	var draft model.ParticipantDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	roster := workflow.NewRoster(api, out, h.opts...)
	if _, err := roster.Update(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "pid"), draft); err != nil {
		h.handleError(w, err, out)
		return
	}
	writeView(w, http.StatusOK, roster.Rows(), out)
}

// RemoveParticipant handles DELETE /console/events/{id}/participants/{pid}
// Removes the participant and returns the re-fetched roster.
func (h *ConsoleHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	_, api, err := h.caller(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	roster := workflow.NewRoster(api, out, h.opts...)
	if err := roster.Remove(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "pid")); err != nil {
		h.handleError(w, err, out)
		return
	}
	writeView(w, http.StatusOK, roster.Rows(), out)
}

// ExportParticipants handles GET /console/events/{id}/participants/export?format=
// Streams the export as an attachment.
func (h *ConsoleHandler) ExportParticipants(w http.ResponseWriter, r *http.Request) {
	out := &workflow.Outbox{}
	_, api, err := h.caller(r)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	roster := workflow.NewRoster(api, out, h.opts...)
	format := model.ExportFormat(r.URL.Query().Get("format"))
	exp, err := roster.Download(r.Context(), chi.URLParam(r, "id"), format, nil)
	if err != nil {
		h.handleError(w, err, out)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(exp.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
