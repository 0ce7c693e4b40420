package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/backend"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/backendtest"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/handler"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/session"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type console struct {
	t       *testing.T
	srv     *backendtest.Server
	dialogs *handler.DialogStore
	router  http.Handler
	token   string
}

func newConsole(t *testing.T) *console {
	t.Helper()
	srv := backendtest.NewServer(t)
	dialogs := handler.NewDialogStore(time.Hour, nil)
	h := handler.NewConsoleHandler(backend.New(srv.URL), dialogs, secret, nil)

	r := chi.NewRouter()
	r.Get("/health", handler.HealthCheck)
	r.Mount("/console", h.Routes())

	return &console{t: t, srv: srv, dialogs: dialogs, router: r, token: token(t, "sensei-1")}
}

func token(t *testing.T, uid string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		UserID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func (c *console) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.doAs(c.token, method, path, body)
}

func (c *console) doAs(tok, method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

type view[T any] struct {
	Data          T                       `json:"data"`
	Notifications []workflow.Notification `json:"notifications"`
	Redirect      string                  `json:"redirect"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func futureDraft() model.EventDraft {
	start := time.Now().Add(48 * time.Hour).UTC()
	return model.EventDraft{
		Name:           "Kung Fu Gala",
		Bio:            "A night of forms and sparring demonstrations.",
		ParticipantNbr: "50",
		Prix:           "20.00",
		StartDate:      start.Format(time.RFC3339),
		EndDate:        start.Add(2 * time.Hour).Format(time.RFC3339),
	}
}

func TestHealthCheck(t *testing.T) {
	c := newConsole(t)

	rec := c.doAs("", http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestConsole_RequiresToken(t *testing.T) {
	c := newConsole(t)

	assert.Equal(t, http.StatusUnauthorized, c.doAs("", http.MethodGet, "/console/events", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, c.doAs("garbage", http.MethodGet, "/console/events", nil).Code)
	assert.Zero(t, c.srv.CallCount())
}

func TestConsole_CreateEvent(t *testing.T) {
	c := newConsole(t)

	rec := c.do(http.MethodPost, "/console/events", futureDraft())

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v := decode[view[model.Event]](t, rec)
	assert.Equal(t, "/events/"+v.Data.ID, v.Redirect)
	require.Len(t, v.Notifications, 1)

	calls := c.srv.Calls("POST /events")
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer "+c.token, calls[0].Auth)
	body := calls[0].JSON(t)
	assert.Equal(t, float64(50), body["participantnbr"])
	assert.Equal(t, "sensei-1", body["userId"])
}

func TestConsole_CreateEventInvalid(t *testing.T) {
	c := newConsole(t)
	d := futureDraft()
	d.EndDate = d.StartDate

	rec := c.do(http.MethodPost, "/console/events", d)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	ev := decode[handler.ErrorView](t, rec)
	assert.Equal(t, map[string]string{"endDate": "End date must be after the start date"}, ev.Errors)
	assert.Zero(t, c.srv.CallCount())
}

func TestConsole_UpdateEvent(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{Name: "Open mat", ParticipantNbr: 5})
	d := futureDraft()
	d.Name = "Open mat night"

	rec := c.do(http.MethodPut, "/console/events/"+ev.ID, d)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := c.srv.Store.GetEvent(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Open mat night", got.Name)
}

func TestConsole_ListEvents(t *testing.T) {
	c := newConsole(t)
	c.srv.Store.SeedEvent(model.Event{Name: "Open mat", ParticipantNbr: 5})
	c.srv.Store.SeedEvent(model.Event{Name: "Gala", ParticipantNbr: 0})

	rec := c.do(http.MethodGet, "/console/events", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[view[[]workflow.ListItem]](t, rec)
	require.Len(t, v.Data, 2)
	assert.Equal(t, "Register", v.Data[0].Gate.Label)
	assert.Equal(t, "Sold Out", v.Data[1].Gate.Label)
	assert.True(t, v.Data[1].Gate.Disabled)
}

func TestConsole_GetEventSoldOut(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{Name: "Gala", ParticipantNbr: 0})

	rec := c.do(http.MethodGet, "/console/events/"+ev.ID, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[view[handler.EventView]](t, rec)
	assert.Equal(t, workflow.Gate{SoldOut: true, Disabled: true, Label: "Sold Out", TicketsLeft: "Sold Out"}, v.Data.Gate)
	assert.Equal(t, []workflow.Row{{Name: workflow.EmptyRosterMessage, Placeholder: true}}, v.Data.Roster)
}

func TestConsole_GetEventNotFound(t *testing.T) {
	c := newConsole(t)

	rec := c.do(http.MethodGet, "/console/events/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	ev := decode[handler.ErrorView](t, rec)
	assert.NotEmpty(t, ev.Notifications)
}

func TestConsole_OpenRegistrationSoldOut(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{ParticipantNbr: 0})

	rec := c.do(http.MethodPost, "/console/events/"+ev.ID+"/registrations", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, c.dialogs.Len())
}

func TestConsole_RegistrationFlow(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{Name: "Sparring", ParticipantNbr: 2})

	rec := c.do(http.MethodPost, "/console/events/"+ev.ID+"/registrations", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dlg := decode[view[handler.DialogView]](t, rec).Data
	assert.Equal(t, workflow.StateEditing, dlg.State)
	path := "/console/registrations/" + dlg.ID

	rec = c.do(http.MethodPatch, path, map[string]string{
		"firstName": "Ada", "lastName": "Lee", "email": "ada@dojo.test",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Ada", decode[view[handler.DialogView]](t, rec).Data.Draft.FirstName)

	rec = c.do(http.MethodPost, path+"/submit", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v := decode[view[handler.RegisteredView]](t, rec)
	require.NotNil(t, v.Data.Event)
	assert.Equal(t, 1, v.Data.Event.Event.ParticipantNbr)
	require.Len(t, v.Data.Event.Roster, 1)
	assert.Equal(t, "Ada Lee", v.Data.Event.Roster[0].Name)
	assert.NotEmpty(t, v.Notifications)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, path, nil).Code)
	assert.Len(t, c.srv.Calls("POST /participants"), 1)
}

func TestConsole_SubmitEmptyFirstName(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{ParticipantNbr: 2})
	rec := c.do(http.MethodPost, "/console/events/"+ev.ID+"/registrations", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/console/registrations/" + decode[view[handler.DialogView]](t, rec).Data.ID
	c.do(http.MethodPatch, path, map[string]string{"lastName": "Lee", "email": "ada@dojo.test"})

	rec = c.do(http.MethodPost, path+"/submit", nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	ev2 := decode[handler.ErrorView](t, rec)
	assert.Equal(t, map[string]string{"firstName": "First name is required"}, ev2.Errors)
	assert.Empty(t, c.srv.Calls("POST /participants"))
	assert.Equal(t, 1, c.dialogs.Len())
}

func TestConsole_UnknownFieldRejected(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{ParticipantNbr: 2})
	rec := c.do(http.MethodPost, "/console/events/"+ev.ID+"/registrations", nil)
	path := "/console/registrations/" + decode[view[handler.DialogView]](t, rec).Data.ID

	rec = c.do(http.MethodPatch, path, map[string]string{"belt": "black"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConsole_DialogBoundToSession(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{ParticipantNbr: 2})
	rec := c.do(http.MethodPost, "/console/events/"+ev.ID+"/registrations", nil)
	path := "/console/registrations/" + decode[view[handler.DialogView]](t, rec).Data.ID

	rec = c.doAs(token(t, "someone-else"), http.MethodGet, path, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConsole_CloseRegistration(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{ParticipantNbr: 2})
	rec := c.do(http.MethodPost, "/console/events/"+ev.ID+"/registrations", nil)
	path := "/console/registrations/" + decode[view[handler.DialogView]](t, rec).Data.ID

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, path, nil).Code)
	assert.Zero(t, c.dialogs.Len())
}

func TestConsole_RemoveParticipant(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{ParticipantNbr: 2})
	p, err := c.srv.Store.Register(model.ParticipantPayload{EventID: ev.ID, FirstName: "Ada", Email: "ada@dojo.test"})
	require.NoError(t, err)

	rec := c.do(http.MethodDelete, "/console/events/"+ev.ID+"/participants/"+p.ID, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[view[[]workflow.Row]](t, rec)
	assert.Equal(t, []workflow.Row{{Name: workflow.EmptyRosterMessage, Placeholder: true}}, v.Data)
}

func TestConsole_SearchParticipants(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{ParticipantNbr: 5})
	for _, email := range []string{"ada@dojo.test", "bo@kwoon.test"} {
		_, err := c.srv.Store.Register(model.ParticipantPayload{EventID: ev.ID, FirstName: "X", Email: email})
		require.NoError(t, err)
	}

	rec := c.do(http.MethodGet, "/console/events/"+ev.ID+"/participants?q=kwoon", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[view[[]workflow.Row]](t, rec)
	require.Len(t, v.Data, 1)
	assert.Equal(t, "bo@kwoon.test", v.Data[0].Email)
}

func TestConsole_ExportParticipants(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{ID: "ev-3", ParticipantNbr: 5})

	rec := c.do(http.MethodGet, "/console/events/"+ev.ID+"/participants/export?format=excel", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="event-ev-3-participants.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")

	rec = c.do(http.MethodGet, "/console/events/"+ev.ID+"/participants/export?format=docx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConsole_BackendFailureUsesFallback(t *testing.T) {
	c := newConsole(t)
	c.srv.Fail("GET /events", http.StatusInternalServerError, "oops")

	rec := c.do(http.MethodGet, "/console/events", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	ev := decode[handler.ErrorView](t, rec)
	assert.Equal(t, backend.FallbackMessage, ev.Message)
	require.Len(t, ev.Notifications, 1)
	assert.Equal(t, workflow.VariantDestructive, ev.Notifications[0].Variant)
}

func TestConsole_DeleteEvent(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{ParticipantNbr: 5})

	rec := c.do(http.MethodDelete, "/console/events/"+ev.ID, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/events", decode[view[any]](t, rec).Redirect)
	assert.Empty(t, c.srv.Store.ListEvents())
}

func TestConsole_DeleteEventWithFailingRoster(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{ParticipantNbr: 5})
	c.srv.Fail("GET /events/{id}/participants", http.StatusInternalServerError, "oops")

	rec := c.do(http.MethodDelete, "/console/events/"+ev.ID, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, c.srv.Store.ListEvents())
}

func TestConsole_PatchWithUnknownFieldChangesNothing(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{ParticipantNbr: 2})
	rec := c.do(http.MethodPost, "/console/events/"+ev.ID+"/registrations", nil)
	path := "/console/registrations/" + decode[view[handler.DialogView]](t, rec).Data.ID

	rec = c.do(http.MethodPatch, path, map[string]string{"firstName": "Ada", "zzz": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, path, nil)
	assert.Equal(t, model.ParticipantDraft{}, decode[view[handler.DialogView]](t, rec).Data.Draft)
}

func TestConsole_ConcurrentSubmitKeepsFirstNotifications(t *testing.T) {
	c := newConsole(t)
	ev := c.srv.Store.SeedEvent(model.Event{Name: "Sparring", ParticipantNbr: 2})
	rec := c.do(http.MethodPost, "/console/events/"+ev.ID+"/registrations", nil)
	path := "/console/registrations/" + decode[view[handler.DialogView]](t, rec).Data.ID
	c.do(http.MethodPatch, path, map[string]string{"firstName": "Ada", "lastName": "Lee", "email": "ada@dojo.test"})

	release := c.srv.Hold("POST /participants")
	defer release()

	var (
		wg    sync.WaitGroup
		first *httptest.ResponseRecorder
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = c.do(http.MethodPost, path+"/submit", nil)
	}()
	require.Eventually(t, func() bool {
		return len(c.srv.Calls("POST /participants")) == 1
	}, 5*time.Second, 5*time.Millisecond)

	second := c.do(http.MethodPost, path+"/submit", nil)
	release()
	wg.Wait()

	assert.Equal(t, http.StatusConflict, second.Code)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	var titles []string
	for _, n := range decode[view[handler.RegisteredView]](t, first).Notifications {
		titles = append(titles, n.Title)
	}
	assert.Contains(t, titles, "Participant registered")
	assert.Len(t, c.srv.Calls("POST /participants"), 1)
}
