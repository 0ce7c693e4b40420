package workflow_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/backend"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, r *workflow.Registration, first, last, email string) {
	t.Helper()
	require.NoError(t, r.UpdateField("firstName", first))
	require.NoError(t, r.UpdateField("lastName", last))
	require.NoError(t, r.UpdateField("email", email))
}

func TestRegistration_EmptyFirstNameMakesNoCall(t *testing.T) {
	api := &mockParticipants{}
	r := workflow.NewRegistration(api, "ev-1", nil, nil)
	r.Open()
	fill(t, r, "", "Lee", "ada@dojo.test")

	_, err := r.Submit(context.Background())

	assert.ErrorIs(t, err, workflow.ErrValidation)
	assert.Equal(t, "First name is required", r.Errors()["firstName"])
	assert.Len(t, r.Errors(), 1)
	assert.Equal(t, workflow.StateEditing, r.State())
	api.AssertNotCalled(t, "RegisterParticipant", mock.Anything, mock.Anything)
}

func TestRegistration_EmptyEmailMakesNoCall(t *testing.T) {
	api := &mockParticipants{}
	r := workflow.NewRegistration(api, "ev-1", nil, nil)
	r.Open()
	fill(t, r, "Ada", "Lee", "")

	_, err := r.Submit(context.Background())

	assert.ErrorIs(t, err, workflow.ErrValidation)
	assert.Equal(t, "Email is required", r.Errors()["email"])
	api.AssertNotCalled(t, "RegisterParticipant", mock.Anything, mock.Anything)
}

func TestRegistration_InvalidEmail(t *testing.T) {
	r := workflow.NewRegistration(&mockParticipants{}, "ev-1", nil, nil)
	r.Open()
	fill(t, r, "Ada", "Lee", "not-an-email")

	_, err := r.Submit(context.Background())

	require.Error(t, err)
	assert.Equal(t, "Invalid email address", r.Errors()["email"])
}

func TestRegistration_SendsTrimmedPayload(t *testing.T) {
	api := &mockParticipants{}
	want := model.ParticipantPayload{EventID: "ev-1", FirstName: "Ada", LastName: "Lee", Email: "ada@dojo.test", Phone: "555-0100"}
	api.On("RegisterParticipant", mock.Anything, want).
		Return(&model.Participant{ID: "p-1", EventID: "ev-1", FirstName: "Ada", LastName: "Lee"}, nil).Once()
	r := workflow.NewRegistration(api, "ev-1", nil, nil)
	r.Open()
	fill(t, r, " Ada ", "Lee", "ada@dojo.test ")
	require.NoError(t, r.UpdateField("phone", "555-0100"))

	p, err := r.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)
	api.AssertExpectations(t)
}

func TestRegistration_UpdateFieldClearsItsError(t *testing.T) {
	r := workflow.NewRegistration(&mockParticipants{}, "ev-1", nil, nil)
	r.Open()
	_, err := r.Submit(context.Background())
	require.Error(t, err)
	require.Contains(t, r.Errors(), "firstName")
	require.Contains(t, r.Errors(), "email")

	require.NoError(t, r.UpdateField("firstName", "Ada"))

	assert.NotContains(t, r.Errors(), "firstName")
	assert.Contains(t, r.Errors(), "email")
}

func TestRegistration_FieldGuards(t *testing.T) {
	r := workflow.NewRegistration(&mockParticipants{}, "ev-1", nil, nil)

	assert.ErrorIs(t, r.UpdateField("firstName", "Ada"), workflow.ErrDialogClosed)
	_, err := r.Submit(context.Background())
	assert.ErrorIs(t, err, workflow.ErrDialogClosed)

	r.Open()
	assert.ErrorIs(t, r.UpdateField("belt", "black"), workflow.ErrUnknownField)
}

func TestRegistration_CloseDiscardsDraft(t *testing.T) {
	r := workflow.NewRegistration(&mockParticipants{}, "ev-1", nil, nil)
	r.Open()
	require.NoError(t, r.UpdateField("firstName", "Ada"))

	require.NoError(t, r.Close())

	assert.False(t, r.IsOpen())
	assert.Equal(t, model.ParticipantDraft{}, r.Draft())
	r.Open()
	assert.Equal(t, workflow.StateEditing, r.State())
}

func TestRegistration_SuccessReloadsPage(t *testing.T) {
	api, srv := newBackend(t)
	ev := srv.Store.SeedEvent(model.Event{Name: "Sparring night", ParticipantNbr: 3})
	out := &workflow.Outbox{}
	page := workflow.NewEventPage(api, api, out, out)
	require.NoError(t, page.Load(context.Background(), ev.ID))

	r, err := page.OpenRegistration()
	require.NoError(t, err)
	fill(t, r, "Ada", "Lee", "ada@dojo.test")

	p, err := r.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, workflow.StateIdle, r.State())
	assert.Equal(t, model.ParticipantDraft{}, r.Draft())
	assert.Len(t, srv.Calls("POST /participants"), 1)
	assert.Len(t, srv.Calls("GET /events/{id}"), 2)
	assert.Len(t, srv.Calls("GET /events/{id}/participants"), 2)

	roster := page.Roster.Participants()
	require.Len(t, roster, 1)
	assert.Equal(t, p.ID, roster[0].ID)
	e, _ := page.Event()
	assert.Equal(t, 2, e.ParticipantNbr)
}

func TestRegistration_StructuredRejectionAnnotatesFields(t *testing.T) {
	api, srv := newBackend(t)
	ev := srv.Store.SeedEvent(model.Event{ParticipantNbr: 3})
	srv.Fail("POST /participants", http.StatusUnprocessableEntity, map[string]any{
		"message": "validation failed",
		"errors":  map[string]string{"email": "Email already registered"},
	})
	out := &workflow.Outbox{}
	r := workflow.NewRegistration(api, ev.ID, out, nil)
	r.Open()
	fill(t, r, "Ada", "Lee", "ada@dojo.test")

	_, err := r.Submit(context.Background())

	require.Error(t, err)
	assert.Equal(t, workflow.StateEditing, r.State())
	assert.Equal(t, workflow.FieldErrors{"email": "Email already registered"}, r.Errors())
	assert.Equal(t, "Ada", r.Draft().FirstName)
	assert.Empty(t, out.Notifications())
}

func TestRegistration_UnstructuredRejectionNotifies(t *testing.T) {
	api, srv := newBackend(t)
	ev := srv.Store.SeedEvent(model.Event{ParticipantNbr: 3})
	srv.Fail("POST /participants", http.StatusInternalServerError, "oops")
	out := &workflow.Outbox{}
	r := workflow.NewRegistration(api, ev.ID, out, nil)
	r.Open()
	fill(t, r, "Ada", "Lee", "ada@dojo.test")

	_, err := r.Submit(context.Background())

	require.Error(t, err)
	notes := out.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, workflow.VariantDestructive, notes[0].Variant)
	assert.Equal(t, backend.FallbackMessage, notes[0].Description)
	assert.Empty(t, r.Errors())
}

func TestRegistration_FullEventMessageIsShown(t *testing.T) {
	api, srv := newBackend(t)
	ev := srv.Store.SeedEvent(model.Event{ParticipantNbr: 0})
	out := &workflow.Outbox{}
	r := workflow.NewRegistration(api, ev.ID, out, nil)
	r.Open()
	fill(t, r, "Ada", "Lee", "ada@dojo.test")

	_, err := r.Submit(context.Background())

	assert.ErrorIs(t, err, backend.ErrConflict)
	notes := out.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "event is fully booked", notes[0].Description)
}

func TestRegistration_SingleSubmissionInFlight(t *testing.T) {
	api, srv := newBackend(t)
	ev := srv.Store.SeedEvent(model.Event{ParticipantNbr: 3})
	release := srv.Hold("POST /participants")
	defer release()

	r := workflow.NewRegistration(api, ev.ID, nil, nil)
	r.Open()
	fill(t, r, "Ada", "Lee", "ada@dojo.test")

	done := make(chan error, 1)
	go func() {
		_, err := r.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, r.IsSubmitting, time.Second, 5*time.Millisecond)

	_, err := r.Submit(context.Background())
	assert.ErrorIs(t, err, workflow.ErrSubmitInProgress)
	assert.ErrorIs(t, r.UpdateField("email", "x@dojo.test"), workflow.ErrSubmitInProgress)
	assert.ErrorIs(t, r.Close(), workflow.ErrSubmitInProgress)

	release()
	require.NoError(t, <-done)
	assert.Len(t, srv.Calls("POST /participants"), 1)
	assert.False(t, r.IsSubmitting())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "submitting", workflow.StateSubmitting.String())
	text, err := workflow.StateFailed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "failed", string(text))
}

func TestState_UnmarshalText(t *testing.T) {
	var s workflow.State
	require.NoError(t, s.UnmarshalText([]byte("editing")))
	assert.Equal(t, workflow.StateEditing, s)
	assert.Error(t, s.UnmarshalText([]byte("open")))
}

func TestRegistration_UpdateFieldsIsAllOrNothing(t *testing.T) {
	r := workflow.NewRegistration(&mockParticipants{}, "ev-1", nil, nil)
	r.Open()

	err := r.UpdateFields(map[string]string{"firstName": "Ada", "email": "ada@dojo.test", "belt": "black"})

	assert.ErrorIs(t, err, workflow.ErrUnknownField)
	assert.Equal(t, model.ParticipantDraft{}, r.Draft())

	require.NoError(t, r.UpdateFields(map[string]string{"firstName": "Ada", "email": "ada@dojo.test"}))
	assert.Equal(t, model.ParticipantDraft{FirstName: "Ada", Email: "ada@dojo.test"}, r.Draft())
}

type reloadFunc func(ctx context.Context) error

func (f reloadFunc) Reload(ctx context.Context) error { return f(ctx) }

func TestRegistration_ObservableStates(t *testing.T) {
	api := &mockParticipants{}
	var (
		r    *workflow.Registration
		seen []workflow.State
	)
	record := func(mock.Arguments) { seen = append(seen, r.State()) }
	api.On("RegisterParticipant", mock.Anything, mock.Anything).Run(record).
		Return(nil, &backend.RequestError{Status: http.StatusInternalServerError}).Once()
	api.On("RegisterParticipant", mock.Anything, mock.Anything).Run(record).
		Return(&model.Participant{ID: "p-1", FirstName: "Ada"}, nil).Once()
	r = workflow.NewRegistration(api, "ev-1", nil, reloadFunc(func(context.Context) error {
		seen = append(seen, r.State())
		return nil
	}))
	r.Open()
	fill(t, r, "Ada", "Lee", "ada@dojo.test")

	_, err := r.Submit(context.Background())
	require.Error(t, err)
	seen = append(seen, r.State())
	_, err = r.Submit(context.Background())
	require.NoError(t, err)
	seen = append(seen, r.State())

	assert.Equal(t, []workflow.State{
		workflow.StateSubmitting, workflow.StateEditing,
		workflow.StateSubmitting, workflow.StateIdle, workflow.StateIdle,
	}, seen)
	api.AssertExpectations(t)
}
