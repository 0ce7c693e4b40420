package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/backend"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/backendtest"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/session"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/workflow"
	"github.com/stretchr/testify/mock"
)

var (
	testNow  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testSess = session.Session{UserID: "sensei-1", Token: "tok"}
)

const localLayout = "2006-01-02T15:04"

func testOpts() []workflow.Option {
	return []workflow.Option{
		workflow.WithClock(func() time.Time { return testNow }),
		workflow.WithLocation(time.UTC),
	}
}

func newBackend(t *testing.T) (*backend.Client, *backendtest.Server) {
	t.Helper()
	srv := backendtest.NewServer(t)
	return backend.New(srv.URL).As(testSess), srv
}

func gala() model.EventDraft {
	return model.EventDraft{
		Name:           "Kung Fu Gala",
		Bio:            "A night of forms and sparring demonstrations.",
		ParticipantNbr: "50",
		Prix:           "20.00",
		StartDate:      testNow.Add(time.Hour).Format(localLayout),
		EndDate:        testNow.Add(3 * time.Hour).Format(localLayout),
	}
}

// mockParticipants fails the test on any call that was not set up.
type mockParticipants struct {
	mock.Mock
}

func (m *mockParticipants) RegisterParticipant(ctx context.Context, p model.ParticipantPayload) (*model.Participant, error) {
	args := m.Called(ctx, p)
	part, _ := args.Get(0).(*model.Participant)
	return part, args.Error(1)
}

func (m *mockParticipants) ListParticipants(ctx context.Context, eventID string) ([]model.Participant, error) {
	args := m.Called(ctx, eventID)
	ps, _ := args.Get(0).([]model.Participant)
	return ps, args.Error(1)
}

func (m *mockParticipants) DeleteParticipant(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockParticipants) UpdateParticipant(ctx context.Context, id string, p model.ParticipantPayload) (*model.Participant, error) {
	args := m.Called(ctx, id, p)
	part, _ := args.Get(0).(*model.Participant)
	return part, args.Error(1)
}

func (m *mockParticipants) ExportParticipants(ctx context.Context, eventID string, f model.ExportFormat) (*model.Export, error) {
	args := m.Called(ctx, eventID, f)
	exp, _ := args.Get(0).(*model.Export)
	return exp, args.Error(1)
}

type recordingSaver struct {
	saved []*model.Export
}

func (s *recordingSaver) Save(exp *model.Export) error {
	s.saved = append(s.saved, exp)
	return nil
}
