package backendtest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
	"github.com/go-chi/chi/v5"
)

// Call is one request received by the fake backend.
type Call struct {
	Method string
	Route  string
	Path   string
	Auth   string
	Body   []byte
}

// JSON decodes the recorded request body into a generic map so tests can
// assert on wire types.
func (c Call) JSON(t testing.TB) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(c.Body, &m); err != nil {
		t.Fatalf("decode call body: %v", err)
	}
	return m
}

type fault struct {
	status int
	body   []byte
}

// Server is an httptest server implementing the dojo REST API over a Store.
type Server struct {
	*httptest.Server
	Store *Store

	mu     sync.Mutex
	calls  []Call
	faults map[string][]fault
	gates  map[string]chan struct{}
}

// NewServer starts a fake backend that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		Store:  NewStore(),
		faults: make(map[string][]fault),
		gates:  make(map[string]chan struct{}),
	}
	s.Server = httptest.NewServer(s.Router())
	t.Cleanup(s.Close)
	return s
}

// Router builds the chi router serving the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/events", s.route("POST /events", s.createEvent))
	r.Get("/events", s.route("GET /events", s.listEvents))
	r.Get("/events/{id}", s.route("GET /events/{id}", s.getEvent))
	r.Put("/events/{id}", s.route("PUT /events/{id}", s.updateEvent))
	r.Delete("/events/{id}", s.route("DELETE /events/{id}", s.deleteEvent))
	r.Get("/events/{id}/participants", s.route("GET /events/{id}/participants", s.listParticipants))
	r.Get("/events/{id}/participants/export", s.route("GET /events/{id}/participants/export", s.exportParticipants))
	r.Post("/participants", s.route("POST /participants", s.registerParticipant))
	r.Put("/participants/{id}", s.route("PUT /participants/{id}", s.updateParticipant))
	r.Delete("/participants/{id}", s.route("DELETE /participants/{id}", s.deleteParticipant))

	return r
}

// Fail makes the next request to route answer with status and body. body may
// be a string (sent raw) or any JSON-encodable value. Faults queue up.
func (s *Server) Fail(route string, status int, body any) {
	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	default:
		raw, _ = json.Marshal(b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = append(s.faults[route], fault{status: status, body: raw})
}

// Hold blocks requests to route until the returned release func is called.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[route] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns the requests received for route, oldest first.
func (s *Server) Calls(route string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Call
	for _, c := range s.calls {
		if c.Route == route {
			out = append(out, c)
		}
	}
	return out
}

// CallCount returns the number of requests received across all routes.
func (s *Server) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method: r.Method,
			Route:  name,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		gate := s.gates[name]
		var f *fault
		if q := s.faults[name]; len(q) > 0 {
			f = &q[0]
			s.faults[name] = q[1:]
		}
		s.mu.Unlock()

		if gate != nil {
			<-gate
		}
		if f != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write(f.body)
			return
		}
		h(w, r)
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	writeJSON(w, status, model.ErrorResponse{Message: msg, Errors: fields})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrEventFull), errors.Is(err, ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var p model.EventPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	if strings.TrimSpace(p.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation failed", map[string]string{"name": "Name is required"})
		return
	}
	writeJSON(w, http.StatusCreated, s.Store.CreateEvent(p))
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Store.ListEvents())
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.Store.GetEvent(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	var p model.EventPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	e, err := s.Store.UpdateEvent(chi.URLParam(r, "id"), p)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteEvent(chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	ps, err := s.Store.ListParticipants(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if ps == nil {
		ps = []model.Participant{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) registerParticipant(w http.ResponseWriter, r *http.Request) {
	var p model.ParticipantPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	fields := map[string]string{}
	if p.FirstName == "" {
		fields["firstName"] = "First name is required"
	}
	if p.Email == "" {
		fields["email"] = "Email is required"
	}
	if len(fields) > 0 {
		writeError(w, http.StatusUnprocessableEntity, "validation failed", fields)
		return
	}

	part, err := s.Store.Register(p)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, part)
}

func (s *Server) updateParticipant(w http.ResponseWriter, r *http.Request) {
	var p model.ParticipantPayload
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}
	part, err := s.Store.UpdateParticipant(chi.URLParam(r, "id"), p)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

func (s *Server) deleteParticipant(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteParticipant(chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportParticipants(w http.ResponseWriter, r *http.Request) {
	format := model.ExportFormat(r.URL.Query().Get("format"))
	if !format.Valid() {
		writeError(w, http.StatusBadRequest, "unsupported export format", nil)
		return
	}

	ps, err := s.Store.ListParticipants(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"firstName", "lastName", "email", "phone"})
	for _, p := range ps {
		_ = cw.Write([]string{p.FirstName, p.LastName, p.Email, p.Phone})
	}
	cw.Flush()

	switch format {
	case model.ExportPDF:
		w.Header().Set("Content-Type", "application/pdf")
	case model.ExportExcel:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	default:
		w.Header().Set("Content-Type", "text/csv")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
