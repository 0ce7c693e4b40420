// Package backend is the typed HTTP client for the dojo REST API. Each method
// maps one CRUD verb onto one HTTP call and returns either the decoded value or
// a *RequestError.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/session"
	"golang.org/x/time/rate"
)

// Observer receives one observation per round trip.
type Observer interface {
	ObserveRequest(op string, status int, elapsed time.Duration)
}

// Client talks to the backend on behalf of one session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	observer   Observer
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit throttles outgoing requests.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithObserver records request metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New constructs a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// As returns a copy of c that authenticates as s. The limiter and observer are
// shared with c.
func (c *Client) As(s session.Session) *Client {
	cp := *c
	cp.token = s.Token
	return &cp
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent calls POST /events.
func (c *Client) CreateEvent(ctx context.Context, p model.EventPayload) (*model.Event, error) {
	var e model.Event
	if err := c.do(ctx, "create_event", http.MethodPost, "/events", p, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEvent calls PUT /events/:id.
func (c *Client) UpdateEvent(ctx context.Context, id string, p model.EventPayload) (*model.Event, error) {
	var e model.Event
	if err := c.do(ctx, "update_event", http.MethodPut, "/events/"+url.PathEscape(id), p, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteEvent calls DELETE /events/:id.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, "delete_event", http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil)
}

// GetEvent calls GET /events/:id.
func (c *Client) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	if err := c.do(ctx, "get_event", http.MethodGet, "/events/"+url.PathEscape(id), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEvents calls GET /events.
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	if err := c.do(ctx, "list_events", http.MethodGet, "/events", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ─── Participants ─────────────────────────────────────────────────────────────

// RegisterParticipant calls POST /participants.
func (c *Client) RegisterParticipant(ctx context.Context, p model.ParticipantPayload) (*model.Participant, error) {
	var out model.Participant
	if err := c.do(ctx, "register_participant", http.MethodPost, "/participants", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListParticipants calls GET /events/:id/participants.
func (c *Client) ListParticipants(ctx context.Context, eventID string) ([]model.Participant, error) {
	var out []model.Participant
	path := "/events/" + url.PathEscape(eventID) + "/participants"
	if err := c.do(ctx, "list_participants", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteParticipant calls DELETE /participants/:id.
func (c *Client) DeleteParticipant(ctx context.Context, id string) error {
	return c.do(ctx, "delete_participant", http.MethodDelete, "/participants/"+url.PathEscape(id), nil, nil)
}

// UpdateParticipant calls PUT /participants/:id.
func (c *Client) UpdateParticipant(ctx context.Context, id string, p model.ParticipantPayload) (*model.Participant, error) {
	var out model.Participant
	if err := c.do(ctx, "update_participant", http.MethodPut, "/participants/"+url.PathEscape(id), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportParticipants calls GET /events/:id/participants/export and returns the
// blob together with the filename it is saved under.
func (c *Client) ExportParticipants(ctx context.Context, eventID string, format model.ExportFormat) (*model.Export, error) {
	path := fmt.Sprintf("/events/%s/participants/export?format=%s", url.PathEscape(eventID), url.QueryEscape(string(format)))

	status, header, body, err := c.roundTrip(ctx, "export_participants", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, decodeError(status, body)
	}

	return &model.Export{
		Filename:    model.ExportFilename(eventID, format),
		ContentType: header.Get("Content-Type"),
		Data:        body,
	}, nil
}

// ─── Transport ────────────────────────────────────────────────────────────────

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	status, _, body, err := c.roundTrip(ctx, op, method, path, in)
	if err != nil {
		return err
	}
	if status >= 400 {
		return decodeError(status, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &RequestError{Status: status, Err: fmt.Errorf("decode %s response: %w", op, err)}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, in any) (int, http.Header, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, nil, &RequestError{Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, nil, &RequestError{Err: fmt.Errorf("marshal %s request: %w", op, err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, nil, &RequestError{Err: fmt.Errorf("create request: %w", err)}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, 0, start)
		return 0, nil, nil, &RequestError{Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.observe(op, resp.StatusCode, start)
	if err != nil {
		return 0, nil, nil, &RequestError{Err: fmt.Errorf("read response: %w", err)}
	}
	return resp.StatusCode, resp.Header, body, nil
}

func (c *Client) observe(op string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(op, status, time.Since(start))
	}
}
