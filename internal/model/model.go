// Package model defines the core domain types for the dojo administration console.
package model

import (
	"fmt"
	"time"
)

// Event represents a bookable activity run by a school.
//
// ParticipantNbr is the number of registration slots still open as reported by
// the backend. At creation it equals the event's capacity; the console never
// adjusts it locally and always re-fetches the event after a roster change.
type Event struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Name           string    `json:"name"`
	Bio            string    `json:"bio"`
	ParticipantNbr int       `json:"participantnbr"`
	Prix           float64   `json:"prix"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
}

// Participant represents a person registered against a single event.
type Participant struct {
	ID        string `json:"id"`
	EventID   string `json:"eventId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// FullName joins first and last name for display.
func (p Participant) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// EventDraft is the raw, form-bound state of the event form. Every field is kept
// as the user typed it; coercion happens during validation.
type EventDraft struct {
	Name           string `json:"name"`
	Bio            string `json:"bio"`
	ParticipantNbr string `json:"participantnbr"`
	Prix           string `json:"prix"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
}

// ValidatedEvent is an EventDraft whose fields passed validation and coercion.
type ValidatedEvent struct {
	Name           string
	Bio            string
	ParticipantNbr int
	Prix           float64
	StartDate      time.Time
	EndDate        time.Time
}

// EventPayload is the JSON body of POST /events and PUT /events/:id.
type EventPayload struct {
	Name           string    `json:"name"`
	Bio            string    `json:"bio"`
	ParticipantNbr int       `json:"participantnbr"`
	Prix           float64   `json:"prix"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	UserID         string    `json:"userId"`
}

// ParticipantDraft is the in-progress state of the registration dialog.
type ParticipantDraft struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// ParticipantPayload is the JSON body of POST /participants and PUT /participants/:id.
type ParticipantPayload struct {
	EventID   string `json:"eventId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// ExportFormat selects the roster export encoding.
type ExportFormat string

const (
	ExportPDF   ExportFormat = "pdf"
	ExportCSV   ExportFormat = "csv"
	ExportExcel ExportFormat = "excel"
)

// Extension returns the file extension used when saving an export.
func (f ExportFormat) Extension() string {
	switch f {
	case ExportExcel:
		return "xlsx"
	default:
		return string(f)
	}
}

// Valid reports whether f is one of the supported formats.
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportPDF, ExportCSV, ExportExcel:
		return true
	}
	return false
}

// ExportFilename derives the name an export of eventID is saved under.
func ExportFilename(eventID string, f ExportFormat) string {
	return fmt.Sprintf("event-%s-participants.%s", eventID, f.Extension())
}

// Export is a downloaded roster export.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ErrorResponse is the error envelope returned by the backend and the console.
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}
