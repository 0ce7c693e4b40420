package workflow

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
	"github.com/go-playground/validator/v10"
)

// ErrValidation is matched by every FieldErrors value.
var ErrValidation = errors.New("validation failed")

// FieldErrors maps a field's wire name to a human readable message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(fe, ErrValidation) true.
func (fe FieldErrors) Is(target error) bool {
	return target == ErrValidation
}

func (fe FieldErrors) clone() FieldErrors {
	if len(fe) == 0 {
		return nil
	}
	out := make(FieldErrors, len(fe))
	for k, v := range fe {
		out[k] = v
	}
	return out
}

// setDefault records msg for field unless an earlier check already did.
func (fe FieldErrors) setDefault(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

var labels = map[string]string{
	"name":           "Name",
	"bio":            "Description",
	"participantnbr": "Participant count",
	"prix":           "Price",
	"startDate":      "Start date",
	"endDate":        "End date",
	"firstName":      "First name",
	"lastName":       "Last name",
	"email":          "Email",
	"phone":          "Phone",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

func message(fe validator.FieldError) string {
	l := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return l + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", l, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", l, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", l, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", l, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or greater", l, fe.Param())
	}
	return l + " is invalid"
}

// collect runs the struct rules and merges their messages into errs.
func collect(errs FieldErrors, rules any) {
	err := validate.Struct(rules)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, fe := range verrs {
		errs.setDefault(fe.Field(), message(fe))
	}
}

// ─── Event rules ──────────────────────────────────────────────────────────────

type eventRules struct {
	Name           string  `json:"name" validate:"required,min=3,max=100"`
	Bio            string  `json:"bio" validate:"required,min=10,max=500"`
	ParticipantNbr int     `json:"participantnbr" validate:"gte=0"`
	Prix           float64 `json:"prix" validate:"gte=0"`
}

// dateLayouts are tried in order. The zone-less ones come from datetime-local
// inputs and are read in the form's location.
var dateLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseDateTime reads a datetime-local or RFC 3339 value.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: unrecognised format", s)
}

// validateEvent coerces and checks d. requireFuture is set when creating: an
// edited event may already have started.
func validateEvent(d model.EventDraft, now time.Time, loc *time.Location, requireFuture bool) (model.ValidatedEvent, FieldErrors) {
	errs := FieldErrors{}
	rules := eventRules{
		Name: strings.TrimSpace(d.Name),
		Bio:  strings.TrimSpace(d.Bio),
	}

	if s := strings.TrimSpace(d.ParticipantNbr); s == "" {
		errs["participantnbr"] = "Participant count is required"
	} else if n, err := strconv.Atoi(s); err != nil {
		errs["participantnbr"] = "Participant count must be a whole number"
	} else {
		rules.ParticipantNbr = n
	}

	if s := strings.TrimSpace(d.Prix); s == "" {
		errs["prix"] = "Price is required"
	} else if f, err := strconv.ParseFloat(s, 64); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		errs["prix"] = "Price must be a number"
	} else {
		rules.Prix = f
	}

	collect(errs, rules)

	start, startOK := checkDate(errs, "startDate", d.StartDate, loc)
	end, endOK := checkDate(errs, "endDate", d.EndDate, loc)
	if startOK && requireFuture && !start.After(now) {
		errs["startDate"] = "Start date must be in the future"
	}
	if startOK && endOK && !end.After(start) {
		errs["endDate"] = "End date must be after the start date"
	}

	if len(errs) > 0 {
		return model.ValidatedEvent{}, errs
	}
	return model.ValidatedEvent{
		Name:           rules.Name,
		Bio:            rules.Bio,
		ParticipantNbr: rules.ParticipantNbr,
		Prix:           rules.Prix,
		StartDate:      start,
		EndDate:        end,
	}, nil
}

func checkDate(errs FieldErrors, field, raw string, loc *time.Location) (time.Time, bool) {
	if strings.TrimSpace(raw) == "" {
		errs[field] = label(field) + " is required"
		return time.Time{}, false
	}
	t, err := ParseDateTime(raw, loc)
	if err != nil {
		errs[field] = label(field) + " is not a valid date"
		return time.Time{}, false
	}
	return t, true
}

// ─── Participant rules ────────────────────────────────────────────────────────

type participantRules struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
}

// ValidateParticipant checks a registration draft and returns the trimmed
// payload for eventID. Phone is optional.
func ValidateParticipant(eventID string, d model.ParticipantDraft) (model.ParticipantPayload, FieldErrors) {
	rules := participantRules{
		FirstName: strings.TrimSpace(d.FirstName),
		LastName:  strings.TrimSpace(d.LastName),
		Email:     strings.TrimSpace(d.Email),
		Phone:     strings.TrimSpace(d.Phone),
	}
	errs := FieldErrors{}
	collect(errs, rules)
	if len(errs) > 0 {
		return model.ParticipantPayload{}, errs
	}
	return model.ParticipantPayload{
		EventID:   eventID,
		FirstName: rules.FirstName,
		LastName:  rules.LastName,
		Email:     rules.Email,
		Phone:     rules.Phone,
	}, nil
}
