package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).IsValid()
	})
	return v
}

// collect runs the validator over s and appends its failures to ve.
func collect(ve *ValidationError, s any) {
	err := validate.Struct(s)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		ve.add("", err.Error())
		return
	}
	for _, fe := range verrs {
		ve.add(fe.Field(), fieldMessage(fe))
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "nonblank":
		return "is required"
	case "max":
		return fmt.Sprintf("must be %s characters or fewer", fe.Param())
	case "status":
		return fmt.Sprintf("invalid value %q (want %q or %q)", fe.Value(), StatusOccurring, StatusResolved)
	}
	return "failed " + fe.Tag() + " check"
}

// eventRules mirrors Event with the constraints a stored record must meet.
type eventRules struct {
	ID          string    `json:"id" validate:"required"`
	Title       string    `json:"title" validate:"nonblank,max=500"`
	Description string    `json:"description" validate:"max=10000"`
	Start       time.Time `json:"start" validate:"required"`
	Status      Status    `json:"status" validate:"status"`
	CreatedAt   time.Time `json:"createdAt" validate:"required"`
}

// ValidateEvent checks an Event for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the event is valid.
func ValidateEvent(e *Event) error {
	var ve ValidationError
	collect(&ve, eventRules{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Start:       e.Start,
		Status:      e.Status,
		CreatedAt:   e.CreatedAt,
	})

	// End consistency with Status.
	if e.Status == StatusResolved && e.End == nil {
		ve.add("end", "is required when status is resolved")
	}
	if e.Status == StatusOccurring && e.End != nil {
		ve.add("end", "must be null when status is occurring")
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// Validate checks the input and returns the parsed start time.
func (in NewEventInput) Validate() (time.Time, error) {
	var ve ValidationError
	collect(&ve, in)

	var start time.Time
	if strings.TrimSpace(in.Start) != "" {
		t, err := ParseTimestamp(in.Start)
		if err != nil {
			ve.add("start", "must be an ISO-8601 timestamp")
		}
		start = t
	}

	if ve.HasErrors() {
		return time.Time{}, &ve
	}
	return start, nil
}

// updateRules carries the EventUpdate fields that have value constraints.
type updateRules struct {
	Status      *Status `json:"status" validate:"omitnil,status"`
	Title       *string `json:"title" validate:"omitnil,nonblank,max=500"`
	Description *string `json:"description" validate:"omitnil,max=10000"`
}

// ValidateUpdate rejects empty updates and out-of-range values.
func ValidateUpdate(u EventUpdate) error {
	var ve ValidationError
	if u.IsEmpty() {
		ve.add("update", "no valid fields provided")
		return &ve
	}
	collect(&ve, updateRules{Status: u.Status, Title: u.Title, Description: u.Description})
	if u.Start != nil && u.Start.IsZero() {
		ve.add("start", "is required")
	}
	if ve.HasErrors() {
		return &ve
	}
	return nil
}
