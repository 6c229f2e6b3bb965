package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// createMemoryRequest is the body of POST /api/memories. The id is optional;
// the server generates one when it is missing.
type createMemoryRequest struct {
	ID          string `json:"id" validate:"omitempty,max=64"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
	Location    string `json:"location" validate:"omitempty,max=200"`
	Image       string `json:"image" validate:"omitempty,url"`
}

// trim strips surrounding whitespace so blank fields fail "required".
func (r *createMemoryRequest) trim() {
	r.ID = strings.TrimSpace(r.ID)
	r.Date = strings.TrimSpace(r.Date)
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	r.Image = strings.TrimSpace(r.Image)
}

// validateStruct validates s against its tags and formats the failures
// into a single readable error.
func validateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, formatFieldError(e))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "datetime":
		return field + " must be a YYYY-MM-DD date"
	case "url":
		return field + " must be a URL"
	default:
		return field + " is invalid"
	}
}
