package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/molunlade/contact-api/internal/dto"
)

// emailPattern is the basic local@domain.tld shape accepted by the intake form.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NewValidator builds the validator used for submission payloads, with the
// contact_email rule registered and json tag names reported in errors.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})

	return v
}

// toFieldErrors converts a validator error into the client-visible error list.
func toFieldErrors(err error) []dto.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []dto.FieldError{{Field: "body", Message: "Invalid payload"}}
	}

	out := make([]dto.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, dto.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Invalid %s: required", fe.Field())
	case "min", "max":
		return fmt.Sprintf("Invalid %s: length must be between %s characters", fe.Field(), lengthBounds(fe))
	case "contact_email":
		return "Invalid email"
	default:
		return fmt.Sprintf("Invalid %s", fe.Field())
	}
}

func lengthBounds(fe validator.FieldError) string {
	switch fe.Field() {
	case "message":
		return "1 and 2000"
	case "request_id":
		return "0 and 200"
	default:
		return "1 and 200"
	}
}

// sanitizer strips any markup from free-text fields. Strict policy keeps the text
// content and escapes what remains.
func newSanitizer() *bluemonday.Policy {
	return bluemonday.StrictPolicy()
}

// normalizeEmail trims the address and lowercases its domain part.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
