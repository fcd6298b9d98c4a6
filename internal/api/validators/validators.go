// Package validators wraps go-playground/validator with the marketplace's
// custom rules and turns failures into the first human-readable message.
package validators

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/reelwork/marketplace/internal/models"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// New returns the shared validator with custom tags registered:
//
//	hasupper    at least one ASCII uppercase letter
//	hasdigit    at least one ASCII digit
//	hasspecial  at least one character outside [A-Za-z0-9]
//	fileformat  one of models.FileFormats
//	notblank    not empty after trimming whitespace
func New() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		mustRegister(v, "hasupper", func(fl validator.FieldLevel) bool {
			return strings.IndexFunc(fl.Field().String(), func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0
		})
		mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		mustRegister(v, "hasdigit", func(fl validator.FieldLevel) bool {
			return strings.IndexFunc(fl.Field().String(), func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
		})
		mustRegister(v, "hasspecial", func(fl validator.FieldLevel) bool {
			return strings.IndexFunc(fl.Field().String(), func(r rune) bool {
				return !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
			}) >= 0
		})
		mustRegister(v, "fileformat", func(fl validator.FieldLevel) bool {
			return IsFileFormat(fl.Field().String())
		})
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// IsFileFormat reports whether f is an accepted deliverable format.
func IsFileFormat(f string) bool {
	for _, ok := range models.FileFormats {
		if f == ok {
			return true
		}
	}
	return false
}

// Messenger is implemented by request types that carry their own messages,
// keyed "Field.tag" (e.g. "Password.min").
type Messenger interface {
	ValidationMessages() map[string]string
}

// Validate checks req and returns the first failure as a message, or "".
func Validate(req any) string {
	err := New().Struct(req)
	if err == nil {
		return ""
	}
	return Message(req, err)
}

// Message renders the first validation error for req.
func Message(req any, err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	// dive errors name the element, e.g. "VideoAttachment[0]"
	field, _, _ := strings.Cut(fe.StructField(), "[")
	if m, ok := req.(Messenger); ok {
		msgs := m.ValidationMessages()
		if s, ok := msgs[field+"."+fe.Tag()]; ok {
			return s
		}
		if s, ok := msgs[field]; ok {
			return s
		}
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
