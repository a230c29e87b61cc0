package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

// Error carries the per-field problems so HTTP handlers can return them as a
// details list.
type Error struct {
	Details []string
}

func (e *Error) Error() string {
	return strings.Join(e.Details, "; ")
}

// Struct validates the given struct using its validate tags.
// Returns an *Error listing each failed field, or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		details := make([]string, 0, len(ve))
		for _, fe := range ve {
			details = append(details, fieldMessage(fe))
		}
		return &Error{Details: details}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", field)
	case "email":
		return fmt.Sprintf("field '%s' must be a valid email address", field)
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s characters", field, fe.Param())
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("field '%s' must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("field '%s' must be at least %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("field '%s' must be exactly %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("field '%s' failed '%s'", field, fe.Tag())
	}
}

// EchoValidator adapts Struct to echo's Validator interface.
type EchoValidator struct{}

func NewEchoValidator() *EchoValidator { return &EchoValidator{} }

func (EchoValidator) Validate(i interface{}) error { return Struct(i) }
