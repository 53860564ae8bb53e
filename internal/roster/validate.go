package roster

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// Shared validator instance; field names in reported errors come from the
// csv struct tags so they match the column names operators know.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("csv"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

// ValidationError reports an unusable roster row with enough context to
// find it in the file: the offending column, the 1-based file row (header
// counted as row 1), and the row's email, or "?" when it has none.
type ValidationError struct {
	Field string
	Row   int
	Email string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s in row %d (email: %s): %v", e.Field, e.Row, e.Email, e.Err)
	}
	return fmt.Sprintf("missing or empty required field %q in row %d (email: %s)", e.Field, e.Row, e.Email)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is a roster validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// validateRequired runs the struct-tag checks and translates the first
// failure into the row/field/email error shape.
func validateRequired(s Student, row int) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Field: verrs[0].Field(), Row: row, Email: emailContext(s.Email)}
	}
	return fmt.Errorf("validate row %d: %w", row, err)
}

func emailContext(email string) string {
	if email == "" {
		return "?"
	}
	return email
}
