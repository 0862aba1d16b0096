package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct's validate tags and returns a readable error
// listing every failed field
func Validate[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, validationError(err)
	}

	return value, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	lines := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		line := fmt.Sprintf("field '%s' failed rule '%s'", fe.StructField(), fe.Tag())
		if fe.Param() != "" {
			line += fmt.Sprintf(" (expected '%s')", fe.Param())
		}
		lines = append(lines, line)
	}
	return errors.New(strings.Join(lines, "; "))
}
