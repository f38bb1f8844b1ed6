package tool

import (
	"fmt"

	"goose-tools/internal/domain"
)

// RequireField returns an error if the string value is empty.
func RequireField(name, value string) error {
	if value == "" {
		return fmt.Errorf("'%s' is required: %w", name, domain.ErrInvalidInput)
	}
	return nil
}

// RequireFields validates several required string fields given as
// name, value pairs.
func RequireFields(kvs ...string) error {
	if len(kvs)%2 != 0 {
		return fmt.Errorf("RequireFields: odd number of arguments")
	}
	for i := 0; i < len(kvs); i += 2 {
		if err := RequireField(kvs[i], kvs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRange checks that value is within [min, max].
func ValidateRange(name string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be %d-%d: %w", name, min, max, domain.ErrInvalidInput)
	}
	return nil
}

// ValidateMaxLength checks that value does not exceed max bytes.
func ValidateMaxLength(name, value string, max int) error {
	if len(value) > max {
		return fmt.Errorf("%s exceeds maximum length of %d: %w", name, max, domain.ErrInvalidInput)
	}
	return nil
}

// ValidateAll returns the first non-nil error.
//
//	if err := ValidateAll(RequireField("name", p.Name), ValidateRange("port", p.Port, 0, 65535)); err != nil { ... }
func ValidateAll(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
