package common

import (
	"fmt"
	"slices"
	"strings"

	"cvstudio/internal/errors"
)

// ValidateOutputFormat accepts any format when supported is empty
func ValidateOutputFormat(format string, supported []string) error {
	if len(supported) == 0 || slices.Contains(supported, format) {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s' (supported: %s)", format, strings.Join(supported, ", ")), nil).
		WithContext("format", format)
}

// ResolveOutputFormat applies the configured default to an unset format
// and validates the result.
func ResolveOutputFormat(requested, defaultFormat string, supported []string) (string, error) {
	format := strings.TrimSpace(requested)
	if format == "" {
		format = defaultFormat
	}
	if err := ValidateOutputFormat(format, supported); err != nil {
		return "", err
	}
	return format, nil
}
