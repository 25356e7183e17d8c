package errors

import (
	"math"
	"slices"
	"strings"
	"unicode"
)

// ValidatePositiveInt rejects zero and negative integer parameters.
func ValidatePositiveInt(field string, v int) error {
	if v <= 0 {
		return New(ErrCodeInvalidConfiguration, "%s must be positive, got %d", field, v)
	}
	return nil
}

// ValidatePositiveFloat rejects zero, negative, NaN and infinite parameters.
func ValidatePositiveFloat(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return New(ErrCodeInvalidConfiguration, "%s must be a positive finite number, got %v", field, v)
	}
	return nil
}

// ValidateOneOf checks that v is one of the allowed values.
func ValidateOneOf(code Code, field, v string, allowed ...string) error {
	if !slices.Contains(allowed, v) {
		return New(code, "invalid %s: %q (must be one of: %s)", field, v, strings.Join(allowed, ", "))
	}
	return nil
}

// ValidatePath validates an output path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
//
// Absolute paths are allowed since output directories are chosen by the operator.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	return nil
}
