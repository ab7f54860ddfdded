package model

import "errors"

// ValidationError reports a missing or malformed required field. It is
// returned instead of silently normalizing bad input; malformed dates or
// statuses in stored records indicate corruption and must surface.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return "invalid " + e.Field
	}
	return "invalid " + e.Field + ": " + e.Reason
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
