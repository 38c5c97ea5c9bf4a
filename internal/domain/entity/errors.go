package entity

import "errors"

// ErrMissingField is returned when a required case or record field is
// absent. Wrapped errors name the specific field.
var ErrMissingField = errors.New("missing required field")
