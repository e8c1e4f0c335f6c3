package models

import "errors"

// ErrInvalidStatus is returned when a status string is not part of its enum.
var ErrInvalidStatus = errors.New("invalid status")
