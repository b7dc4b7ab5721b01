package domain

import "errors"

// ErrUnrecognized is returned when an enumerated configuration value is not
// one of the recognized options
var ErrUnrecognized = errors.New("unrecognized value")

// ErrInvalidSetting is returned when a numeric run setting is out of range
var ErrInvalidSetting = errors.New("invalid setting")
