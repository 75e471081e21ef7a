package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDate             = errors.New("invalid date")
	ErrInvalidPermit           = errors.New("invalid permit")
	ErrInvalidRecord           = errors.New("invalid attendance record")
	ErrInvalidSettings         = errors.New("invalid settings")
	ErrEmptyCascadeTarget      = errors.New("permit matches no scheduled lesson")
	ErrRemoteUnavailable       = errors.New("remote store unavailable")
	ErrSubscriptionUnsupported = errors.New("change subscription not supported")
	ErrUnknownConfigKind       = errors.New("unknown config kind")
	ErrCacheMiss               = errors.New("no cached snapshot")
	ErrMissingScope            = errors.New("class or teacher id is required")
)

// ConfigurationMismatch is a timetable cell that cannot be parsed. It is
// skipped and only ever reported as a data quality warning.
type ConfigurationMismatch struct {
	Day     DayOfWeek `json:"day"`
	Period  string    `json:"period"`
	ClassID string    `json:"class_id"`
	Raw     string    `json:"raw"`
}

func (m ConfigurationMismatch) Error() string {
	return fmt.Sprintf("malformed timetable cell %s period %s class %s: %q", m.Day, m.Period, m.ClassID, m.Raw)
}
