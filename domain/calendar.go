package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type ExceptionKind string

const (
	ExceptionHoliday      ExceptionKind = "HOLIDAY"
	ExceptionEvent        ExceptionKind = "EVENT"
	ExceptionReducedHours ExceptionKind = "REDUCED_HOURS"
)

func (k ExceptionKind) Valid() bool {
	switch k {
	case ExceptionHoliday, ExceptionEvent, ExceptionReducedHours:
		return true
	}
	return false
}

type CalendarException struct {
	ID              string        `json:"id,omitempty"`
	Date            string        `json:"date" valid:"required~Date is required"`
	Name            string        `json:"name"`
	Kind            ExceptionKind `json:"kind" valid:"required~Kind is required"`
	AffectedPeriods []string      `json:"affected_periods,omitempty"`
}

func (e CalendarException) CancelsDay() bool {
	return e.Kind == ExceptionHoliday || e.Kind == ExceptionEvent
}

func (e CalendarException) Cancels(period string) bool {
	if e.CancelsDay() {
		return true
	}
	return e.Kind == ExceptionReducedHours && slices.Contains(e.AffectedPeriods, period)
}

func (e CalendarException) Clone() CalendarException {
	out := e
	out.AffectedPeriods = append([]string(nil), e.AffectedPeriods...)
	return out
}

func (e CalendarException) Validate() error {
	if strings.TrimSpace(e.Date) == "" {
		return fmt.Errorf("%w: event date is required", ErrInvalidSettings)
	}
	if _, err := ParseDate(e.Date); err != nil {
		return err
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown event kind %q", ErrInvalidSettings, e.Kind)
	}
	if e.Kind == ExceptionReducedHours && len(e.AffectedPeriods) == 0 {
		return fmt.Errorf("%w: reduced hours on %s lists no periods", ErrInvalidSettings, e.Date)
	}
	return nil
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

func WeekdayOf(date string) (DayOfWeek, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return DayOf(t), nil
}
