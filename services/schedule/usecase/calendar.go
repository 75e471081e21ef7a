package usecase

import (
	"strings"

	"siapguru/domain"
)

type ExceptionLookup interface {
	Lookup(date string) (domain.CalendarException, bool)
}

// CalendarExceptionStore indexes calendar exceptions by date. When two
// entries share a date the first one wins.
type CalendarExceptionStore struct {
	byDate map[string]domain.CalendarException
}

func NewCalendarExceptionStore(events []domain.CalendarException) *CalendarExceptionStore {
	store := &CalendarExceptionStore{
		byDate: make(map[string]domain.CalendarException, len(events)),
	}
	for _, e := range events {
		date := strings.TrimSpace(e.Date)
		if _, dup := store.byDate[date]; dup {
			continue
		}
		store.byDate[date] = e.Clone()
	}
	return store
}

func (s *CalendarExceptionStore) Lookup(date string) (domain.CalendarException, bool) {
	e, ok := s.byDate[strings.TrimSpace(date)]
	if !ok {
		return domain.CalendarException{}, false
	}
	return e.Clone(), true
}
