package usecase

import (
	"strings"

	"siapguru/domain"
)

// Resolve lists the obligations of a date in timetable row order, classes
// within a row following the roster. A holiday or event yields no obligations,
// reduced hours drop the listed periods. Malformed cells are skipped and
// returned as mismatches.
func Resolve(date string, cfg *domain.ConfigSnapshot, exceptions ExceptionLookup, scope domain.Scope) (*domain.Resolution, error) {
	day, err := domain.WeekdayOf(date)
	if err != nil {
		return nil, err
	}

	res := &domain.Resolution{
		Date:        date,
		Day:         day,
		Obligations: []domain.Obligation{},
	}

	if exceptions != nil {
		if exc, ok := exceptions.Lookup(date); ok {
			res.Exception = &exc
			if exc.CancelsDay() {
				return res, nil
			}
		}
	}

	for _, slot := range cfg.Timetable {
		if !slot.Day.Is(day) || !slot.IsLesson() {
			continue
		}
		if res.Exception != nil && res.Exception.Cancels(slot.Period) {
			continue
		}

		for _, classID := range cfg.ClassOrder(slot.Mapping) {
			if scope.ClassID != "" && classID != scope.ClassID {
				continue
			}
			raw := slot.Mapping[classID]
			if strings.TrimSpace(raw) == "" {
				continue
			}

			assignment, ok := domain.ParseAssignment(raw)
			if !ok {
				res.Mismatches = append(res.Mismatches, domain.ConfigurationMismatch{
					Day:     day,
					Period:  slot.Period,
					ClassID: classID,
					Raw:     raw,
				})
				continue
			}
			if scope.TeacherID != "" && assignment.TeacherID != scope.TeacherID {
				continue
			}

			res.Obligations = append(res.Obligations, domain.Obligation{
				Date:        date,
				Period:      slot.Period,
				ClassID:     classID,
				SubjectCode: assignment.SubjectCode,
				TeacherID:   assignment.TeacherID,
			})
		}
	}

	return res, nil
}
