package usecase

import (
	"fmt"
	"strings"

	"siapguru/domain"
)

// Cascade expands a permit into one admin override record per (period, class)
// the teacher teaches on the permit date. Calendar exceptions are not
// consulted. Identical inputs always produce identical records.
func Cascade(permit domain.PermitRequest, cfg *domain.ConfigSnapshot) ([]domain.AttendanceRecord, error) {
	if err := permit.Validate(); err != nil {
		return nil, err
	}
	day, err := domain.WeekdayOf(permit.Date)
	if err != nil {
		return nil, err
	}

	var wanted map[string]bool
	if permit.Scope == domain.ScopeSpecificPeriods {
		wanted = make(map[string]bool, len(permit.Periods))
		for _, p := range permit.Periods {
			wanted[strings.TrimSpace(p)] = true
		}
	}

	date := strings.TrimSpace(permit.Date)
	teacherName := cfg.TeacherName(permit.TeacherID)
	seen := make(map[string]bool)
	var records []domain.AttendanceRecord

	for _, slot := range cfg.Timetable {
		if !slot.Day.Is(day) || !slot.IsLesson() {
			continue
		}
		if wanted != nil && !wanted[slot.Period] {
			continue
		}

		for _, classID := range cfg.ClassOrder(slot.Mapping) {
			assignment, ok := domain.ParseAssignment(slot.Mapping[classID])
			if !ok || assignment.TeacherID != permit.TeacherID {
				continue
			}

			id := domain.RecordID(date, classID, slot.Period)
			if seen[id] {
				continue
			}
			seen[id] = true

			records = append(records, domain.AttendanceRecord{
				ID:              id,
				TeacherID:       permit.TeacherID,
				TeacherName:     teacherName,
				SubjectLabel:    cfg.SubjectLabel(assignment.SubjectCode),
				ClassID:         classID,
				Date:            date,
				Period:          slot.Period,
				Status:          permit.Status,
				Note:            permit.Note,
				IsAdminOverride: true,
			})
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: teacher %s on %s (%s)", domain.ErrEmptyCascadeTarget, permit.TeacherID, date, permit.Scope)
	}
	return records, nil
}
