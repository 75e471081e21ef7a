package usecase

import (
	"strings"

	"siapguru/domain"
)

// Aggregate folds the obligations of one class on one date into blocks.
//
// Each obligation takes its status from an admin override for the same
// teacher and period when there is one, otherwise from the record already
// submitted for that exact id, otherwise PRESENT with the default note. A new
// block starts whenever teacher, subject label or override flag changes.
func Aggregate(obligations []domain.Obligation, existing, adminOverrides []domain.AttendanceRecord, cfg *domain.ConfigSnapshot) []domain.Block {
	if cfg == nil {
		cfg = &domain.ConfigSnapshot{}
	}

	byID := make(map[string]domain.AttendanceRecord, len(existing))
	for _, r := range existing {
		byID[recordKey(r)] = r
	}

	admin := make(map[string]domain.AttendanceRecord, len(adminOverrides))
	for _, r := range adminOverrides {
		if !r.IsAdminOverride {
			continue
		}
		admin[adminKey(r.Date, r.TeacherID, r.Period)] = r
	}

	blocks := []domain.Block{}
	for _, ob := range obligations {
		label := cfg.SubjectLabel(ob.SubjectCode)
		status, note := domain.StatusPresent, domain.DefaultPresentNote
		isAdmin := false

		if rec, ok := admin[adminKey(ob.Date, ob.TeacherID, ob.Period)]; ok {
			status, note, isAdmin = rec.Status, rec.Note, true
		} else if rec, ok := byID[domain.RecordID(ob.Date, ob.ClassID, ob.Period)]; ok {
			status, isAdmin = rec.Status, rec.IsAdminOverride
			if strings.TrimSpace(rec.Note) != "" {
				note = rec.Note
			} else if isAdmin {
				note = ""
			}
		}

		if n := len(blocks); n > 0 {
			last := &blocks[n-1]
			if last.TeacherID == ob.TeacherID && last.SubjectLabel == label && last.IsAdminOverride == isAdmin {
				last.Periods = append(last.Periods, ob.Period)
				continue
			}
		}

		blocks = append(blocks, domain.Block{
			Periods:         []string{ob.Period},
			TeacherID:       ob.TeacherID,
			TeacherName:     cfg.TeacherName(ob.TeacherID),
			SubjectCode:     ob.SubjectCode,
			SubjectLabel:    label,
			Status:          status,
			Note:            note,
			IsAdminOverride: isAdmin,
		})
	}
	return blocks
}

// ExpandBlocks turns blocks back into one record per period.
func ExpandBlocks(date, classID string, blocks []domain.Block) []domain.AttendanceRecord {
	var records []domain.AttendanceRecord
	for _, b := range blocks {
		for _, period := range b.Periods {
			records = append(records, domain.AttendanceRecord{
				ID:              domain.RecordID(date, classID, period),
				TeacherID:       b.TeacherID,
				TeacherName:     b.TeacherName,
				SubjectLabel:    b.SubjectLabel,
				ClassID:         classID,
				Date:            date,
				Period:          period,
				Status:          b.Status,
				Note:            b.Note,
				IsAdminOverride: b.IsAdminOverride,
			})
		}
	}
	return records
}

func recordKey(r domain.AttendanceRecord) string {
	if r.ID != "" {
		return r.ID
	}
	return domain.RecordID(r.Date, r.ClassID, r.Period)
}

func adminKey(date, teacherID, period string) string {
	return date + domain.RecordIDSeparator + teacherID + domain.RecordIDSeparator + period
}
