package usecase

import "siapguru/domain"

const (
	monday  = "2025-01-06"
	tuesday = "2025-01-07"
	sunday  = "2025-01-05"
)

func testConfig() *domain.ConfigSnapshot {
	return &domain.ConfigSnapshot{
		Version: 1,
		Teachers: []domain.Teacher{
			{ID: "BS", FullName: "Budi Santoso", Subjects: []string{"MTK"}},
			{ID: "AR", FullName: "Ani Rahma", Subjects: []string{"IPA"}},
			{ID: "SR", FullName: "Sri Rejeki", Subjects: []string{"BIN", "IPS"}},
		},
		Timetable: []domain.TimetableSlot{
			{Day: domain.Monday, Period: "0", Activity: domain.ActivityCeremony, Mapping: map[string]string{"7A": "UPC-BS"}},
			{Day: domain.Monday, Period: "1", Activity: domain.ActivityLesson, Mapping: map[string]string{"7A": "MTK-BS", "7B": "IPA-AR"}},
			{Day: domain.Monday, Period: "2", Activity: domain.ActivityLesson, Mapping: map[string]string{"7A": "MTK-BS", "7B": "IPA-AR"}},
			{Day: domain.Monday, Period: "3", Activity: domain.ActivityLesson, Mapping: map[string]string{"7A": "IPA-AR", "7B": "MTK-BS"}},
			{Day: domain.Monday, Period: "4", Activity: domain.ActivityLesson, Mapping: map[string]string{"7A": "BIN-SR", "7B": "bogus"}},
			{Day: domain.Tuesday, Period: "2", Activity: domain.ActivityLesson, Mapping: map[string]string{"7A": "IPS-SR"}},
			{Day: domain.Tuesday, Period: "10", Activity: domain.ActivityLesson, Mapping: map[string]string{"7A": "IPS-SR", "7B": ""}},
			{Day: domain.Tuesday, Period: "1", Activity: domain.ActivityLesson, Mapping: map[string]string{"7B": "BIN-SR", "9Z": "MTK-BS", "7A": "IPA-AR"}},
		},
		Settings: domain.Settings{
			AcademicYear: "2025/2026",
			Semester:     "Genap",
			Classes:      []domain.SchoolClass{{ID: "7A", DisplayName: "VII A"}, {ID: "7B", DisplayName: "VII B"}},
			SubjectNames: map[string]string{"MTK": "Matematika", "IPA": "IPA Terpadu"},
		},
	}
}

func cells(obligations []domain.Obligation) []string {
	out := make([]string, 0, len(obligations))
	for _, o := range obligations {
		out = append(out, o.Period+"/"+o.ClassID+"/"+o.SubjectCode+"-"+o.TeacherID)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
