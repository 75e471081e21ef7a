package usecase

import (
	"errors"
	"reflect"
	"testing"

	"siapguru/domain"
)

func TestCascade_WholeDay(t *testing.T) {
	records, err := Cascade(domain.PermitRequest{
		TeacherID: "BS", Date: monday, Status: domain.StatusSick, Scope: domain.ScopeWholeDay, Note: "Flu",
	}, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []string
	for _, r := range records {
		ids = append(ids, r.ID)
		if !r.IsAdminOverride || r.Status != domain.StatusSick || r.Note != "Flu" || r.TeacherName != "Budi Santoso" {
			t.Fatalf("unexpected record %+v", r)
		}
		if r.SubjectLabel != "Matematika" {
			t.Fatalf("subject label not resolved: %+v", r)
		}
	}
	want := []string{"2025-01-06|7A|1", "2025-01-06|7A|2", "2025-01-06|7B|3"}
	if !equalStrings(ids, want) {
		t.Fatalf("got %v want %v", ids, want)
	}
}

func TestCascade_Idempotent(t *testing.T) {
	permit := domain.PermitRequest{
		TeacherID: "AR", Date: monday, Status: domain.StatusExcusedLeave, Scope: domain.ScopeWholeDay, Note: "Family",
	}
	first, err := Cascade(permit, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Cascade(permit, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cascade is not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestCascade_SpecificPeriods(t *testing.T) {
	records, err := Cascade(domain.PermitRequest{
		TeacherID: "BS", Date: monday, Status: domain.StatusExcusedLeave, Scope: domain.ScopeSpecificPeriods, Periods: []string{"2", "3"},
	}, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || records[0].ID != "2025-01-06|7A|2" || records[1].ID != "2025-01-06|7B|3" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestCascade_EmptyTarget(t *testing.T) {
	tests := []domain.PermitRequest{
		{TeacherID: "BS", Date: monday, Status: domain.StatusSick, Scope: domain.ScopeSpecificPeriods, Periods: []string{"4", "7"}},
		{TeacherID: "BS", Date: monday, Status: domain.StatusSick, Scope: domain.ScopeSpecificPeriods, Periods: []string{"0"}},
		{TeacherID: "AR", Date: sunday, Status: domain.StatusSick, Scope: domain.ScopeWholeDay},
	}
	for _, permit := range tests {
		records, err := Cascade(permit, testConfig())
		if !errors.Is(err, domain.ErrEmptyCascadeTarget) {
			t.Fatalf("%+v: want ErrEmptyCascadeTarget, got %v", permit, err)
		}
		if records != nil {
			t.Fatalf("%+v: failed cascade must not produce records, got %+v", permit, records)
		}
	}
}

func TestCascade_InvalidPermit(t *testing.T) {
	tests := map[string]domain.PermitRequest{
		"missing teacher":  {Date: monday, Status: domain.StatusSick, Scope: domain.ScopeWholeDay},
		"bad date":         {TeacherID: "BS", Date: "yesterday", Status: domain.StatusSick, Scope: domain.ScopeWholeDay},
		"unknown status":   {TeacherID: "BS", Date: monday, Status: "LATE", Scope: domain.ScopeWholeDay},
		"no periods given": {TeacherID: "BS", Date: monday, Status: domain.StatusSick, Scope: domain.ScopeSpecificPeriods},
		"unknown scope":    {TeacherID: "BS", Date: monday, Status: domain.StatusSick, Scope: "HALF_DAY"},
	}
	for name, permit := range tests {
		if _, err := Cascade(permit, testConfig()); !errors.Is(err, domain.ErrInvalidPermit) {
			t.Fatalf("%s: want ErrInvalidPermit, got %v", name, err)
		}
	}
}
