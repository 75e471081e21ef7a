package usecase

import (
	"errors"
	"testing"

	"siapguru/domain"
)

func TestResolve_DayCancellingExceptions(t *testing.T) {
	cfg := testConfig()
	for _, kind := range []domain.ExceptionKind{domain.ExceptionHoliday, domain.ExceptionEvent} {
		store := NewCalendarExceptionStore([]domain.CalendarException{{Date: monday, Name: "Off", Kind: kind}})
		for _, scope := range []domain.Scope{{}, {ClassID: "7A"}, {TeacherID: "BS"}} {
			res, err := Resolve(monday, cfg, store, scope)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", kind, err)
			}
			if len(res.Obligations) != 0 {
				t.Fatalf("%s %+v: want no obligations, got %v", kind, scope, cells(res.Obligations))
			}
			if !res.Cancelled() {
				t.Fatalf("%s: resolution must be flagged cancelled", kind)
			}
		}
	}
}

func TestResolve_ReducedHoursDropsListedPeriods(t *testing.T) {
	cfg := testConfig()
	store := NewCalendarExceptionStore([]domain.CalendarException{
		{Date: monday, Kind: domain.ExceptionReducedHours, AffectedPeriods: []string{"2", "3"}},
	})

	res, err := Resolve(monday, cfg, store, domain.Scope{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ob := range res.Obligations {
		if ob.Period == "2" || ob.Period == "3" {
			t.Fatalf("period %s should have been dropped", ob.Period)
		}
	}
	want := []string{"1/7A/MTK-BS", "1/7B/IPA-AR", "4/7A/BIN-SR"}
	if got := cells(res.Obligations); !equalStrings(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if res.Cancelled() {
		t.Fatalf("reduced hours must not cancel the day")
	}
}

func TestResolve_FollowsTimetableRowOrder(t *testing.T) {
	cfg := testConfig()

	res, err := Resolve(monday, cfg, NewCalendarExceptionStore(nil), domain.Scope{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"1/7A/MTK-BS", "1/7B/IPA-AR",
		"2/7A/MTK-BS", "2/7B/IPA-AR",
		"3/7A/IPA-AR", "3/7B/MTK-BS",
		"4/7A/BIN-SR",
	}
	if got := cells(res.Obligations); !equalStrings(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}

	// Tuesday rows are listed as 2, 10, 1 and classes outside the roster come last.
	res, err = Resolve(tuesday, cfg, nil, domain.Scope{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = []string{"2/7A/IPS-SR", "10/7A/IPS-SR", "1/7A/IPA-AR", "1/7B/BIN-SR", "1/9Z/MTK-BS"}
	if got := cells(res.Obligations); !equalStrings(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestResolve_MalformedCellIsSkipped(t *testing.T) {
	res, err := Resolve(monday, testConfig(), nil, domain.Scope{ClassID: "7B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"1/7B/IPA-AR", "2/7B/IPA-AR", "3/7B/MTK-BS"}
	if got := cells(res.Obligations); !equalStrings(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if len(res.Mismatches) != 1 {
		t.Fatalf("want one mismatch, got %v", res.Mismatches)
	}
	if m := res.Mismatches[0]; m.Period != "4" || m.ClassID != "7B" || m.Raw != "bogus" {
		t.Fatalf("unexpected mismatch %+v", m)
	}
}

func TestResolve_TeacherScope(t *testing.T) {
	res, err := Resolve(monday, testConfig(), nil, domain.Scope{TeacherID: "BS"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"1/7A/MTK-BS", "2/7A/MTK-BS", "3/7B/MTK-BS"}
	if got := cells(res.Obligations); !equalStrings(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestResolve_WeekdayStartsOnSunday(t *testing.T) {
	res, err := Resolve(sunday, testConfig(), nil, domain.Scope{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Day != domain.Sunday || domain.DayNames[0] != domain.Sunday {
		t.Fatalf("want SUNDAY, got %s", res.Day)
	}
	if len(res.Obligations) != 0 || res.Cancelled() {
		t.Fatalf("sunday has no lessons and no exception, got %+v", res)
	}
}

func TestResolve_InvalidDate(t *testing.T) {
	_, err := Resolve("06/01/2025", testConfig(), nil, domain.Scope{})
	if !errors.Is(err, domain.ErrInvalidDate) {
		t.Fatalf("want ErrInvalidDate, got %v", err)
	}
}
