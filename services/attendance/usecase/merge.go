package usecase

import (
	"sort"
	"strconv"

	"siapguru/domain"
)

// Merge combines the local collection with a fresh remote fetch. Remote rows
// win for every id they carry; local rows the remote has not seen yet are
// kept. The result is sorted newest date first, then latest period first.
func Merge(local, remote []domain.AttendanceRecord) []domain.AttendanceRecord {
	merged := make([]domain.AttendanceRecord, 0, len(remote)+len(local))
	seen := make(map[string]bool, len(remote))

	for _, r := range remote {
		if r.ID == "" {
			r.ID = domain.RecordID(r.Date, r.ClassID, r.Period)
		}
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		merged = append(merged, r)
	}
	for _, l := range local {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		merged = append(merged, l)
	}

	SortRecords(merged)
	return merged
}

// SortRecords orders records by date descending, period descending, then
// class and id ascending. Numeric periods compare as numbers.
func SortRecords(records []domain.AttendanceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if c := comparePeriods(a.Period, b.Period); c != 0 {
			return c > 0
		}
		if a.ClassID != b.ClassID {
			return a.ClassID < b.ClassID
		}
		return a.ID < b.ID
	})
}

func comparePeriods(a, b string) int {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return x - y
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
