package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

type DayOfWeek string

const (
	Sunday    DayOfWeek = "SUNDAY"
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
)

// DayNames is indexed by time.Weekday, so Sunday is 0.
var DayNames = [7]DayOfWeek{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

func DayOf(t time.Time) DayOfWeek {
	return DayNames[t.Weekday()]
}

func (d DayOfWeek) Is(other DayOfWeek) bool {
	return strings.EqualFold(strings.TrimSpace(string(d)), string(other))
}

type ActivityKind string

// Only LESSON rows produce obligations. The other kinds exist so a timetable can
// describe a full day.
const (
	ActivityLesson   ActivityKind = "LESSON"
	ActivityBreak    ActivityKind = "BREAK"
	ActivityCeremony ActivityKind = "CEREMONY"
)

const MappingSeparator = "-"

// TimetableSlot is one row of the weekly timetable. Mapping goes from class id
// to "subjectCode-teacherId", an empty value meaning the class has no lesson.
type TimetableSlot struct {
	Day      DayOfWeek         `json:"day" valid:"required~Day is required"`
	Period   string            `json:"period" valid:"required~Period is required"`
	Activity ActivityKind      `json:"activity" valid:"required~Activity is required"`
	Mapping  map[string]string `json:"mapping"`
}

func (s TimetableSlot) IsLesson() bool {
	return strings.EqualFold(string(s.Activity), string(ActivityLesson))
}

func (s TimetableSlot) Validate() error {
	if _, err := govalidator.ValidateStruct(s); err != nil {
		return fmt.Errorf("%w: timetable row %s/%s: %v", ErrInvalidSettings, s.Day, s.Period, err)
	}
	for _, d := range DayNames {
		if s.Day.Is(d) {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown day %q", ErrInvalidSettings, s.Day)
}

func (s TimetableSlot) Clone() TimetableSlot {
	out := s
	if s.Mapping != nil {
		out.Mapping = make(map[string]string, len(s.Mapping))
		for k, v := range s.Mapping {
			out.Mapping[k] = v
		}
	}
	return out
}

type Assignment struct {
	SubjectCode string `json:"subject_code"`
	TeacherID   string `json:"teacher_id"`
}

// ParseAssignment splits a mapping cell on the first separator. Both halves
// must be non-empty.
func ParseAssignment(raw string) (Assignment, bool) {
	subject, teacher, ok := strings.Cut(strings.TrimSpace(raw), MappingSeparator)
	subject, teacher = strings.TrimSpace(subject), strings.TrimSpace(teacher)
	if !ok || subject == "" || teacher == "" {
		return Assignment{}, false
	}
	return Assignment{SubjectCode: subject, TeacherID: teacher}, true
}

func (a Assignment) String() string {
	return a.SubjectCode + MappingSeparator + a.TeacherID
}

type Obligation struct {
	Date        string `json:"date"`
	Period      string `json:"period"`
	ClassID     string `json:"class_id"`
	SubjectCode string `json:"subject_code"`
	TeacherID   string `json:"teacher_id"`
}

// Scope narrows a resolution to one class or one teacher. The zero value keeps everything.
type Scope struct {
	ClassID   string
	TeacherID string
}

type Resolution struct {
	Date        string                  `json:"date"`
	Day         DayOfWeek               `json:"day"`
	Exception   *CalendarException      `json:"exception,omitempty"`
	Obligations []Obligation            `json:"obligations"`
	Mismatches  []ConfigurationMismatch `json:"mismatches,omitempty"`
}

// Cancelled reports whether the whole day is off.
func (r *Resolution) Cancelled() bool {
	return r.Exception != nil && r.Exception.CancelsDay()
}

func (r *Resolution) Clone() *Resolution {
	out := *r
	if r.Exception != nil {
		exc := r.Exception.Clone()
		out.Exception = &exc
	}
	out.Obligations = append([]Obligation(nil), r.Obligations...)
	if out.Obligations == nil {
		out.Obligations = []Obligation{}
	}
	out.Mismatches = append([]ConfigurationMismatch(nil), r.Mismatches...)
	return &out
}
