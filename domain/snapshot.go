package domain

import (
	"sort"
	"time"
)

const (
	TableAttendance = "attendance_records"
	TableTeachers   = "teachers"
	TableTimetable  = "timetable_slots"
	TableSettings   = "settings_documents"
)

type ConfigKind string

const (
	ConfigTeachers  ConfigKind = "teachers"
	ConfigTimetable ConfigKind = "timetable"
	ConfigSettings  ConfigKind = "settings"
)

// ConfigSnapshot is an immutable copy of teachers, timetable and settings
// handed to the schedule resolvers. Version changes whenever any of them do.
type ConfigSnapshot struct {
	Version   uint64
	Teachers  []Teacher
	Timetable []TimetableSlot
	Settings  Settings
}

// TeacherName falls back to the id for teachers missing from the directory.
func (c *ConfigSnapshot) TeacherName(id string) string {
	for _, t := range c.Teachers {
		if t.ID == id && t.FullName != "" {
			return t.FullName
		}
	}
	return id
}

func (c *ConfigSnapshot) SubjectLabel(code string) string {
	if name, ok := c.Settings.SubjectNames[code]; ok && name != "" {
		return name
	}
	return code
}

// ClassOrder lists the classes of a mapping in roster order, followed by
// classes unknown to the roster in lexicographic order.
func (c *ConfigSnapshot) ClassOrder(mapping map[string]string) []string {
	order := make([]string, 0, len(mapping))
	seen := make(map[string]bool, len(mapping))
	for _, cls := range c.Settings.Classes {
		if _, ok := mapping[cls.ID]; ok && !seen[cls.ID] {
			order = append(order, cls.ID)
			seen[cls.ID] = true
		}
	}
	var rest []string
	for id := range mapping {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// Snapshot is what the local cache persists: the last merged state plus the
// record ids and configuration parts the remote store has not confirmed yet.
type Snapshot struct {
	Attendance    []AttendanceRecord `json:"attendance"`
	Teachers      []Teacher          `json:"teachers"`
	Timetable     []TimetableSlot    `json:"timetable"`
	Settings      *Settings          `json:"settings,omitempty"`
	Pending       []string           `json:"pending,omitempty"`
	PendingConfig []ConfigKind       `json:"pending_config,omitempty"`
	SavedAt       time.Time          `json:"saved_at"`
}

// RemoteData is the result of a full fetch. Nil or empty configuration parts
// mean the remote has nothing stored for them.
type RemoteData struct {
	Attendance []AttendanceRecord `json:"attendance"`
	Teachers   []Teacher          `json:"teachers"`
	Timetable  []TimetableSlot    `json:"timetable"`
	Settings   *Settings          `json:"settings"`
}
