package domain

// Block is a run of contiguous periods for one class that share teacher,
// subject label and override status, edited as one unit.
type Block struct {
	Periods         []string         `json:"periods"`
	TeacherID       string           `json:"teacher_id"`
	TeacherName     string           `json:"teacher_name"`
	SubjectCode     string           `json:"subject_code"`
	SubjectLabel    string           `json:"subject_label"`
	Status          AttendanceStatus `json:"status"`
	Note            string           `json:"note"`
	IsAdminOverride bool             `json:"is_admin_override"`
}

func (b Block) Editable() bool {
	return !b.IsAdminOverride
}

type BlockSheet struct {
	Date      string             `json:"date"`
	ClassID   string             `json:"class_id"`
	Day       DayOfWeek          `json:"day"`
	Exception *CalendarException `json:"exception,omitempty"`
	Blocks    []Block            `json:"blocks"`
}

// Locked tells a holiday apart from a day that merely has no lessons.
func (s *BlockSheet) Locked() bool {
	return s.Exception != nil && s.Exception.CancelsDay()
}
