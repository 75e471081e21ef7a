package domain

import (
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
)

type AttendanceStatus string

const (
	StatusPresent         AttendanceStatus = "PRESENT"
	StatusExcusedLeave    AttendanceStatus = "EXCUSED_LEAVE"
	StatusSick            AttendanceStatus = "SICK"
	StatusAbsentUnexcused AttendanceStatus = "ABSENT_UNEXCUSED"
)

const (
	DefaultPresentNote = "Present on time"
	RecordIDSeparator  = "|"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusExcusedLeave, StatusSick, StatusAbsentUnexcused:
		return true
	}
	return false
}

type Origin string

const (
	OriginReporter Origin = "REPORTER"
	OriginAdmin    Origin = "ADMIN"
)

func RecordID(date, classID, period string) string {
	return strings.Join([]string{date, classID, period}, RecordIDSeparator)
}

type AttendanceRecord struct {
	ID              string           `gorm:"primaryKey;type:varchar(64)" json:"id" valid:"stringlength(1|64)~ID is too long"`
	TeacherID       string           `gorm:"type:varchar(32);not null;index" json:"teacher_id" valid:"required~Teacher ID is required,stringlength(1|32)~Teacher ID is too long"`
	TeacherName     string           `gorm:"type:varchar(150)" json:"teacher_name" valid:"stringlength(1|150)~Teacher name is too long"`
	SubjectLabel    string           `gorm:"type:varchar(100)" json:"subject_label" valid:"stringlength(1|100)~Subject label is too long"`
	ClassID         string           `gorm:"type:varchar(16);not null;index:idx_attendance_date_class" json:"class_id" valid:"required~Class ID is required,stringlength(1|16)~Class ID is too long"`
	Date            string           `gorm:"type:varchar(10);not null;index:idx_attendance_date_class" json:"date" valid:"required~Date is required"`
	Period          string           `gorm:"type:varchar(16);not null" json:"period" valid:"required~Period is required,stringlength(1|16)~Period is too long"`
	Status          AttendanceStatus `gorm:"type:varchar(32);not null" json:"status" valid:"required~Status is required"`
	Note            string           `gorm:"type:text" json:"note"`
	IsAdminOverride bool             `gorm:"not null" json:"is_admin_override"`
}

func (AttendanceRecord) TableName() string {
	return TableAttendance
}

// Normalize derives the composite id from date, class and period.
func (r *AttendanceRecord) Normalize() {
	r.Date = strings.TrimSpace(r.Date)
	r.ClassID = strings.TrimSpace(r.ClassID)
	r.Period = strings.TrimSpace(r.Period)
	r.ID = RecordID(r.Date, r.ClassID, r.Period)
}

func (r AttendanceRecord) Validate() error {
	if _, err := govalidator.ValidateStruct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}
	if _, err := ParseDate(r.Date); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if r.ID != RecordID(r.Date, r.ClassID, r.Period) {
		return fmt.Errorf("%w: id %q does not match %s", ErrInvalidRecord, r.ID, RecordID(r.Date, r.ClassID, r.Period))
	}
	return nil
}

type RecordFilter struct {
	Date      string
	ClassID   string
	TeacherID string
}

func (f RecordFilter) Match(r AttendanceRecord) bool {
	if f.Date != "" && r.Date != f.Date {
		return false
	}
	if f.ClassID != "" && r.ClassID != f.ClassID {
		return false
	}
	if f.TeacherID != "" && r.TeacherID != f.TeacherID {
		return false
	}
	return true
}
