package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"

	"siapguru/domain"
)

// The spreadsheet script speaks the school's sheet columns, so every payload
// is translated at this boundary.
var (
	sheetStatus = map[domain.AttendanceStatus]string{
		domain.StatusPresent:         "HADIR",
		domain.StatusExcusedLeave:    "IZIN",
		domain.StatusSick:            "SAKIT",
		domain.StatusAbsentUnexcused: "TIDAK_HADIR",
	}
	sheetDay = map[domain.DayOfWeek]string{
		domain.Sunday:    "MINGGU",
		domain.Monday:    "SENIN",
		domain.Tuesday:   "SELASA",
		domain.Wednesday: "RABU",
		domain.Thursday:  "KAMIS",
		domain.Friday:    "JUMAT",
		domain.Saturday:  "SABTU",
	}
	sheetActivity = map[domain.ActivityKind]string{
		domain.ActivityLesson:   "KBM",
		domain.ActivityBreak:    "ISTIRAHAT",
		domain.ActivityCeremony: "UPACARA",
	}
	sheetEvent = map[domain.ExceptionKind]string{
		domain.ExceptionHoliday:      "LIBUR",
		domain.ExceptionEvent:        "KEGIATAN",
		domain.ExceptionReducedHours: "JAM_KHUSUS",
	}
	sheetConfigAction = map[domain.ConfigKind]string{
		domain.ConfigTeachers:  "update_teachers",
		domain.ConfigTimetable: "update_schedule",
		domain.ConfigSettings:  "update_settings",
	}
)

type sheetRecord struct {
	ID           string `json:"id"`
	TeacherID    string `json:"id_guru"`
	TeacherName  string `json:"nama_guru"`
	Subject      string `json:"mapel"`
	ClassID      string `json:"id_kelas"`
	Date         string `json:"tanggal"`
	Period       string `json:"jam"`
	Status       string `json:"status"`
	Note         string `json:"catatan"`
	IsAdminInput bool   `json:"is_admin_input"`
}

type sheetTeacher struct {
	ID       string   `json:"id"`
	Name     string   `json:"nama"`
	Subjects []string `json:"mapel"`
}

type sheetSlot struct {
	Day      string            `json:"hari"`
	Period   string            `json:"jam"`
	Activity string            `json:"kegiatan"`
	Mapping  map[string]string `json:"mapping"`
}

type sheetEventRow struct {
	ID      string   `json:"id,omitempty"`
	Date    string   `json:"tanggal"`
	Name    string   `json:"nama"`
	Kind    string   `json:"tipe"`
	Periods []string `json:"affected_jams,omitempty"`
}

type sheetSettings struct {
	AcademicYear string               `json:"tahunPelajaran"`
	Semester     string               `json:"semester"`
	Events       []sheetEventRow      `json:"events"`
	Classes      []domain.SchoolClass `json:"kelas,omitempty"`
	SubjectNames map[string]string    `json:"mapelNames,omitempty"`
}

type sheetData struct {
	Attendance []sheetRecord  `json:"attendance"`
	Teachers   []sheetTeacher `json:"teachers"`
	Schedule   []sheetSlot    `json:"schedule"`
	Settings   *sheetSettings `json:"settings"`
}

type sheetAction struct {
	Action string      `json:"action"`
	Data   interface{} `json:"data"`
}

type spreadsheetStore struct {
	url     string
	timeOut time.Duration
}

// NewSpreadsheetStore talks to a spreadsheet web script. The script cannot
// push changes, so pulls are the only way to see other writers.
func NewSpreadsheetStore(url string, timeOut time.Duration) domain.RemoteStore {
	return &spreadsheetStore{
		url:     url,
		timeOut: timeOut,
	}
}

func (ss *spreadsheetStore) FetchAll(ctx context.Context) (*domain.RemoteData, error) {
	a := fiber.Get(ss.url + "?action=getAll")
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	a.Timeout(ss.deadline(ctx))
	a.MaxRedirectsCount(5)
	if err := a.Parse(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: could not fetch spreadsheet: %v", domain.ErrRemoteUnavailable, errs[0])
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("%w: spreadsheet responded %d", domain.ErrRemoteUnavailable, code)
	}

	var raw sheetData
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: spreadsheet response is not valid JSON: %v", domain.ErrRemoteUnavailable, err)
	}
	return raw.toDomain(), nil
}

func (ss *spreadsheetStore) UpsertAttendance(ctx context.Context, records []domain.AttendanceRecord) error {
	rows := make([]sheetRecord, 0, len(records))
	for _, r := range records {
		rows = append(rows, recordToSheet(r))
	}
	return ss.post(ctx, sheetAction{Action: "saveAttendance", Data: rows})
}

func (ss *spreadsheetStore) UpsertConfig(ctx context.Context, kind domain.ConfigKind, payload interface{}) error {
	action, ok := sheetConfigAction[kind]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownConfigKind, kind)
	}

	var data interface{}
	switch v := payload.(type) {
	case []domain.Teacher:
		rows := make([]sheetTeacher, 0, len(v))
		for _, t := range v {
			rows = append(rows, sheetTeacher{ID: t.ID, Name: t.FullName, Subjects: t.Subjects})
		}
		data = rows
	case []domain.TimetableSlot:
		rows := make([]sheetSlot, 0, len(v))
		for _, s := range v {
			rows = append(rows, sheetSlot{
				Day:      lookup(sheetDay, s.Day),
				Period:   s.Period,
				Activity: lookup(sheetActivity, s.Activity),
				Mapping:  s.Mapping,
			})
		}
		data = rows
	case domain.Settings:
		data = settingsToSheet(v)
	default:
		return fmt.Errorf("%w: %q with %T", domain.ErrUnknownConfigKind, kind, payload)
	}
	return ss.post(ctx, sheetAction{Action: action, Data: data})
}

func (ss *spreadsheetStore) SubscribeToChanges(ctx context.Context, table string, onChange func(domain.ChangeEvent)) (func(), error) {
	return nil, domain.ErrSubscriptionUnsupported
}

func (ss *spreadsheetStore) post(ctx context.Context, body sheetAction) error {
	a := fiber.Post(ss.url)
	a.JSONEncoder(sonic.Marshal)
	a.JSON(body)
	a.Timeout(ss.deadline(ctx))
	if err := a.Parse(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}

	code, _, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%w: could not send %s: %v", domain.ErrRemoteUnavailable, body.Action, errs[0])
	}
	// The script answers writes with a redirect to its result page.
	if code >= fiber.StatusBadRequest {
		return fmt.Errorf("%w: %s responded %d", domain.ErrRemoteUnavailable, body.Action, code)
	}
	return nil
}

// deadline shortens the request timeout to what is left of ctx.
func (ss *spreadsheetStore) deadline(ctx context.Context) time.Duration {
	timeOut := ss.timeOut
	if d, ok := ctx.Deadline(); ok {
		if left := time.Until(d); left < timeOut {
			timeOut = left
		}
	}
	if timeOut <= 0 {
		timeOut = time.Millisecond
	}
	return timeOut
}

func (d sheetData) toDomain() *domain.RemoteData {
	out := &domain.RemoteData{
		Attendance: make([]domain.AttendanceRecord, 0, len(d.Attendance)),
		Teachers:   make([]domain.Teacher, 0, len(d.Teachers)),
		Timetable:  make([]domain.TimetableSlot, 0, len(d.Schedule)),
	}
	for _, r := range d.Attendance {
		rec := domain.AttendanceRecord{
			ID:              r.ID,
			TeacherID:       r.TeacherID,
			TeacherName:     r.TeacherName,
			SubjectLabel:    r.Subject,
			ClassID:         r.ClassID,
			Date:            r.Date,
			Period:          r.Period,
			Status:          reverse(sheetStatus, r.Status),
			Note:            r.Note,
			IsAdminOverride: r.IsAdminInput,
		}
		rec.Normalize()
		out.Attendance = append(out.Attendance, rec)
	}
	for _, t := range d.Teachers {
		out.Teachers = append(out.Teachers, domain.Teacher{ID: t.ID, FullName: t.Name, Subjects: t.Subjects})
	}
	for _, s := range d.Schedule {
		out.Timetable = append(out.Timetable, domain.TimetableSlot{
			Day:      reverse(sheetDay, s.Day),
			Period:   s.Period,
			Activity: reverse(sheetActivity, s.Activity),
			Mapping:  s.Mapping,
		})
	}
	if d.Settings != nil {
		s := domain.Settings{
			AcademicYear: d.Settings.AcademicYear,
			Semester:     d.Settings.Semester,
			Events:       make([]domain.CalendarException, 0, len(d.Settings.Events)),
			Classes:      d.Settings.Classes,
			SubjectNames: d.Settings.SubjectNames,
		}
		for _, e := range d.Settings.Events {
			s.Events = append(s.Events, domain.CalendarException{
				ID:              e.ID,
				Date:            e.Date,
				Name:            e.Name,
				Kind:            reverse(sheetEvent, e.Kind),
				AffectedPeriods: e.Periods,
			})
		}
		out.Settings = &s
	}
	return out
}

func recordToSheet(r domain.AttendanceRecord) sheetRecord {
	return sheetRecord{
		ID:           r.ID,
		TeacherID:    r.TeacherID,
		TeacherName:  r.TeacherName,
		Subject:      r.SubjectLabel,
		ClassID:      r.ClassID,
		Date:         r.Date,
		Period:       r.Period,
		Status:       lookup(sheetStatus, r.Status),
		Note:         r.Note,
		IsAdminInput: r.IsAdminOverride,
	}
}

func settingsToSheet(s domain.Settings) sheetSettings {
	out := sheetSettings{
		AcademicYear: s.AcademicYear,
		Semester:     s.Semester,
		Events:       make([]sheetEventRow, 0, len(s.Events)),
		Classes:      s.Classes,
		SubjectNames: s.SubjectNames,
	}
	for _, e := range s.Events {
		out.Events = append(out.Events, sheetEventRow{
			ID:      e.ID,
			Date:    e.Date,
			Name:    e.Name,
			Kind:    lookup(sheetEvent, e.Kind),
			Periods: e.AffectedPeriods,
		})
	}
	return out
}

// lookup translates a domain value into its sheet name, passing unknown
// values through unchanged.
func lookup[K ~string](names map[K]string, v K) string {
	if name, ok := names[v]; ok {
		return name
	}
	return string(v)
}

func reverse[K ~string](names map[K]string, v string) K {
	for k, name := range names {
		if strings.EqualFold(name, v) {
			return k
		}
	}
	return K(strings.ToUpper(strings.TrimSpace(v)))
}
