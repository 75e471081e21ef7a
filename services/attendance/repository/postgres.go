package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"siapguru/domain"
)

const settingsDocument = "settings"

type TeacherRow struct {
	ID       string         `gorm:"primaryKey;type:varchar(32)"`
	FullName string         `gorm:"type:varchar(150);not null"`
	Subjects pq.StringArray `gorm:"type:text[]"`
}

func (TeacherRow) TableName() string {
	return domain.TableTeachers
}

// TimetableRow keeps the row order of the timetable in Position.
type TimetableRow struct {
	Position int            `gorm:"primaryKey;autoIncrement:false"`
	Day      string         `gorm:"type:varchar(16);not null;index"`
	Period   string         `gorm:"type:varchar(16);not null"`
	Activity string         `gorm:"type:varchar(16);not null"`
	Mapping  datatypes.JSON `gorm:"type:jsonb"`
}

func (TimetableRow) TableName() string {
	return domain.TableTimetable
}

type SettingsRow struct {
	Kind     string         `gorm:"primaryKey;type:varchar(32)"`
	Document datatypes.JSON `gorm:"type:jsonb;not null"`
}

func (SettingsRow) TableName() string {
	return domain.TableSettings
}

type postgresStore struct {
	db       *gorm.DB
	listener *ChangeListener
}

// NewPostgresStore returns a RemoteStore on top of gorm. Without a listener
// change subscriptions are reported as unsupported.
func NewPostgresStore(database *gorm.DB, listener *ChangeListener) domain.RemoteStore {
	return &postgresStore{
		db:       database,
		listener: listener,
	}
}

func (ps *postgresStore) FetchAll(ctx context.Context) (*domain.RemoteData, error) {
	var (
		records   []domain.AttendanceRecord
		teachers  []TeacherRow
		timetable []TimetableRow
		settings  *domain.Settings
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ps.db.WithContext(gctx).Order("date desc, period desc").Find(&records).Error
	})
	g.Go(func() error {
		return ps.db.WithContext(gctx).Order("id").Find(&teachers).Error
	})
	g.Go(func() error {
		return ps.db.WithContext(gctx).Order("position").Find(&timetable).Error
	})
	g.Go(func() error {
		var row SettingsRow
		err := ps.db.WithContext(gctx).Where("kind = ?", settingsDocument).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var s domain.Settings
		if err := sonic.Unmarshal(row.Document, &s); err != nil {
			return fmt.Errorf("could not decode settings document: %w", err)
		}
		settings = &s
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, remoteErr("fetch data", err)
	}

	data := &domain.RemoteData{
		Attendance: records,
		Teachers:   make([]domain.Teacher, 0, len(teachers)),
		Timetable:  make([]domain.TimetableSlot, 0, len(timetable)),
		Settings:   settings,
	}
	for _, t := range teachers {
		data.Teachers = append(data.Teachers, domain.Teacher{ID: t.ID, FullName: t.FullName, Subjects: []string(t.Subjects)})
	}
	for _, row := range timetable {
		slot := domain.TimetableSlot{
			Day:      domain.DayOfWeek(row.Day),
			Period:   row.Period,
			Activity: domain.ActivityKind(row.Activity),
		}
		if len(row.Mapping) > 0 {
			if err := sonic.Unmarshal(row.Mapping, &slot.Mapping); err != nil {
				return nil, fmt.Errorf("could not decode mapping of %s/%s: %w", row.Day, row.Period, err)
			}
		}
		data.Timetable = append(data.Timetable, slot)
	}
	return data, nil
}

func (ps *postgresStore) UpsertAttendance(ctx context.Context, records []domain.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := ps.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"teacher_id", "teacher_name", "subject_label", "class_id",
				"date", "period", "status", "note", "is_admin_override",
			}),
		}).
		CreateInBatches(&records, 200).Error
	if err != nil {
		return remoteErr("save attendance", err)
	}
	return nil
}

// UpsertConfig replaces the stored teachers or timetable as a whole.
func (ps *postgresStore) UpsertConfig(ctx context.Context, kind domain.ConfigKind, payload interface{}) error {
	var err error
	switch v := payload.(type) {
	case []domain.Teacher:
		err = ps.replaceTeachers(ctx, v)
	case []domain.TimetableSlot:
		err = ps.replaceTimetable(ctx, v)
	case domain.Settings:
		err = ps.saveSettings(ctx, v)
	default:
		return fmt.Errorf("%w: %q with %T", domain.ErrUnknownConfigKind, kind, payload)
	}
	if err != nil {
		return remoteErr("save "+string(kind), err)
	}
	return nil
}

func (ps *postgresStore) SubscribeToChanges(ctx context.Context, table string, onChange func(domain.ChangeEvent)) (func(), error) {
	if ps.listener == nil {
		return nil, domain.ErrSubscriptionUnsupported
	}
	return ps.listener.Subscribe(ctx, table, onChange)
}

func (ps *postgresStore) replaceTeachers(ctx context.Context, teachers []domain.Teacher) error {
	rows := make([]TeacherRow, 0, len(teachers))
	for _, t := range teachers {
		rows = append(rows, TeacherRow{ID: t.ID, FullName: t.FullName, Subjects: pq.StringArray(t.Subjects)})
	}
	return ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&TeacherRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (ps *postgresStore) replaceTimetable(ctx context.Context, slots []domain.TimetableSlot) error {
	rows := make([]TimetableRow, 0, len(slots))
	for i, s := range slots {
		mapping, err := sonic.Marshal(s.Mapping)
		if err != nil {
			return fmt.Errorf("could not encode mapping of %s/%s: %w", s.Day, s.Period, err)
		}
		rows = append(rows, TimetableRow{
			Position: i,
			Day:      string(s.Day),
			Period:   s.Period,
			Activity: string(s.Activity),
			Mapping:  datatypes.JSON(mapping),
		})
	}
	return ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&TimetableRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, 200).Error
	})
}

func (ps *postgresStore) saveSettings(ctx context.Context, settings domain.Settings) error {
	doc, err := sonic.Marshal(settings)
	if err != nil {
		return fmt.Errorf("could not encode settings: %w", err)
	}
	row := SettingsRow{Kind: settingsDocument, Document: datatypes.JSON(doc)}
	return ps.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"document"}),
		}).
		Create(&row).Error
}

func remoteErr(action string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w: could not %s: %s (%s)", domain.ErrRemoteUnavailable, action, pgErr.Message, pgErr.Code)
	}
	return fmt.Errorf("%w: could not %s: %v", domain.ErrRemoteUnavailable, action, err)
}
