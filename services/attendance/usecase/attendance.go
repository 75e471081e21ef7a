package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"siapguru/domain"
	schedule "siapguru/services/schedule/usecase"
)

type attendanceUC struct {
	sync        *SyncReconciler
	resolutions *cache.Cache
}

// NewAttendanceUseCase wires the schedule resolvers to the reconciler.
// Resolutions are cached per configuration version for resolutionTTL.
func NewAttendanceUseCase(rec *SyncReconciler, resolutionTTL time.Duration) domain.AttendanceUseCase {
	return &attendanceUC{
		sync:        rec,
		resolutions: cache.New(resolutionTTL, 2*resolutionTTL),
	}
}

func (auc *attendanceUC) GetObligationsForClass(ctx context.Context, date, classID string) (*domain.Resolution, error) {
	if strings.TrimSpace(classID) == "" {
		return nil, domain.ErrMissingScope
	}
	res, _, err := auc.resolve(date, domain.Scope{ClassID: classID})
	return res, err
}

func (auc *attendanceUC) GetObligationsForTeacher(ctx context.Context, date, teacherID string) (*domain.Resolution, error) {
	if strings.TrimSpace(teacherID) == "" {
		return nil, domain.ErrMissingScope
	}
	res, _, err := auc.resolve(date, domain.Scope{TeacherID: teacherID})
	return res, err
}

func (auc *attendanceUC) GetBlocksForClass(ctx context.Context, date, classID string) (*domain.BlockSheet, error) {
	if strings.TrimSpace(classID) == "" {
		return nil, domain.ErrMissingScope
	}
	res, cfg, err := auc.resolve(date, domain.Scope{ClassID: classID})
	if err != nil {
		return nil, err
	}

	existing := auc.sync.Records(domain.RecordFilter{Date: res.Date, ClassID: classID})
	var overrides []domain.AttendanceRecord
	for _, r := range auc.sync.Records(domain.RecordFilter{Date: res.Date}) {
		if r.IsAdminOverride {
			overrides = append(overrides, r)
		}
	}

	return &domain.BlockSheet{
		Date:      res.Date,
		ClassID:   classID,
		Day:       res.Day,
		Exception: res.Exception,
		Blocks:    schedule.Aggregate(res.Obligations, existing, overrides, cfg),
	}, nil
}

func (auc *attendanceUC) ApplyPermit(ctx context.Context, permit domain.PermitRequest) (*domain.CommitResult, error) {
	records, err := schedule.Cascade(permit, auc.sync.Config())
	if err != nil {
		return nil, err
	}
	return auc.sync.Commit(ctx, records, domain.OriginAdmin)
}

// SubmitBlocks stores reporter edits. Teacher and subject always come from
// the resolved timetable, blocks under admin control are skipped.
func (auc *attendanceUC) SubmitBlocks(ctx context.Context, date, classID string, blocks []domain.Block) (*domain.CommitResult, error) {
	if strings.TrimSpace(classID) == "" {
		return nil, domain.ErrMissingScope
	}
	res, cfg, err := auc.resolve(date, domain.Scope{ClassID: classID})
	if err != nil {
		return nil, err
	}

	scheduled := make(map[string]domain.Obligation, len(res.Obligations))
	for _, ob := range res.Obligations {
		scheduled[ob.Period] = ob
	}

	var editable []domain.Block
	var skipped []string
	for _, b := range blocks {
		if b.IsAdminOverride {
			for _, p := range b.Periods {
				skipped = append(skipped, domain.RecordID(res.Date, classID, p))
			}
			continue
		}
		if b.Status == "" {
			b.Status = domain.StatusPresent
		}
		editable = append(editable, b)
	}

	records := schedule.ExpandBlocks(res.Date, classID, editable)
	for i := range records {
		ob, ok := scheduled[records[i].Period]
		if !ok {
			return nil, fmt.Errorf("%w: period %s has no lesson for %s on %s", domain.ErrInvalidRecord, records[i].Period, classID, res.Date)
		}
		records[i].TeacherID = ob.TeacherID
		records[i].TeacherName = cfg.TeacherName(ob.TeacherID)
		records[i].SubjectLabel = cfg.SubjectLabel(ob.SubjectCode)
		records[i].IsAdminOverride = false
	}

	result, err := auc.sync.Commit(ctx, records, domain.OriginReporter)
	if err != nil {
		return nil, err
	}
	result.Skipped = append(skipped, result.Skipped...)
	return result, nil
}

func (auc *attendanceUC) Commit(ctx context.Context, records []domain.AttendanceRecord, origin domain.Origin) (*domain.CommitResult, error) {
	return auc.sync.Commit(ctx, records, origin)
}

func (auc *attendanceUC) Pull(ctx context.Context) *domain.SyncReport {
	return auc.sync.Pull(ctx)
}

func (auc *attendanceUC) Records(filter domain.RecordFilter) []domain.AttendanceRecord {
	return auc.sync.Records(filter)
}

func (auc *attendanceUC) Status() domain.Connectivity {
	return auc.sync.Status()
}

func (auc *attendanceUC) UpdateTeachers(ctx context.Context, teachers []domain.Teacher) (*domain.Connectivity, error) {
	return auc.sync.UpdateConfig(ctx, domain.ConfigTeachers, teachers)
}

func (auc *attendanceUC) UpdateTimetable(ctx context.Context, slots []domain.TimetableSlot) (*domain.Connectivity, error) {
	return auc.sync.UpdateConfig(ctx, domain.ConfigTimetable, slots)
}

func (auc *attendanceUC) UpdateSettings(ctx context.Context, settings domain.Settings) (*domain.Connectivity, error) {
	return auc.sync.UpdateConfig(ctx, domain.ConfigSettings, settings)
}

func (auc *attendanceUC) resolve(date string, scope domain.Scope) (*domain.Resolution, *domain.ConfigSnapshot, error) {
	date = strings.TrimSpace(date)
	cfg := auc.sync.Config()
	key := fmt.Sprintf("%d|%s|%s|%s", cfg.Version, date, scope.ClassID, scope.TeacherID)

	if cached, found := auc.resolutions.Get(key); found {
		return cached.(*domain.Resolution).Clone(), cfg, nil
	}

	res, err := schedule.Resolve(date, cfg, schedule.NewCalendarExceptionStore(cfg.Settings.Events), scope)
	if err != nil {
		return nil, nil, err
	}
	auc.resolutions.Set(key, res, cache.DefaultExpiration)
	return res.Clone(), cfg, nil
}
