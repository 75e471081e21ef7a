package domain

import "context"

type AttendanceUseCase interface {
	GetObligationsForClass(ctx context.Context, date, classID string) (*Resolution, error)
	GetObligationsForTeacher(ctx context.Context, date, teacherID string) (*Resolution, error)
	GetBlocksForClass(ctx context.Context, date, classID string) (*BlockSheet, error)
	ApplyPermit(ctx context.Context, permit PermitRequest) (*CommitResult, error)
	SubmitBlocks(ctx context.Context, date, classID string, blocks []Block) (*CommitResult, error)
	Commit(ctx context.Context, records []AttendanceRecord, origin Origin) (*CommitResult, error)
	Pull(ctx context.Context) *SyncReport
	Records(filter RecordFilter) []AttendanceRecord
	Status() Connectivity
	UpdateTeachers(ctx context.Context, teachers []Teacher) (*Connectivity, error)
	UpdateTimetable(ctx context.Context, slots []TimetableSlot) (*Connectivity, error)
	UpdateSettings(ctx context.Context, settings Settings) (*Connectivity, error)
}
