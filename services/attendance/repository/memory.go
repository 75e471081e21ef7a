package repository

import (
	"context"
	"fmt"
	"sync"

	"siapguru/domain"
)

// MemoryStore keeps the remote state in process. It backs offline setups
// and publishes a change event for every write.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]domain.AttendanceRecord
	order     []string
	teachers  []domain.Teacher
	timetable []domain.TimetableSlot
	settings  *domain.Settings

	subMu  sync.Mutex
	subs   map[string]map[int]func(domain.ChangeEvent)
	nextID int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]domain.AttendanceRecord),
		subs:    make(map[string]map[int]func(domain.ChangeEvent)),
	}
}

func (ms *MemoryStore) FetchAll(ctx context.Context) (*domain.RemoteData, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	data := &domain.RemoteData{
		Attendance: make([]domain.AttendanceRecord, 0, len(ms.order)),
		Teachers:   append([]domain.Teacher(nil), ms.teachers...),
		Timetable:  make([]domain.TimetableSlot, 0, len(ms.timetable)),
	}
	for _, id := range ms.order {
		data.Attendance = append(data.Attendance, ms.records[id])
	}
	for _, s := range ms.timetable {
		data.Timetable = append(data.Timetable, s.Clone())
	}
	if ms.settings != nil {
		s := ms.settings.Clone()
		data.Settings = &s
	}
	return data, nil
}

func (ms *MemoryStore) UpsertAttendance(ctx context.Context, records []domain.AttendanceRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	ms.mu.Lock()
	for _, r := range records {
		if _, ok := ms.records[r.ID]; !ok {
			ms.order = append(ms.order, r.ID)
		}
		ms.records[r.ID] = r
	}
	ms.mu.Unlock()

	ms.publish(domain.TableAttendance, "UPSERT")
	return nil
}

func (ms *MemoryStore) UpsertConfig(ctx context.Context, kind domain.ConfigKind, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}

	var table string
	ms.mu.Lock()
	switch v := payload.(type) {
	case []domain.Teacher:
		ms.teachers = append([]domain.Teacher(nil), v...)
		table = domain.TableTeachers
	case []domain.TimetableSlot:
		ms.timetable = make([]domain.TimetableSlot, 0, len(v))
		for _, s := range v {
			ms.timetable = append(ms.timetable, s.Clone())
		}
		table = domain.TableTimetable
	case domain.Settings:
		s := v.Clone()
		ms.settings = &s
		table = domain.TableSettings
	default:
		ms.mu.Unlock()
		return fmt.Errorf("%w: %q with %T", domain.ErrUnknownConfigKind, kind, payload)
	}
	ms.mu.Unlock()

	ms.publish(table, "UPSERT")
	return nil
}

func (ms *MemoryStore) SubscribeToChanges(ctx context.Context, table string, onChange func(domain.ChangeEvent)) (func(), error) {
	ms.subMu.Lock()
	defer ms.subMu.Unlock()

	if ms.subs[table] == nil {
		ms.subs[table] = make(map[int]func(domain.ChangeEvent))
	}
	ms.nextID++
	id := ms.nextID
	ms.subs[table][id] = onChange

	return func() {
		ms.subMu.Lock()
		delete(ms.subs[table], id)
		ms.subMu.Unlock()
	}, nil
}

func (ms *MemoryStore) publish(table, op string) {
	ms.subMu.Lock()
	handlers := make([]func(domain.ChangeEvent), 0, len(ms.subs[table]))
	for _, h := range ms.subs[table] {
		handlers = append(handlers, h)
	}
	ms.subMu.Unlock()

	for _, h := range handlers {
		h(domain.ChangeEvent{Table: table, Operation: op})
	}
}
