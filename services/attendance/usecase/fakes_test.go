package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"siapguru/domain"
)

type fakeRemote struct {
	mu        sync.Mutex
	data      domain.RemoteData
	fetchErr  error
	upsertErr error
	rejected  map[string]bool
	hang      bool

	fetchStarted chan struct{}
	fetchGate    chan struct{}

	fetches int
	upserts [][]domain.AttendanceRecord
	configs map[domain.ConfigKind]interface{}
	subs    map[string]func(domain.ChangeEvent)
	noFeed  bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		configs:  make(map[domain.ConfigKind]interface{}),
		subs:     make(map[string]func(domain.ChangeEvent)),
		rejected: make(map[string]bool),
	}
}

// block stands in for a remote that never answers.
func (f *fakeRemote) block(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeRemote) FetchAll(ctx context.Context) (*domain.RemoteData, error) {
	if f.hang {
		return nil, f.block(ctx)
	}
	if f.fetchStarted != nil {
		f.fetchStarted <- struct{}{}
	}
	if f.fetchGate != nil {
		<-f.fetchGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := f.data
	out.Attendance = append([]domain.AttendanceRecord(nil), f.data.Attendance...)
	return &out, nil
}

func (f *fakeRemote) UpsertAttendance(ctx context.Context, records []domain.AttendanceRecord) error {
	if f.hang {
		return f.block(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, append([]domain.AttendanceRecord(nil), records...))
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, rec := range records {
		if f.rejected[rec.ID] {
			return errors.New("value too long for type character varying(16)")
		}
	}
	for _, rec := range records {
		replaced := false
		for i := range f.data.Attendance {
			if f.data.Attendance[i].ID == rec.ID {
				f.data.Attendance[i] = rec
				replaced = true
			}
		}
		if !replaced {
			f.data.Attendance = append(f.data.Attendance, rec)
		}
	}
	return nil
}

func (f *fakeRemote) UpsertConfig(ctx context.Context, kind domain.ConfigKind, payload interface{}) error {
	if f.hang {
		return f.block(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.configs[kind] = payload
	return nil
}

func (f *fakeRemote) SubscribeToChanges(ctx context.Context, table string, onChange func(domain.ChangeEvent)) (func(), error) {
	if f.noFeed {
		return nil, domain.ErrSubscriptionUnsupported
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[table] = onChange
	return func() {
		f.mu.Lock()
		delete(f.subs, table)
		f.mu.Unlock()
	}, nil
}

func (f *fakeRemote) setUpsertErr(err error) {
	f.mu.Lock()
	f.upsertErr = err
	f.mu.Unlock()
}

func (f *fakeRemote) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeRemote) addRemote(records ...domain.AttendanceRecord) {
	f.mu.Lock()
	f.data.Attendance = append(f.data.Attendance, records...)
	f.mu.Unlock()
}

func (f *fakeRemote) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

type memCache struct {
	mu    sync.Mutex
	snap  *domain.Snapshot
	saves int
}

func (m *memCache) Load(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, domain.ErrCacheMiss
	}
	return m.snap, nil
}

func (m *memCache) Save(ctx context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	m.saves++
	return nil
}

func (m *memCache) last() *domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestReconciler(remote *fakeRemote) (*SyncReconciler, *memCache, *fakeClock) {
	cache := &memCache{}
	clock := &fakeClock{t: time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)}
	rec := NewSyncReconciler(remote, cache, quietLogger(), time.Second, 5*time.Second)
	rec.now = clock.now
	return rec, cache, clock
}

func record(date, class, period, teacher string, status domain.AttendanceStatus) domain.AttendanceRecord {
	return domain.AttendanceRecord{
		ID:        domain.RecordID(date, class, period),
		TeacherID: teacher,
		ClassID:   class,
		Date:      date,
		Period:    period,
		Status:    status,
	}
}
