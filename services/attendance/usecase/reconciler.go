package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"siapguru/domain"
)

// SyncReconciler owns the only writable copy of attendance records and
// configuration. Writes are applied locally first and pushed afterwards. Pulls
// merge remote state back in unless a newer pull or write has started since,
// or a write finished less than the grace window ago.
type SyncReconciler struct {
	remote  domain.RemoteStore
	cache   domain.LocalCache
	log     *logrus.Logger
	TimeOut time.Duration
	Grace   time.Duration
	now     func() time.Time

	mu            sync.Mutex
	records       map[string]domain.AttendanceRecord
	teachers      []domain.Teacher
	timetable     []domain.TimetableSlot
	settings      domain.Settings
	version       uint64
	pending       map[string]uint64
	pendingConfig map[domain.ConfigKind]uint64
	writeSeq      uint64
	pullGen       uint64
	savesInFlight int
	suppressUntil time.Time
	state         domain.SyncState
	online        bool
	lastErr       string
	lastSynced    *time.Time
	snapSeq       uint64

	cacheMu  sync.Mutex
	savedSeq uint64
}

func NewSyncReconciler(remote domain.RemoteStore, cache domain.LocalCache, log *logrus.Logger, timeOut, grace time.Duration) *SyncReconciler {
	return &SyncReconciler{
		remote:        remote,
		cache:         cache,
		log:           log,
		TimeOut:       timeOut,
		Grace:         grace,
		now:           time.Now,
		records:       make(map[string]domain.AttendanceRecord),
		settings:      domain.DefaultSettings(),
		version:       1,
		pending:       make(map[string]uint64),
		pendingConfig: make(map[domain.ConfigKind]uint64),
		state:         domain.StateIdle,
	}
}

// Restore loads the last persisted snapshot. A missing snapshot leaves the
// default configuration in place.
func (r *SyncReconciler) Restore(ctx context.Context) error {
	snap, err := r.cache.Load(ctx)
	if errors.Is(err, domain.ErrCacheMiss) {
		r.log.Info("No cached snapshot, starting from defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not restore local snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range snap.Attendance {
		if rec.ID == "" {
			rec.Normalize()
		}
		r.records[rec.ID] = rec
	}
	if len(snap.Teachers) > 0 {
		r.teachers = snap.Teachers
	}
	if len(snap.Timetable) > 0 {
		r.timetable = snap.Timetable
	}
	if snap.Settings != nil {
		r.settings = snap.Settings.Clone()
	}
	for _, id := range snap.Pending {
		if _, ok := r.records[id]; ok {
			r.writeSeq++
			r.pending[id] = r.writeSeq
		}
	}
	for _, kind := range snap.PendingConfig {
		switch kind {
		case domain.ConfigTeachers, domain.ConfigTimetable, domain.ConfigSettings:
			r.writeSeq++
			r.pendingConfig[kind] = r.writeSeq
		}
	}
	r.version++

	r.log.WithFields(logrus.Fields{
		"records": len(r.records),
		"pending": len(r.pending) + len(r.pendingConfig),
		"saved":   snap.SavedAt,
	}).Info("Local snapshot restored")
	return nil
}

// Pull fetches the remote state and merges it in. Unconfirmed writes are
// pushed first. Those the remote still rejects keep their local version
// through the merge and stay pending.
func (r *SyncReconciler) Pull(ctx context.Context) *domain.SyncReport {
	r.flushPending(ctx)

	r.mu.Lock()
	if r.suppressedLocked() {
		r.mu.Unlock()
		return r.report(domain.PullSuppressed)
	}
	r.pullGen++
	gen := r.pullGen
	r.state = domain.StatePulling
	r.mu.Unlock()

	fctx, cancel := context.WithTimeout(ctx, r.TimeOut)
	data, err := r.remote.FetchAll(fctx)
	cancel()

	r.mu.Lock()
	if gen != r.pullGen {
		r.mu.Unlock()
		r.log.Debug("Pull result discarded, newer operation started")
		return r.report(domain.PullDiscarded)
	}
	r.state = r.restingStateLocked()
	if err != nil {
		r.markOfflineLocked(err)
		r.mu.Unlock()
		r.log.WithError(err).Warn("Pull failed, keeping local state")
		return r.report(domain.PullFailed)
	}
	if r.suppressedLocked() {
		r.mu.Unlock()
		return r.report(domain.PullSuppressed)
	}

	r.applyRemoteLocked(data)
	r.markOnlineLocked()
	snap, seq := r.snapshotLocked()
	r.mu.Unlock()

	r.persist(ctx, snap, seq)
	return r.report(domain.PullMerged)
}

// Commit applies records locally, persists them and pushes them to the
// remote store. Remote failure leaves the records applied and pending.
// Reporter commits never touch admin overrides.
func (r *SyncReconciler) Commit(ctx context.Context, records []domain.AttendanceRecord, origin domain.Origin) (*domain.CommitResult, error) {
	batch := make([]domain.AttendanceRecord, 0, len(records))
	index := make(map[string]int, len(records))
	for _, rec := range records {
		rec.Normalize()
		if origin != domain.OriginAdmin {
			rec.IsAdminOverride = false
		}
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		if i, dup := index[rec.ID]; dup {
			batch[i] = rec
			continue
		}
		index[rec.ID] = len(batch)
		batch = append(batch, rec)
	}

	result := &domain.CommitResult{
		BatchID: uuid.NewString(),
		Applied: []string{},
	}

	r.mu.Lock()
	applied := make([]domain.AttendanceRecord, 0, len(batch))
	seqs := make(map[string]uint64, len(batch))
	for _, rec := range batch {
		if cur, ok := r.records[rec.ID]; ok && cur.IsAdminOverride && origin != domain.OriginAdmin {
			result.Skipped = append(result.Skipped, rec.ID)
			continue
		}
		r.records[rec.ID] = rec
		r.writeSeq++
		r.pending[rec.ID] = r.writeSeq
		seqs[rec.ID] = r.writeSeq
		applied = append(applied, rec)
		result.Applied = append(result.Applied, rec.ID)
	}
	if len(applied) == 0 {
		r.mu.Unlock()
		result.Status = r.Status()
		return result, nil
	}
	r.beginSaveLocked()
	snap, seq := r.snapshotLocked()
	r.mu.Unlock()

	r.persist(ctx, snap, seq)

	uctx, cancel := context.WithTimeout(ctx, r.TimeOut)
	err := r.remote.UpsertAttendance(uctx, applied)
	cancel()

	r.mu.Lock()
	r.endSaveLocked(err)
	if err == nil {
		for id, s := range seqs {
			if r.pending[id] == s {
				delete(r.pending, id)
			}
		}
	}
	snap, seq = r.snapshotLocked()
	r.mu.Unlock()

	r.persist(ctx, snap, seq)

	entry := r.log.WithFields(logrus.Fields{
		"batch":   result.BatchID,
		"origin":  origin,
		"applied": len(result.Applied),
		"skipped": len(result.Skipped),
	})
	if err != nil {
		entry.WithError(err).Warn("Attendance saved locally, remote write failed")
	} else {
		entry.Info("Attendance saved")
	}

	result.Synced = err == nil
	result.Status = r.Status()
	return result, nil
}

// UpdateConfig replaces one configuration part locally and pushes it.
func (r *SyncReconciler) UpdateConfig(ctx context.Context, kind domain.ConfigKind, payload interface{}) (*domain.Connectivity, error) {
	if err := validateConfig(kind, payload); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.applyConfigLocked(payload)
	r.writeSeq++
	r.pendingConfig[kind] = r.writeSeq
	seq := r.writeSeq
	r.beginSaveLocked()
	snap, sseq := r.snapshotLocked()
	r.mu.Unlock()

	r.persist(ctx, snap, sseq)

	uctx, cancel := context.WithTimeout(ctx, r.TimeOut)
	err := r.remote.UpsertConfig(uctx, kind, payload)
	cancel()

	r.mu.Lock()
	r.endSaveLocked(err)
	if err == nil && r.pendingConfig[kind] == seq {
		delete(r.pendingConfig, kind)
	}
	snap, sseq = r.snapshotLocked()
	r.mu.Unlock()

	r.persist(ctx, snap, sseq)
	if err != nil {
		r.log.WithError(err).WithField("kind", kind).Warn("Configuration saved locally, remote write failed")
	}

	status := r.Status()
	return &status, nil
}

// Watch subscribes to remote change notifications and pulls on them. A
// single worker runs the pulls; notifications arriving while one runs are
// folded into one follow-up pull. Backends without push support are left to
// the poller.
func (r *SyncReconciler) Watch(ctx context.Context) (func(), error) {
	trigger := make(chan struct{}, 1)
	var stops []func()
	unsubscribe := func() {
		for _, stop := range stops {
			stop()
		}
	}

	for _, table := range []string{domain.TableAttendance, domain.TableTeachers, domain.TableTimetable, domain.TableSettings} {
		stop, err := r.remote.SubscribeToChanges(ctx, table, func(ev domain.ChangeEvent) {
			r.log.WithFields(logrus.Fields{"table": ev.Table, "op": ev.Operation}).Debug("Remote change received")
			select {
			case trigger <- struct{}{}:
			default:
			}
		})
		if errors.Is(err, domain.ErrSubscriptionUnsupported) {
			r.log.Info("Remote store has no change feed, relying on polling")
			unsubscribe()
			return func() {}, nil
		}
		if err != nil {
			unsubscribe()
			return nil, fmt.Errorf("could not subscribe to %s: %w", table, err)
		}
		stops = append(stops, stop)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-trigger:
				r.Pull(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		unsubscribe()
		once.Do(func() { close(done) })
	}, nil
}

// Config hands out a copy of the current configuration.
func (r *SyncReconciler) Config() *domain.ConfigSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := &domain.ConfigSnapshot{
		Version:   r.version,
		Teachers:  make([]domain.Teacher, 0, len(r.teachers)),
		Timetable: make([]domain.TimetableSlot, 0, len(r.timetable)),
		Settings:  r.settings.Clone(),
	}
	for _, t := range r.teachers {
		t.Subjects = append([]string(nil), t.Subjects...)
		cfg.Teachers = append(cfg.Teachers, t)
	}
	for _, s := range r.timetable {
		cfg.Timetable = append(cfg.Timetable, s.Clone())
	}
	return cfg
}

func (r *SyncReconciler) Records(filter domain.RecordFilter) []domain.AttendanceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.AttendanceRecord{}
	for _, rec := range r.records {
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	SortRecords(out)
	return out
}

func (r *SyncReconciler) Status() domain.Connectivity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

// flushPending re-pushes unconfirmed writes. A rejected batch is retried
// record by record so one bad row does not hold back the others. Nothing is
// pushed while a commit is saving; its own push covers those records.
func (r *SyncReconciler) flushPending(ctx context.Context) error {
	r.mu.Lock()
	if r.savesInFlight > 0 || (len(r.pending) == 0 && len(r.pendingConfig) == 0) {
		r.mu.Unlock()
		return nil
	}
	records := make([]domain.AttendanceRecord, 0, len(r.pending))
	seqs := make(map[string]uint64, len(r.pending))
	for id, s := range r.pending {
		records = append(records, r.records[id])
		seqs[id] = s
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	configs := make(map[domain.ConfigKind]interface{}, len(r.pendingConfig))
	configSeqs := make(map[domain.ConfigKind]uint64, len(r.pendingConfig))
	for kind, s := range r.pendingConfig {
		configs[kind] = r.configPayloadLocked(kind)
		configSeqs[kind] = s
	}
	r.beginSaveLocked()
	r.mu.Unlock()

	var errs []error
	confirmed := r.pushRecords(ctx, records, &errs)

	var confirmedKinds []domain.ConfigKind
	for _, kind := range []domain.ConfigKind{domain.ConfigTeachers, domain.ConfigTimetable, domain.ConfigSettings} {
		payload, ok := configs[kind]
		if !ok {
			continue
		}
		uctx, cancel := context.WithTimeout(ctx, r.TimeOut)
		err := r.remote.UpsertConfig(uctx, kind, payload)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		confirmedKinds = append(confirmedKinds, kind)
	}
	err := errors.Join(errs...)

	r.mu.Lock()
	r.settleLocked(err)
	for _, id := range confirmed {
		if r.pending[id] == seqs[id] {
			delete(r.pending, id)
		}
	}
	for _, kind := range confirmedKinds {
		if r.pendingConfig[kind] == configSeqs[kind] {
			delete(r.pendingConfig, kind)
		}
	}
	left := len(r.pending) + len(r.pendingConfig)
	snap, seq := r.snapshotLocked()
	r.mu.Unlock()

	r.persist(ctx, snap, seq)
	entry := r.log.WithFields(logrus.Fields{
		"records": len(confirmed),
		"configs": len(confirmedKinds),
		"pending": left,
	})
	if err != nil {
		entry.WithError(err).Warn("Some unconfirmed writes were not accepted")
	} else {
		entry.Info("Unconfirmed writes pushed")
	}
	return err
}

// pushRecords returns the ids the remote accepted. Per-record retries share
// one timeout.
func (r *SyncReconciler) pushRecords(ctx context.Context, records []domain.AttendanceRecord, errs *[]error) []string {
	if len(records) == 0 {
		return nil
	}
	uctx, cancel := context.WithTimeout(ctx, r.TimeOut)
	err := r.remote.UpsertAttendance(uctx, records)
	cancel()
	if err == nil {
		ids := make([]string, 0, len(records))
		for _, rec := range records {
			ids = append(ids, rec.ID)
		}
		return ids
	}
	if len(records) == 1 {
		*errs = append(*errs, fmt.Errorf("%s: %w", records[0].ID, err))
		return nil
	}

	var ids []string
	uctx, cancel = context.WithTimeout(ctx, r.TimeOut)
	defer cancel()
	for _, rec := range records {
		if err := r.remote.UpsertAttendance(uctx, []domain.AttendanceRecord{rec}); err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", rec.ID, err))
			continue
		}
		ids = append(ids, rec.ID)
	}
	return ids
}

func (r *SyncReconciler) applyRemoteLocked(data *domain.RemoteData) {
	local := make([]domain.AttendanceRecord, 0, len(r.records))
	for _, rec := range r.records {
		local = append(local, rec)
	}
	remote := make([]domain.AttendanceRecord, 0, len(data.Attendance))
	for _, rec := range data.Attendance {
		id := rec.ID
		if id == "" {
			id = domain.RecordID(rec.Date, rec.ClassID, rec.Period)
		}
		if _, held := r.pending[id]; held {
			continue
		}
		remote = append(remote, rec)
	}
	merged := Merge(local, remote)

	r.records = make(map[string]domain.AttendanceRecord, len(merged))
	for _, rec := range merged {
		r.records[rec.ID] = rec
	}

	changed := false
	if _, held := r.pendingConfig[domain.ConfigTeachers]; !held && len(data.Teachers) > 0 {
		r.teachers = data.Teachers
		changed = true
	}
	if _, held := r.pendingConfig[domain.ConfigTimetable]; !held && len(data.Timetable) > 0 {
		r.timetable = data.Timetable
		changed = true
	}
	if _, held := r.pendingConfig[domain.ConfigSettings]; !held && data.Settings != nil {
		r.settings = data.Settings.Clone()
		changed = true
	}
	if changed {
		r.version++
	}
}

func (r *SyncReconciler) applyConfigLocked(payload interface{}) {
	switch v := payload.(type) {
	case []domain.Teacher:
		r.teachers = append([]domain.Teacher(nil), v...)
	case []domain.TimetableSlot:
		r.timetable = make([]domain.TimetableSlot, 0, len(v))
		for _, s := range v {
			r.timetable = append(r.timetable, s.Clone())
		}
	case domain.Settings:
		r.settings = v.Clone()
	}
	r.version++
}

func (r *SyncReconciler) configPayloadLocked(kind domain.ConfigKind) interface{} {
	switch kind {
	case domain.ConfigTeachers:
		return append([]domain.Teacher(nil), r.teachers...)
	case domain.ConfigTimetable:
		out := make([]domain.TimetableSlot, 0, len(r.timetable))
		for _, s := range r.timetable {
			out = append(out, s.Clone())
		}
		return out
	default:
		return r.settings.Clone()
	}
}

func validateConfig(kind domain.ConfigKind, payload interface{}) error {
	switch kind {
	case domain.ConfigTeachers:
		teachers, ok := payload.([]domain.Teacher)
		if !ok {
			return fmt.Errorf("%w: teachers payload is %T", domain.ErrInvalidSettings, payload)
		}
		for _, t := range teachers {
			if err := t.Validate(); err != nil {
				return err
			}
		}
	case domain.ConfigTimetable:
		slots, ok := payload.([]domain.TimetableSlot)
		if !ok {
			return fmt.Errorf("%w: timetable payload is %T", domain.ErrInvalidSettings, payload)
		}
		for _, s := range slots {
			if err := s.Validate(); err != nil {
				return err
			}
		}
	case domain.ConfigSettings:
		settings, ok := payload.(domain.Settings)
		if !ok {
			return fmt.Errorf("%w: settings payload is %T", domain.ErrInvalidSettings, payload)
		}
		return settings.Validate()
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownConfigKind, kind)
	}
	return nil
}

// beginSaveLocked marks a write in flight and invalidates running pulls.
func (r *SyncReconciler) beginSaveLocked() {
	r.pullGen++
	r.savesInFlight++
	r.state = domain.StateSaving
}

// endSaveLocked closes a commit or configuration write and opens the grace
// window.
func (r *SyncReconciler) endSaveLocked(err error) {
	r.suppressUntil = r.now().Add(r.Grace)
	r.settleLocked(err)
}

func (r *SyncReconciler) settleLocked(err error) {
	r.savesInFlight--
	r.state = r.restingStateLocked()
	if err != nil {
		r.markOfflineLocked(err)
		return
	}
	r.markOnlineLocked()
}

func (r *SyncReconciler) suppressedLocked() bool {
	return r.savesInFlight > 0 || r.now().Before(r.suppressUntil)
}

func (r *SyncReconciler) restingStateLocked() domain.SyncState {
	if r.savesInFlight > 0 {
		return domain.StateSaving
	}
	return domain.StateIdle
}

func (r *SyncReconciler) markOnlineLocked() {
	now := r.now()
	r.online = true
	r.lastErr = ""
	r.lastSynced = &now
}

func (r *SyncReconciler) markOfflineLocked(err error) {
	r.online = false
	r.lastErr = err.Error()
}

func (r *SyncReconciler) statusLocked() domain.Connectivity {
	st := domain.Connectivity{
		State:     r.state,
		Online:    r.online,
		LastError: r.lastErr,
		Pending:   len(r.pending) + len(r.pendingConfig),
	}
	if r.lastSynced != nil {
		t := *r.lastSynced
		st.LastSyncedAt = &t
	}
	return st
}

func (r *SyncReconciler) report(outcome domain.PullOutcome) *domain.SyncReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &domain.SyncReport{
		Outcome: outcome,
		Records: len(r.records),
		Status:  r.statusLocked(),
	}
}

func (r *SyncReconciler) snapshotLocked() (*domain.Snapshot, uint64) {
	r.snapSeq++
	snap := &domain.Snapshot{
		Attendance: make([]domain.AttendanceRecord, 0, len(r.records)),
		Teachers:   append([]domain.Teacher(nil), r.teachers...),
		Timetable:  make([]domain.TimetableSlot, 0, len(r.timetable)),
		SavedAt:    r.now(),
	}
	for _, rec := range r.records {
		snap.Attendance = append(snap.Attendance, rec)
	}
	SortRecords(snap.Attendance)
	for _, s := range r.timetable {
		snap.Timetable = append(snap.Timetable, s.Clone())
	}
	settings := r.settings.Clone()
	snap.Settings = &settings
	for id := range r.pending {
		snap.Pending = append(snap.Pending, id)
	}
	sort.Strings(snap.Pending)
	for kind := range r.pendingConfig {
		snap.PendingConfig = append(snap.PendingConfig, kind)
	}
	sort.Slice(snap.PendingConfig, func(i, j int) bool { return snap.PendingConfig[i] < snap.PendingConfig[j] })
	return snap, r.snapSeq
}

// persist writes a snapshot unless a newer one has already been written.
func (r *SyncReconciler) persist(ctx context.Context, snap *domain.Snapshot, seq uint64) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	if seq <= r.savedSeq {
		return
	}
	if err := r.cache.Save(ctx, snap); err != nil {
		r.log.WithError(err).Error("Could not persist local snapshot")
		return
	}
	r.savedSeq = seq
}
