package domain

import (
	"context"
	"time"
)

type SyncState string

const (
	StateIdle    SyncState = "IDLE"
	StatePulling SyncState = "PULLING"
	StateSaving  SyncState = "SAVING"
)

type PullOutcome string

const (
	PullMerged     PullOutcome = "MERGED"
	PullDiscarded  PullOutcome = "DISCARDED"
	PullSuppressed PullOutcome = "SUPPRESSED"
	PullFailed     PullOutcome = "FAILED"
)

type ChangeEvent struct {
	Table     string `json:"table"`
	Operation string `json:"operation"`
}

// RemoteStore is the capability every backend implements. Implementations are
// chosen once at startup.
type RemoteStore interface {
	FetchAll(ctx context.Context) (*RemoteData, error)
	UpsertAttendance(ctx context.Context, records []AttendanceRecord) error
	UpsertConfig(ctx context.Context, kind ConfigKind, payload interface{}) error
	// SubscribeToChanges returns ErrSubscriptionUnsupported when the backend
	// cannot push changes.
	SubscribeToChanges(ctx context.Context, table string, onChange func(ChangeEvent)) (unsubscribe func(), err error)
}

// LocalCache keeps the last merged snapshot under a fixed key across restarts.
type LocalCache interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

type Connectivity struct {
	State        SyncState  `json:"state"`
	Online       bool       `json:"online"`
	LastError    string     `json:"last_error,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	Pending      int        `json:"pending"`
}

type SyncReport struct {
	Outcome PullOutcome  `json:"outcome"`
	Records int          `json:"records"`
	Status  Connectivity `json:"status"`
}

type CommitResult struct {
	BatchID string       `json:"batch_id"`
	Applied []string     `json:"applied"`
	Skipped []string     `json:"skipped,omitempty"`
	Synced  bool         `json:"synced"`
	Status  Connectivity `json:"status"`
}
