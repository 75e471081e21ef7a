package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"siapguru/domain"
)

const channelSuffix = "_changes"

var watchedTables = []string{domain.TableAttendance, domain.TableTeachers, domain.TableTimetable, domain.TableSettings}

// ChangeChannel is the NOTIFY channel the table triggers publish on.
func ChangeChannel(table string) string {
	return table + channelSuffix
}

// ChangeListener holds one pooled connection in LISTEN mode and fans
// notifications out to subscribers. The connection is re-established after
// failures until the context passed to the first Subscribe is done.
type ChangeListener struct {
	pool    *pgxpool.Pool
	log     *logrus.Logger
	backoff time.Duration

	mu       sync.Mutex
	handlers map[string]map[int]func(domain.ChangeEvent)
	nextID   int
	started  bool
}

func NewChangeListener(pool *pgxpool.Pool, log *logrus.Logger) *ChangeListener {
	return &ChangeListener{
		pool:     pool,
		log:      log,
		backoff:  5 * time.Second,
		handlers: make(map[string]map[int]func(domain.ChangeEvent)),
	}
}

func (l *ChangeListener) Subscribe(ctx context.Context, table string, onChange func(domain.ChangeEvent)) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handlers[table] == nil {
		l.handlers[table] = make(map[int]func(domain.ChangeEvent))
	}
	l.nextID++
	id := l.nextID
	l.handlers[table][id] = onChange

	if !l.started {
		l.started = true
		go l.run(ctx)
	}

	return func() {
		l.mu.Lock()
		delete(l.handlers[table], id)
		l.mu.Unlock()
	}, nil
}

func (l *ChangeListener) run(ctx context.Context) {
	for ctx.Err() == nil {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.log.WithError(err).Warn("Change listener disconnected, reconnecting")
		select {
		case <-time.After(l.backoff):
		case <-ctx.Done():
			return
		}
	}
}

func (l *ChangeListener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	for _, table := range watchedTables {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel(table)}.Sanitize()); err != nil {
			return err
		}
	}
	l.log.Info("Listening for remote changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(n.Channel, n.Payload)
	}
}

func (l *ChangeListener) dispatch(channel, payload string) {
	table := strings.TrimSuffix(channel, channelSuffix)
	ev := domain.ChangeEvent{Table: table, Operation: payload}

	l.mu.Lock()
	handlers := make([]func(domain.ChangeEvent), 0, len(l.handlers[table]))
	for _, h := range l.handlers[table] {
		handlers = append(handlers, h)
	}
	l.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
