package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/conforma/remitos-api/internal/metrics"
	"golang.org/x/sync/singleflight"
)

var ErrClosed = errors.New("db: manager closed")

// ConnectError wraps a failed pool creation; the driver error stays reachable
// through errors.As so its code can be reported.
type ConnectError struct{ Err error }

func (e *ConnectError) Error() string { return "db connect: " + e.Err.Error() }
func (e *ConnectError) Unwrap() error { return e.Err }

// IsConnError reports whether err means the pool itself is unusable.
// Context expiry is the caller's deadline, not a pool failure, even though
// context.DeadlineExceeded satisfies net.Error.
func IsConnError(err error) bool {
	if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var ce *ConnectError
	if errors.As(err, &ce) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var oe *net.OpError
	return errors.As(err, &oe) || errors.Is(err, net.ErrClosed)
}

// Manager owns the process-wide pool. The handle is created on first use;
// concurrent callers share one creation attempt and its outcome.
type Manager struct {
	open Opener
	log  *slog.Logger
	mx   *metrics.Registry

	sf     singleflight.Group
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

func NewManager(open Opener, log *slog.Logger, mx *metrics.Registry) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{open: open, log: log, mx: mx}
}

func (m *Manager) current() (*sql.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.db, nil
}

// DB returns the live pool, creating it if needed. The creation itself is
// not bound to ctx, but a caller stops waiting when its ctx ends.
func (m *Manager) DB(ctx context.Context) (*sql.DB, error) {
	if db, err := m.current(); db != nil || err != nil {
		return db, err
	}

	ch := m.sf.DoChan("connect", func() (any, error) {
		return m.connect(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*sql.DB), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) connect(ctx context.Context) (*sql.DB, error) {
	// A previous flight may have finished between current() and DoChan.
	if db, err := m.current(); db != nil || err != nil {
		return db, err
	}

	m.log.Info("db_connecting")
	start := time.Now()
	db, err := m.open(ctx)
	if m.mx != nil {
		m.mx.ObserveConnect(err)
	}
	if err != nil {
		m.log.Error("db_connect_failed", slog.String("err", err.Error()), slog.Duration("dur", time.Since(start)))
		var ce *ConnectError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &ConnectError{Err: err}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = db.Close()
		return nil, ErrClosed
	}
	m.db = db
	m.mu.Unlock()

	m.log.Info("db_connected", slog.Duration("dur", time.Since(start)))
	return db, nil
}

// Invalidate drops db if it is still the current handle, so the next DB call
// reconnects. The old pool is closed in the background because Close waits
// for queries still running on it.
func (m *Manager) Invalidate(db *sql.DB) {
	if db == nil {
		return
	}
	m.mu.Lock()
	if m.db != db {
		m.mu.Unlock()
		return
	}
	m.db = nil
	m.mu.Unlock()

	m.log.Warn("db_pool_invalidated")
	go func() {
		if err := db.Close(); err != nil {
			m.log.Warn("db_pool_close", slog.String("err", err.Error()))
		}
	}()
}

// Ping checks the pool round trip; connection-class failures invalidate it.
// A ping cut short by ctx leaves the pool alone.
func (m *Manager) Ping(ctx context.Context) error {
	db, err := m.DB(ctx)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		if ctx.Err() == nil && IsConnError(err) {
			m.Invalidate(db)
		}
		return err
	}
	return nil
}

// Close releases the pool. Later DB calls return ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	db := m.db
	m.db = nil
	m.closed = true
	m.mu.Unlock()

	if db == nil {
		return nil
	}
	return db.Close()
}
