package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conforma/remitos-api/internal/db"
	"github.com/conforma/remitos-api/internal/metrics"
)

const DefaultEstado = "CONFORMADO"

type ServerInfo struct {
	Version string    `json:"version"`
	Fecha   time.Time `json:"fecha"`
}

// Pool is what the store needs from db.Manager.
type Pool interface {
	DB(ctx context.Context) (*sql.DB, error)
	Invalidate(*sql.DB)
}

type Remitos struct {
	Pool    Pool
	Dialect string
	Mx      *metrics.Registry
}

func (r *Remitos) observe(op string, start time.Time, err error) {
	if r.Mx != nil {
		r.Mx.ObserveDB(op, time.Since(start), err)
	}
}

// handle drops the pool after connection-class failures so the next
// request reconnects. The statement itself is never retried. Drivers report
// cancellation with their own errors; the ctx error is attached for callers.
func (r *Remitos) handle(ctx context.Context, sqlDB *sql.DB, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	if db.IsConnError(err) {
		r.Pool.Invalidate(sqlDB)
	}
	return err
}

// Probe runs a read-only round trip returning server version and clock.
func (r *Remitos) Probe(ctx context.Context) (info ServerInfo, err error) {
	start := time.Now()
	defer func() { r.observe("remitos_probe", start, err) }()

	st, err := statementsFor(r.Dialect)
	if err != nil {
		return ServerInfo{}, err
	}
	sqlDB, err := r.Pool.DB(ctx)
	if err != nil {
		return ServerInfo{}, err
	}
	err = sqlDB.QueryRowContext(ctx, st.probe).Scan(&info.Version, &info.Fecha)
	return info, r.handle(ctx, sqlDB, err)
}

// UpdateEstado sets the status of one remito and stamps it with at.
// It returns the number of rows the server reports as changed.
func (r *Remitos) UpdateEstado(ctx context.Context, numero, estado string, at time.Time) (n int64, err error) {
	start := time.Now()
	defer func() { r.observe("remitos_update", start, err) }()

	st, err := statementsFor(r.Dialect)
	if err != nil {
		return 0, err
	}
	sqlDB, err := r.Pool.DB(ctx)
	if err != nil {
		return 0, err
	}
	res, err := sqlDB.ExecContext(ctx, st.update, st.updateArgs(numero, estado, at)...)
	if err != nil {
		return 0, r.handle(ctx, sqlDB, err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
