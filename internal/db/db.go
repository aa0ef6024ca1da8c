package db

import (
	"context"
	"database/sql"

	"github.com/conforma/remitos-api/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
)

// Opener creates a ready (pinged) pool. Manager calls it at most once at a time.
type Opener func(ctx context.Context) (*sql.DB, error)

// Open returns the production Opener for c: pool limits from config, and a
// ping bounded by the connect timeout so a dead server fails fast.
func Open(c config.DB) (Opener, error) {
	driver, err := sqlDriverName(c.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(c)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (*sql.DB, error) {
		sqlDB, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
		sqlDB.SetMaxIdleConns(c.MaxIdleConns)
		sqlDB.SetConnMaxIdleTime(c.ConnMaxIdleTime)

		if c.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.ConnectTimeout)
			defer cancel()
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, err
		}
		return sqlDB, nil
	}, nil
}
