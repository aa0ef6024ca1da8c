package errors

import (
	"context"
	stderrs "errors"
	"net/http"
	"strconv"

	"github.com/conforma/remitos-api/internal/db"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
)

// DriverCode extracts the vendor error code, or "" when err carries none.
func DriverCode(err error) string {
	var ms mssql.Error
	if stderrs.As(err, &ms) {
		return strconv.Itoa(int(ms.Number))
	}
	var my *mysql.MySQLError
	if stderrs.As(err, &my) {
		return strconv.Itoa(int(my.Number))
	}
	var pg *pgconn.PgError
	if stderrs.As(err, &pg) {
		return pg.Code
	}
	return ""
}

// FromDB maps a store error to an AppError:
//   - deadline/cancel → 408 Timeout
//   - failed pool creation → 500 with driver code or ECONN
//   - anything else → 500 with driver code or UNKNOWN
//
// The driver message is passed through in Details.
func FromDB(err error) *AppError {
	if err == nil {
		return nil
	}
	var app *AppError
	if stderrs.As(err, &app) {
		return app
	}
	if stderrs.Is(err, context.DeadlineExceeded) || stderrs.Is(err, context.Canceled) {
		return &AppError{Status: http.StatusRequestTimeout, Code: CodeTimeout, Message: Timeout.Message, Err: err}
	}

	code := DriverCode(err)
	if code == "" {
		code = CodeUnknown
		var ce *db.ConnectError
		if stderrs.As(err, &ce) || stderrs.Is(err, db.ErrClosed) {
			code = CodeConnection
		}
	}
	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    code,
		Message: "Error interno del servidor",
		Details: err.Error(),
		Err:     err,
	}
}
