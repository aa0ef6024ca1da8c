package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/conforma/remitos-api/internal/db"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	return m
}

func TestWrite_JSONShape(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/update", nil)
	req.Header.Set("X-Request-ID", "rid-1")

	Write(rr, req, NotFound.With("numeroRemito", "R-1"))

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	body := decode(t, rr)
	assert.Equal(t, "No se encontró el registro", body["error"])
	assert.Equal(t, "R-1", body["numeroRemito"])
	assert.Equal(t, "rid-1", body["rid"])
	assert.NotContains(t, body, "details")
}

func TestWrite_UnknownErrorIs500(t *testing.T) {
	rr := httptest.NewRecorder()
	Write(rr, httptest.NewRequest("GET", "/x", nil), fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, CodeUnknown, decode(t, rr)["code"])
}

func TestWriteEnvelope_PrefersDriverMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteEnvelope(rr, httptest.NewRequest("GET", "/api/test", nil),
		FromDB(mssql.Error{Number: 18456, Message: "Login failed for user 'x'."}))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "18456", body["type"])
	assert.Contains(t, body["error"], "Login failed")
}

func TestWith_DoesNotMutateSentinel(t *testing.T) {
	_ = NotFound.With("numeroRemito", "A")
	assert.Nil(t, NotFound.Extra)
	assert.Equal(t, "x", Timeout.Msg("x").Message)
	assert.Equal(t, "Timeout de conexión", Timeout.Message)
}

func TestFromDB(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"deadline", fmt.Errorf("exec: %w", context.DeadlineExceeded), 408, CodeTimeout},
		{"canceled", context.Canceled, 408, CodeTimeout},
		{"connect", &db.ConnectError{Err: fmt.Errorf("dial tcp: refused")}, 500, CodeConnection},
		{"connect with vendor code", &db.ConnectError{Err: mssql.Error{Number: 18456}}, 500, "18456"},
		{"closed", db.ErrClosed, 500, CodeConnection},
		{"mysql", &mysql.MySQLError{Number: 1146, Message: "no table"}, 500, "1146"},
		{"postgres", &pgconn.PgError{Code: "42P01"}, 500, "42P01"},
		{"other", fmt.Errorf("weird"), 500, CodeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := FromDB(tc.err)
			assert.Equal(t, tc.status, app.Status)
			assert.Equal(t, tc.code, app.Code)
			assert.ErrorIs(t, app, tc.err)
		})
	}
	assert.Nil(t, FromDB(nil))
}
