package server

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/conforma/remitos-api/internal/config"
	"github.com/conforma/remitos-api/internal/db"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		Env:              "development",
		Port:             "0",
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
		RequestTimeout:   2 * time.Second,
		ShutdownTimeout:  5 * time.Second,
		MaxBodyBytes:     1 << 20,
		CorsOrigins:      []string{"http://localhost:3000"},
		MetricsAllowCIDR: "127.0.0.1/32",
		RateRPS:          1000,
		RateBurst:        1000,
		DB:               config.DB{Driver: db.DriverSQLServer, Host: "sql01", Name: "EstProd"},
	}
}

// mssqlArgs passes go-mssqldb's typed parameters through to the expectations.
type mssqlArgs struct{}

func (mssqlArgs) ConvertValue(v any) (driver.Value, error) {
	switch v.(type) {
	case mssql.VarChar, mssql.DateTime1:
		return v, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.ValueConverterOption(mssqlArgs{}))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := db.NewManager(func(context.Context) (*sql.DB, error) { return sqlDB, nil }, log, nil)
	return New(cfg, mgr, nil, log, nil), mock
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_UpdateFlow(t *testing.T) {
	s, mock := newTestServer(t, testConfig())
	h := s.router()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE UsuariosPortalTb")).
		WithArgs(
			sql.Named("nuevoEstado", mssql.VarChar("CONFORMADO")),
			sqlmock.AnyArg(),
			sql.Named("numeroRemito", mssql.VarChar("R-77")),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE UsuariosPortalTb")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := serve(h, http.MethodPost, "/api/update", `{"numeroRemito":"R-77"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1.0, out["rowsAffected"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(h, http.MethodPost, "/api/update", `{"numeroRemito":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodPost, "/api/update", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_ProbeAndHealth(t *testing.T) {
	s, mock := newTestServer(t, testConfig())
	h := s.router()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT @@VERSION")).
		WillReturnRows(sqlmock.NewRows([]string{"version", "fecha"}).AddRow("Microsoft SQL Server 2022", time.Now()))

	rec := serve(h, http.MethodGet, "/api/test", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"server":"sql01"`)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/nope", "").Code)
}

func TestRouter_ProbeTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 30 * time.Millisecond
	s, mock := newTestServer(t, cfg)

	mock.ExpectQuery("SELECT").WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"version", "fecha"}))

	start := time.Now()
	rec := serve(s.router(), http.MethodGet, "/api/test", "")
	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRouter_ReadyTimeoutKeepsPool(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	var opens atomic.Int32
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := db.NewManager(func(context.Context) (*sql.DB, error) {
		opens.Add(1)
		return sqlDB, nil
	}, log, nil)
	cfg := testConfig()
	cfg.RequestTimeout = 30 * time.Millisecond
	h := New(cfg, mgr, nil, log, nil).router()

	mock.ExpectPing()
	require.Equal(t, http.StatusNoContent, serve(h, http.MethodGet, "/readyz", "").Code)

	mock.ExpectPing().WillDelayFor(time.Second)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, http.MethodGet, "/readyz", "").Code)

	expired, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(expired)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	mock.ExpectPing()
	assert.Equal(t, http.StatusNoContent, serve(h, http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, int32(1), opens.Load(), "a slow ping must not force a reconnect")
}

func TestRouter_RateLimitedRequestsAreMeasured(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	s, _ := newTestServer(t, cfg)
	h := s.router()

	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/ping", "").Code)
	require.Equal(t, http.StatusTooManyRequests, serve(h, http.MethodGet, "/ping", "").Code)

	assert.Equal(t, uint64(1), requestsWithStatus(t, s, "200"))
	assert.Equal(t, uint64(1), requestsWithStatus(t, s, "429"))
}

func requestsWithStatus(t *testing.T, s *Server, status string) uint64 {
	t.Helper()
	mfs, err := s.mx.Reg().Gather()
	require.NoError(t, err)
	var n uint64
	for _, mf := range mfs {
		if mf.GetName() != "http_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "status" && lp.GetValue() == status {
					n += m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return n
}

func TestRouter_MetricsAllowList(t *testing.T) {
	s, _ := newTestServer(t, testConfig())
	h := s.router()

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/metrics", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_DocsHiddenInProduction(t *testing.T) {
	dev, _ := newTestServer(t, testConfig())
	assert.Equal(t, http.StatusOK, serve(dev.router(), http.MethodGet, "/openapi.yaml", "").Code)

	cfg := testConfig()
	cfg.Env = config.EnvProduction
	prod, _ := newTestServer(t, cfg)
	assert.Equal(t, http.StatusNotFound, serve(prod.router(), http.MethodGet, "/openapi.yaml", "").Code)
}

func TestServe_DrainsThenClosesPool(t *testing.T) {
	s, mock := newTestServer(t, testConfig())
	_, err := s.db.DB(context.Background())
	require.NoError(t, err)

	mock.ExpectQuery("SELECT").WillDelayFor(300 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"version", "fecha"}).AddRow("v", time.Now()))
	mock.ExpectClose()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resCh := make(chan int, 1)
	go func() {
		res, err := http.Get("http://" + addr + "/api/test")
		if err != nil {
			resCh <- -1
			return
		}
		res.Body.Close()
		resCh <- res.StatusCode
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	assert.Equal(t, http.StatusOK, <-resCh, "in-flight request completes")
	require.NoError(t, <-done)
	require.NoError(t, mock.ExpectationsWereMet(), "pool closed after drain")

	_, err = net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err, "listener is closed")
}
