package errors

import (
	"encoding/json"
	stderrs "errors"
	"log/slog"
	"net/http"
)

type AppError struct {
	Status  int
	Code    string
	Message string
	Details string
	Fields  map[string]string
	Extra   map[string]any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// With returns a copy carrying an extra top-level body field.
func (e *AppError) With(key string, v any) *AppError {
	cp := *e
	cp.Extra = make(map[string]any, len(e.Extra)+1)
	for k, x := range e.Extra {
		cp.Extra[k] = x
	}
	cp.Extra[key] = v
	return &cp
}

// Msg returns a copy with a different client-facing message.
func (e *AppError) Msg(m string) *AppError {
	cp := *e
	cp.Message = m
	return &cp
}

func E(status int, code, msg string, cause error, fields map[string]string) *AppError {
	return &AppError{Status: status, Code: code, Message: msg, Fields: fields, Err: cause}
}

const (
	CodeTimeout    = "ETIMEOUT"
	CodeConnection = "ECONN"
	CodeUnknown    = "UNKNOWN"
)

var (
	NotFound   = &AppError{Status: http.StatusNotFound, Message: "No se encontró el registro"}
	BadRequest = &AppError{Status: http.StatusBadRequest, Code: "bad_request", Message: "JSON inválido"}
	Timeout    = &AppError{Status: http.StatusRequestTimeout, Code: CodeTimeout, Message: "Timeout de conexión"}
	Validation = func(msg string, fields map[string]string) *AppError {
		return &AppError{Status: http.StatusBadRequest, Code: "validation_error", Message: msg, Fields: fields}
	}
)

func as(err error) *AppError {
	var app *AppError
	if !stderrs.As(err, &app) {
		app = &AppError{Status: http.StatusInternalServerError, Code: CodeUnknown, Message: "Error interno del servidor", Err: err}
	}
	return app
}

// Write renders err as {error, details, code, fields, rid, ...extra}.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	app := as(err)
	rid := r.Header.Get("X-Request-ID")

	body := map[string]any{"error": app.Message, "rid": rid}
	if app.Code != "" {
		body["code"] = app.Code
	}
	if app.Details != "" {
		body["details"] = app.Details
	}
	if len(app.Fields) > 0 {
		body["fields"] = app.Fields
	}
	for k, v := range app.Extra {
		body[k] = v
	}
	writeJSON(w, app.Status, body)
	logErr(r, app, rid)
}

// WriteEnvelope renders the probe style {success:false, error, type}. The
// driver message is preferred over the generic one when present.
func WriteEnvelope(w http.ResponseWriter, r *http.Request, err error) {
	app := as(err)
	rid := r.Header.Get("X-Request-ID")

	msg := app.Message
	if app.Details != "" {
		msg = app.Details
	}
	code := app.Code
	if code == "" {
		code = CodeUnknown
	}
	writeJSON(w, app.Status, map[string]any{
		"success": false, "error": msg, "type": code, "rid": rid,
	})
	logErr(r, app, rid)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func logErr(r *http.Request, app *AppError, rid string) {
	lvl := slog.LevelError
	if app.Status < 500 {
		lvl = slog.LevelWarn
	}
	cause := ""
	if app.Err != nil {
		cause = app.Err.Error()
	}
	slog.Default().LogAttrs(r.Context(), lvl, "api_error",
		slog.Int("status", app.Status),
		slog.String("code", app.Code),
		slog.String("rid", rid),
		slog.String("path", r.URL.Path),
		slog.String("cause", cause),
	)
}
