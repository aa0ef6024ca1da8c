package handlers

import (
	"context"
	"encoding/json"
	stderrs "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	apperr "github.com/conforma/remitos-api/internal/errors"
	"github.com/conforma/remitos-api/internal/repos"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type RemitoStore interface {
	Probe(ctx context.Context) (repos.ServerInfo, error)
	UpdateEstado(ctx context.Context, numero, estado string, at time.Time) (int64, error)
}

type Remitos struct {
	Store    RemitoStore
	Timeout  time.Duration
	Server   string
	Database string
	Now      func() time.Time
}

func (h Remitos) Routes(r chi.Router) {
	r.Get("/test", h.Test)
	r.Post("/update", h.Update)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// remitoID accepts both "123" and 123 on the wire.
type remitoID string

func (id *remitoID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = remitoID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("numeroRemito: expected string or number")
	}
	*id = remitoID(n.String())
	return nil
}

// NuevoEstado falls back to DefaultEstado only when absent or null; an
// explicit empty string is written as sent.
type updateReq struct {
	NumeroRemito remitoID `json:"numeroRemito" validate:"required,max=50"`
	NuevoEstado  *string  `json:"nuevoEstado"  validate:"omitempty,max=50"`
}

func (h Remitos) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h Remitos) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.Timeout)
}

// Test performs the connectivity probe under the request deadline.
func (h Remitos) Test(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	info, err := h.Store.Probe(ctx)
	if err != nil {
		apperr.WriteEnvelope(w, r, apperr.FromDB(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Conexión exitosa",
		"data":     info,
		"server":   h.Server,
		"database": h.Database,
	})
}

// Update sets nuevoEstado on one remito. Zero affected rows is a 404; the
// statement is issued at most once.
func (h Remitos) Update(w http.ResponseWriter, r *http.Request) {
	var in updateReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !stderrs.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if stderrs.As(err, &tooBig) {
			apperr.Write(w, r, apperr.E(http.StatusRequestEntityTooLarge, "payload_too_large", "Payload demasiado grande", err, nil))
			return
		}
		apperr.Write(w, r, apperr.E(http.StatusBadRequest, "bad_request", "JSON inválido", err, nil))
		return
	}

	if err := validate.Struct(in); err != nil {
		apperr.Write(w, r, validationError(err))
		return
	}
	numero := string(in.NumeroRemito)
	estado := repos.DefaultEstado
	if in.NuevoEstado != nil {
		estado = *in.NuevoEstado
	}
	now := h.now()

	slog.InfoContext(r.Context(), "remito_update", slog.String("numeroRemito", numero))

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	n, err := h.Store.UpdateEstado(ctx, numero, estado, now)
	if err != nil {
		app := apperr.FromDB(err)
		if app.Status == http.StatusRequestTimeout {
			app = app.Msg("Timeout en actualización")
		}
		apperr.Write(w, r, app)
		return
	}
	if n == 0 {
		apperr.Write(w, r, apperr.NotFound.With("numeroRemito", numero))
		return
	}

	slog.InfoContext(r.Context(), "remito_updated", slog.String("numeroRemito", numero), slog.Int64("rows", n))
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      fmt.Sprintf("Remito %s actualizado exitosamente", numero),
		"rowsAffected": n,
		"numeroRemito": numero,
		"nuevoEstado":  estado,
		"timestamp":    now.UTC().Format(isoMillis),
	})
}

func validationError(err error) *apperr.AppError {
	var ve validator.ValidationErrors
	if !stderrs.As(err, &ve) {
		return apperr.Validation("Datos inválidos", nil)
	}
	fields := make(map[string]string, len(ve))
	msg := "Datos inválidos"
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
		if fe.Field() == "numeroRemito" && fe.Tag() == "required" {
			msg = "numeroRemito es requerido"
		}
	}
	return apperr.Validation(msg, fields)
}
