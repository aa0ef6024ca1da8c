package handlers

import (
	"context"
	"net/http"
	"time"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	DB      Pinger
	Started time.Time
	Timeout time.Duration
	Now     func() time.Time
}

func (h Health) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Root reports process liveness and uptime; it never touches the database.
func (h Health) Root(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"message":   "API de Conformación de Remitos funcionando",
		"timestamp": now.UTC().Format(isoMillis),
		"uptime":    now.Sub(h.Started).Seconds(),
	})
}

func (h Health) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pong": true, "timestamp": h.now().UnixMilli()})
}

func (h Health) Live(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }

func (h Health) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	if err := h.DB.Ping(ctx); err != nil {
		http.Error(w, "db down", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
