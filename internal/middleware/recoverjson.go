package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	apperr "github.com/conforma/remitos-api/internal/errors"
)

func RecoverJSON(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic", slog.Any("err", rec), slog.String("stack", string(debug.Stack())))
					apperr.Write(w, r, apperr.E(http.StatusInternalServerError, "panic", "Error interno del servidor", fmt.Errorf("%v", rec), nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
