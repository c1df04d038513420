package httpx

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						slog.String("request_id", RequestIDFrom(r)),
						slog.Any("error", err),
						slog.String("stack", string(debug.Stack())),
					)

					var wroteHeader bool
					if rw, ok := w.(*responseWriter); ok {
						wroteHeader = rw.wroteHeader()
					}

					if !wroteHeader {
						InternalError(w, r)
					}
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
