package httpx

import (
	"log/slog"
	"net/http"
	"time"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode    int
	bytesWritten  int64
	headerWritten bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.headerWritten {
		rw.statusCode = code
		rw.headerWritten = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.headerWritten {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) wroteHeader() bool {
	return rw.headerWritten
}

// RequestObserver receives one call per completed request. May be nil.
type RequestObserver func(method string, status int, d time.Duration)

// AccessLogMiddleware logs every request. User ID is read from the context the
// auth middleware decorates, so it is only present when the auth layer ran
// before the response was written; the holder below carries it back out.
func AccessLogMiddleware(logger *slog.Logger, observe RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			holder := &userHolder{}
			r = r.WithContext(contextWithUserHolder(r.Context(), holder))

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			if observe != nil {
				observe(r.Method, rw.statusCode, duration)
			}

			level := slog.LevelInfo
			if rw.statusCode >= 500 {
				level = slog.LevelError
			} else if rw.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "access",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.statusCode),
				slog.Int64("bytes", rw.bytesWritten),
				slog.Int64("duration_ms", duration.Milliseconds()),
				slog.String("request_id", RequestIDFrom(r)),
				slog.String("user_id", holder.userID),
			)
		})
	}
}
