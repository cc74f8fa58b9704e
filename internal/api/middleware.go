package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/smazurov/pomodorox/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// requestID reuses a client-supplied ID or mints one.
func requestID(incoming string) string {
	if incoming != "" && len(incoming) <= 64 {
		return incoming
	}
	return uuid.NewString()
}

// HTTPLoggingMiddleware logs huma requests at a level chosen by status code.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	id := requestID(ctx.Header(requestIDHeader))
	ctx.SetHeader(requestIDHeader, id)
	next(ctx)
	logRequest(ctx.Context(), requestInfo{
		id:         id,
		method:     ctx.Method(),
		path:       ctx.URL().Path,
		query:      ctx.URL().RawQuery,
		userAgent:  ctx.Header("User-Agent"),
		remoteAddr: ctx.RemoteAddr(),
		status:     ctx.Status(),
		duration:   time.Since(start),
	})
}

// logRequests is the plain net/http counterpart for the legacy routes.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := requestID(r.Header.Get(requestIDHeader))
		w.Header().Set(requestIDHeader, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logRequest(r.Context(), requestInfo{
			id:         id,
			method:     r.Method,
			path:       r.URL.Path,
			query:      r.URL.RawQuery,
			userAgent:  r.UserAgent(),
			remoteAddr: r.RemoteAddr,
			status:     rec.status,
			duration:   time.Since(start),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

type requestInfo struct {
	id         string
	method     string
	path       string
	query      string
	userAgent  string
	remoteAddr string
	status     int
	duration   time.Duration
}

func logRequest(ctx context.Context, info requestInfo) {
	logger := logging.GetLogger("http")

	attrs := []slog.Attr{
		slog.String("request_id", info.id),
		slog.String("method", info.method),
		slog.String("path", info.path),
		slog.String("remote_addr", info.remoteAddr),
	}
	if info.query != "" {
		attrs = append(attrs, slog.String("query", info.query))
	}
	if info.userAgent != "" {
		attrs = append(attrs, slog.String("user_agent", info.userAgent))
	}
	attrs = append(attrs,
		slog.Int("status", info.status),
		slog.Duration("duration", info.duration),
	)

	level := slog.LevelInfo
	switch {
	case info.method == http.MethodOptions:
		level = slog.LevelDebug
	case info.status >= 500:
		level = slog.LevelError
	case info.status >= 400:
		level = slog.LevelWarn
	}
	logger.LogAttrs(ctx, level, "HTTP request completed", attrs...)
}
