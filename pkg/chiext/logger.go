package chiext

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger logs one line per request. Successful requests are logged at debug level,
// client errors at warn and server errors at error.
func Logger() func(next http.Handler) http.Handler {
	return middleware.RequestLogger(&LogFormatter{Logger: slog.Default()})
}

type LogFormatter struct {
	Logger *slog.Logger
}

func (f *LogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	attrs := []slog.Attr{
		slog.String("package", "http"),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("from", r.RemoteAddr),
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		attrs = append(attrs, slog.String("request", reqID))
	}

	return &logEntry{
		logger: f.Logger,
		ctx:    r.Context(),
		msg:    r.Method + " " + r.RequestURI,
		attrs:  attrs,
	}
}

type logEntry struct {
	logger *slog.Logger
	ctx    context.Context
	msg    string
	attrs  []slog.Attr
}

func (e *logEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra any) {
	level := slog.LevelDebug
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	e.logger.LogAttrs(context.WithoutCancel(e.ctx), level, e.msg, append(e.attrs,
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.Duration("elapsed", elapsed),
	)...)
}

func (e *logEntry) Panic(v any, stack []byte) {
	e.logger.LogAttrs(context.WithoutCancel(e.ctx), slog.LevelError, "Handler panicked", append(e.attrs,
		slog.Any("panic", v),
		slog.String("stack", string(stack)),
	)...)
}
