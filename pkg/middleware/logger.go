package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	TraceID   string `json:"trace_id,omitempty"`
	Level     string `json:"level"`
	Service   string `json:"service,omitempty"`
	Message   string `json:"message"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
	Status    int    `json:"status,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ServiceName is stamped on every log line.
var ServiceName string

func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		LogRequest(GetTraceID(r), r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Flush keeps SSE streams working behind the logging wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func LogRequest(traceID, method, path string, statusCode int, duration time.Duration) {
	level := "INFO"
	if statusCode >= http.StatusInternalServerError {
		level = "ERROR"
	} else if statusCode >= http.StatusBadRequest {
		level = "WARN"
	}
	logJSON(LogEntry{
		TraceID:  traceID,
		Level:    level,
		Message:  "HTTP Request",
		Method:   method,
		Path:     path,
		Status:   statusCode,
		Duration: duration.String(),
	})
}

func LogError(traceID, message string, err error) {
	entry := LogEntry{
		TraceID: traceID,
		Level:   "ERROR",
		Message: message,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	logJSON(entry)
}

func LogWarn(traceID, message string, err error) {
	entry := LogEntry{
		TraceID: traceID,
		Level:   "WARN",
		Message: message,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	logJSON(entry)
}

func LogInfo(traceID, message string) {
	logJSON(LogEntry{
		TraceID: traceID,
		Level:   "INFO",
		Message: message,
	})
}

// Ctx variants pull the trace id out of a request context.

func LogInfoCtx(ctx context.Context, message string) {
	LogInfo(TraceIDFromContext(ctx), message)
}

func LogWarnCtx(ctx context.Context, message string, err error) {
	LogWarn(TraceIDFromContext(ctx), message, err)
}

func LogErrorCtx(ctx context.Context, message string, err error) {
	LogError(TraceIDFromContext(ctx), message, err)
}

func logJSON(entry LogEntry) {
	entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	entry.Service = ServiceName
	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		log.Printf("Error marshaling log entry: %v", err)
		return
	}
	log.Println(string(jsonBytes))
}
