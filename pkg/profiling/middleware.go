package profiling

import (
	"net/http"
	"runtime"
	"strconv"
	"time"
)

// Middleware adds per-request profiling headers when profiling is enabled
type Middleware struct {
	enableProfiling bool
}

// NewMiddleware creates a new profiling middleware
func NewMiddleware(enableProfiling bool) *Middleware {
	return &Middleware{enableProfiling: enableProfiling}
}

// ProfiledHandler wraps an HTTP handler with profiling headers. Headers must
// be set before the body is written, so the wrapped handler's first write
// triggers them.
func (m *Middleware) ProfiledHandler(name string, handler http.Handler) http.Handler {
	if !m.enableProfiling {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)

		wrapped := &responseWriter{
			ResponseWriter: w,
			name:           name,
			start:          time.Now(),
			startAlloc:     ms.Alloc,
			startRoutines:  runtime.NumGoroutine(),
		}
		handler.ServeHTTP(wrapped, r)
		wrapped.stamp()
	})
}

type responseWriter struct {
	http.ResponseWriter
	name          string
	start         time.Time
	startAlloc    uint64
	startRoutines int
	stamped       bool
}

func (rw *responseWriter) stamp() {
	if rw.stamped {
		return
	}
	rw.stamped = true

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	h := rw.Header()
	h.Set("X-Profiling-Enabled", "true")
	h.Set("X-Handler-Name", rw.name)
	h.Set("X-Duration-Ms", strconv.FormatFloat(float64(time.Since(rw.start).Nanoseconds())/1e6, 'f', 3, 64))
	h.Set("X-Memory-Delta-Bytes", strconv.FormatInt(int64(ms.Alloc)-int64(rw.startAlloc), 10))
	h.Set("X-Goroutine-Delta", strconv.Itoa(runtime.NumGoroutine()-rw.startRoutines))
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.stamp()
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.stamp()
	return rw.ResponseWriter.Write(b)
}
