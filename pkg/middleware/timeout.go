package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// deadlineWriter guards the underlying ResponseWriter so that a handler still
// running after the deadline cannot write into the 503 we already sent.
type deadlineWriter struct {
	http.ResponseWriter
	mu       sync.Mutex
	deadline bool
	written  bool
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.deadline || dw.written {
		return
	}

	dw.written = true
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.deadline {
		return 0, http.ErrHandlerTimeout
	}

	dw.written = true
	return dw.ResponseWriter.Write(b)
}

// expire cuts the handler off and reports whether it had already written a
// response header or body.
func (dw *deadlineWriter) expire() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	dw.deadline = true
	alreadyWritten := dw.written
	dw.written = true
	return alreadyWritten
}

// RequestTimeout cancels the request context after the given duration and
// answers 503 if the handler has not responded by then.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}

			done := make(chan struct{})
			go func() {
				next.ServeHTTP(dw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if !dw.expire() {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusServiceUnavailable)
					_, _ = w.Write([]byte(`{"error":"Request timeout"}`))
				}
			}
		})
	}
}
