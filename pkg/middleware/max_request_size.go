package middleware

import "net/http"

// MaxRequestSize caps the request body at maxBytes. Reads past the limit fail
// inside the handler's decoder, which surfaces as a normal bad-request error.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
