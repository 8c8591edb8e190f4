package http

import "net/http"

// BodyLimitMiddleware caps request bodies at maxBytes. Reads past the limit fail,
// which handlers report as a malformed request. A non-positive limit disables the cap.
func BodyLimitMiddleware(next http.Handler, maxBytes int64) http.Handler {
	if maxBytes <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}

		next.ServeHTTP(w, r)
	})
}
