package middleware

import (
	"net/http"
)

// MaxBodyBytes caps uploads at limit bytes. A request that declares a larger body is
// answered by tooLarge without reading it; an undeclared one is cut off by
// http.MaxBytesReader and the handler sees *http.MaxBytesError. A nil tooLarge writes a
// plain 413. A limit of zero or less disables the cap.
func MaxBodyBytes(limit int64, tooLarge http.Handler) func(http.Handler) http.Handler {
	if tooLarge == nil {
		tooLarge = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
		})
	}
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				tooLarge.ServeHTTP(w, r)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
