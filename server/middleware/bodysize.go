package middleware

import (
	"net/http"

	apperrors "github.com/kbukum/diarscribe/errors"
	"github.com/kbukum/diarscribe/util"
)

const (
	defaultMaxBodySize  = 2 << 30
	defaultMaxBodyLabel = "2GB"
)

// BodySizeLimit caps the request body at maxSize (e.g. "2GB", "512MB").
// Requests that declare a larger Content-Length are refused with 413; reading
// past the limit otherwise fails with *http.MaxBytesError.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	label := util.Coalesce(maxSize, defaultMaxBodyLabel)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				writeError(w, apperrors.PayloadTooLarge(label))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
