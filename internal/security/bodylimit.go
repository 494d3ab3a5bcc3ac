package security

import (
	"bytes"
	"io"
	"net/http"
	"slices"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

// BodyLimit buffers request bodies up to a size cap and answers 413 beyond
// it. Paths listed in ImportPaths (the bulk student and topic uploads) are
// allowed ImportMax instead of Max.
type BodyLimit struct {
	Max         int64
	ImportMax   int64
	ImportPaths []string
}

func (b BodyLimit) capFor(path string) int64 {
	if b.ImportMax > b.Max && slices.Contains(b.ImportPaths, path) {
		return b.ImportMax
	}
	return b.Max
}

func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := b.capFor(r.URL.Path)
		if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > limit {
			rejectSize(w, limit)
			return
		}

		var buf bytes.Buffer
		n, err := buf.ReadFrom(io.LimitReader(r.Body, limit+1))
		_ = r.Body.Close()
		switch {
		case err != nil:
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "could not read request body", nil)
			return
		case n > limit:
			rejectSize(w, limit)
			return
		}
		r.Body = io.NopCloser(&buf)
		r.ContentLength = n
		next.ServeHTTP(w, r)
	})
}

func rejectSize(w http.ResponseWriter, limit int64) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large",
		map[string]any{"maxBytes": limit})
}
