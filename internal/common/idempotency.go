package common

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ReplayedHeader marks a response served from the idempotency store.
const ReplayedHeader = "Idempotent-Replayed"

// maxStoredBody bounds the response copy kept for replays.
const maxStoredBody = 256 << 10

// Idem makes bulk imports safe to retry. The first request with a given
// Idempotency-Key runs; its successful response is stored and replayed to
// later requests with the same key and body. A key reused with a different
// body is refused, and a failed attempt frees the key. Without Redis the
// middleware is a pass-through.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

type idemRecord struct {
	Done        bool   `json:"done"`
	Fingerprint string `json:"fp"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"ct,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// idemKey scopes the client key to caller and route so two admins can use
// the same key independently.
func idemKey(r *http.Request, key string) string {
	caller, _ := UserID(r.Context())
	sum := sha256.Sum256([]byte(caller + "\x00" + r.Method + " " + r.URL.Path + "\x00" + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

func (i Idem) Middleware(next http.Handler) http.Handler {
	if i.R == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "could not read request body", nil)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		fp := hex.EncodeToString(sum[:])

		ctx := r.Context()
		key := idemKey(r, header)
		pending, _ := json.Marshal(idemRecord{Fingerprint: fp})
		claimed, err := i.R.SetNX(ctx, key, pending, i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store unavailable", nil)
			return
		}
		if !claimed {
			i.answerExisting(w, r, key, fp)
			return
		}

		cw := &captureWriter{ResponseWriter: w}
		defer func() {
			if p := recover(); p != nil {
				// a panicking attempt must not leave a replayable record behind
				i.release(key)
				panic(p)
			}
		}()
		next.ServeHTTP(cw, r)
		i.settle(key, fp, cw)
	})
}

func (i Idem) answerExisting(w http.ResponseWriter, r *http.Request, key, fp string) {
	raw, err := i.R.Get(r.Context(), key).Bytes()
	var rec idemRecord
	if err == nil {
		err = json.Unmarshal(raw, &rec)
	}
	switch {
	case errors.Is(err, redis.Nil):
		// the first attempt failed and released the key in between
		JSONError(w, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "retry the request", nil)
	case err != nil:
		JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store unavailable", nil)
	case rec.Fingerprint != fp:
		JSONError(w, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "idempotency key was used with a different request body", nil)
	case !rec.Done:
		JSONError(w, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "a request with this idempotency key is still running", nil)
	default:
		if rec.ContentType != "" {
			w.Header().Set("Content-Type", rec.ContentType)
		}
		w.Header().Set(ReplayedHeader, "true")
		w.WriteHeader(rec.Status)
		_, _ = w.Write(rec.Body)
	}
}

func (i Idem) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = i.R.Del(ctx, key).Err()
}

// settle stores a successful response for replay or frees the key so the
// client may retry after an error or an attempt that wrote nothing.
func (i Idem) settle(key, fp string, cw *captureWriter) {
	if cw.status == 0 || cw.status >= http.StatusBadRequest || cw.overflow {
		i.release(key)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done, err := json.Marshal(idemRecord{
		Done:        true,
		Fingerprint: fp,
		Status:      cw.status,
		ContentType: cw.Header().Get("Content-Type"),
		Body:        cw.body.Bytes(),
	})
	if err != nil {
		i.release(key)
		return
	}
	_ = i.R.Set(ctx, key, done, i.TTL).Err()
}

type captureWriter struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	overflow bool
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	if c.body.Len()+len(p) > maxStoredBody {
		c.overflow = true
	} else {
		c.body.Write(p)
	}
	return c.ResponseWriter.Write(p)
}
