package obs

import (
	"context"
	"net/http"
	"sync"
)

// Notes collects what inner handlers learn about a request (the caller,
// whether it became a long-lived stream) so the outer logging, metrics and
// tracing layers can report it once the handler returns.
type Notes struct {
	mu        sync.Mutex
	userID    string
	roles     []string
	streaming bool
}

type notesKey struct{}

// Track attaches an empty Notes record to every request. It must wrap the
// logging, metrics and tracing middleware.
func Track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if NotesFrom(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), notesKey{}, &Notes{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NotesFrom returns the request's notes, or nil outside Track.
func NotesFrom(ctx context.Context) *Notes {
	if ctx == nil {
		return nil
	}
	n, _ := ctx.Value(notesKey{}).(*Notes)
	return n
}

// NoteCaller records the authenticated caller.
func NoteCaller(ctx context.Context, userID string, roles []string) {
	n := NotesFrom(ctx)
	if n == nil {
		return
	}
	n.mu.Lock()
	n.userID = userID
	n.roles = append([]string(nil), roles...)
	n.mu.Unlock()
}

// NoteStreaming marks the request as an open event stream. Streams are kept
// out of the latency histogram since their duration is the session length.
func NoteStreaming(ctx context.Context) {
	if n := NotesFrom(ctx); n != nil {
		n.mu.Lock()
		n.streaming = true
		n.mu.Unlock()
	}
}

// Caller returns the recorded user id and roles.
func (n *Notes) Caller() (string, []string) {
	if n == nil {
		return "", nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.userID, n.roles
}

// Streaming reports whether NoteStreaming was called.
func (n *Notes) Streaming() bool {
	if n == nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.streaming
}
