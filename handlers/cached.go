package handlers

import (
	"context"
	"net/http"
	"time"
)

// cached serves a response from the cache, or loads it, stores it for ttl
// and serves it from the database.
func cached[T any](h *Handler, w http.ResponseWriter, r *http.Request, typ string, params map[string]string,
	ttl time.Duration, failMsg string, load func(context.Context) (T, error)) {
	ctx := r.Context()

	var hit T
	if h.cache.Get(ctx, typ, params, &hit) {
		h.respond(w, SourceCache, hit)
		return
	}

	v, err := load(ctx)
	if err != nil {
		h.fail(w, r, err, failMsg)
		return
	}
	h.cache.Set(ctx, typ, params, v, ttl)
	h.respond(w, SourceDatabase, v)
}
