package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/doshiMiraj/MGNREGA-Dashboard/dashboard"
)

// Where a response's data came from.
const (
	SourceCache    = "cache"
	SourceDatabase = "database"
	SourceAPI      = "api"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool   `json:"success"`
	Source  string `json:"source,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeJSON encodes v before writing the status line so an unencodable
// value turns into a 500 instead of a truncated body.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("encode response", "status", status, "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"message":"Internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.logger.Debug("write response", "error", err)
	}
}

func (h *Handler) respond(w http.ResponseWriter, source string, data any) {
	h.writeJSON(w, http.StatusOK, Response{Success: true, Source: source, Data: data})
}

func respondList[T any](h *Handler, w http.ResponseWriter, source string, items []T) {
	n := len(items)
	h.writeJSON(w, http.StatusOK, Response{Success: true, Source: source, Data: items, Count: &n})
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	h.writeJSON(w, http.StatusBadRequest, Response{Message: msg})
}

// fail writes err as a JSON error. Not-found and invalid-input errors keep
// their own message; anything else is logged and reported as msg, with the
// cause attached only in development.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var derr *dashboard.Error
	if errors.As(err, &derr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(derr, dashboard.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(derr, dashboard.ErrInvalidInput):
			status = http.StatusBadRequest
		}
		h.writeJSON(w, status, Response{Message: derr.Message})
		return
	}

	var verr *validationError
	if errors.As(err, &verr) {
		h.badRequest(w, verr.msg)
		return
	}

	h.logger.Error(msg, "path", r.URL.Path, "error", err)
	resp := Response{Message: msg}
	if h.opts.Environment == "development" {
		resp.Error = err.Error()
	}
	h.writeJSON(w, http.StatusInternalServerError, resp)
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusNotFound, Response{Message: "Route not found"})
}
