package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rs/cors"
)

// CORS allows the configured origins. "*" allows any origin; with debug
// set, decisions are written to logger.
func CORS(origins []string, debug bool, logger *slog.Logger) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Origin",
			"X-Admin-Token",
			RequestIDHeader,
		},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition", RequestIDHeader, "Retry-After"},
		AllowCredentials: !allowsAny(origins),
		MaxAge:           300,
	})
	if debug && logger != nil {
		c.Log = corsLogger{logger.With("component", "cors")}
	}
	return c.Handler
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

type corsLogger struct{ l *slog.Logger }

func (c corsLogger) Printf(format string, v ...any) {
	c.l.Debug("cors", "detail", fmt.Sprintf(format, v...))
}
