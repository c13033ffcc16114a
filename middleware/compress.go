package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// Compress gzips or deflates responses for clients that accept it.
func Compress(next http.Handler) http.Handler {
	return handlers.CompressHandler(next)
}
