package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with timeouts suited to webhook traffic.
// Write timeout leaves room for directory and messaging round trips made
// before the acknowledgment is written.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
