// Package httpserver builds the process HTTP server with its timeouts.
package httpserver

import (
	"net/http"
	"time"
)

// Slow-loris protection on headers; donation payloads are small so reads
// and writes get tight ceilings too.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	// Above the 30s request timeout so the middleware answers first.
	writeTimeout = 35 * time.Second
	idleTimeout  = 60 * time.Second
)

// New wraps the router in an http.Server configured for this service.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
