package infra

import (
	"context"
	"net/http"
	"time"
)

// HTTPServer wraps http.Server to provide graceful startup and shutdown helpers.
type HTTPServer struct {
	server *http.Server
}

// writeTimeoutHeadroom covers the description, upload and optimize stages on
// top of the poll budget when deriving the write-timeout floor.
const writeTimeoutHeadroom = 60 * time.Second

// NewHTTPServer creates a configured HTTP server instance. The write timeout
// has to cover the synthesis poll loop's worst case; a configured value below
// that budget would cut responses off mid-generation, so it is raised to the
// floor derived from the poll settings.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	writeTimeout := cfg.HTTPWriteTimeout
	if floor := pollBudget(cfg) + writeTimeoutHeadroom; writeTimeout < floor {
		writeTimeout = floor
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	return &HTTPServer{server: srv}
}

// pollBudget is the synthesis poll loop's worst-case wall-clock time.
func pollBudget(cfg *Config) time.Duration {
	return cfg.PollInterval * time.Duration(cfg.MaxPollAttempts)
}

// Start runs the HTTP server in the current goroutine.
func (s *HTTPServer) Start() error {
	if s.server == nil {
		return nil
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
