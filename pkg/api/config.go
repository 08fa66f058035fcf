package api

import (
	"fmt"
	"net/http"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

// Config holds configuration for the calendar API handler
type Config struct {
	// Manager serves the calendar views (required)
	Manager *renewal.Manager

	// GetUserID extracts the owner ID from the HTTP request (required)
	GetUserID func(*http.Request) string

	// OnError handles errors (auth, bad input, internal)
	// If nil, a JSON error body is written
	OnError func(http.ResponseWriter, *http.Request, error)

	// Logger records internal errors (default: renewal.NoopLogger)
	Logger renewal.Logger
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Manager == nil {
		return fmt.Errorf("manager is required")
	}
	if c.GetUserID == nil {
		return fmt.Errorf("getUserID is required")
	}
	return nil
}

// NewHandler creates a new calendar API handler with the given configuration
func NewHandler(config Config) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Logger == nil {
		config.Logger = &renewal.NoopLogger{}
	}
	return &Handler{
		config: config,
	}, nil
}

// Helper functions for common owner ID extraction patterns

// FromHeader returns a GetUserID function that extracts the owner ID from a header
func FromHeader(headerName string) func(*http.Request) string {
	return func(r *http.Request) string {
		return r.Header.Get(headerName)
	}
}

// FromContext returns a GetUserID function that extracts the owner ID from request context
func FromContext(key interface{}) func(*http.Request) string {
	return func(r *http.Request) string {
		if userID, ok := r.Context().Value(key).(string); ok {
			return userID
		}
		return ""
	}
}
