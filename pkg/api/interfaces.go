// Package api provides interfaces for dependency injection
package api

import (
	"context"
	"log/slog"

	"github.com/ssargent/lunadb/pkg/store"
)

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the store until ctx is cancelled
	StartServer(ctx context.Context, st *store.Store, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter logging to logger
	CreateServerStarter(logger *slog.Logger) ServerStarter
}
