// Package di provides dependency injection container
package di

import (
	"log/slog"

	"github.com/ssargent/lunadb/pkg/api"     //nolint:depguard
	"github.com/ssargent/lunadb/pkg/archive" //nolint:depguard
)

// ArchiveOpener opens the export archive at path
type ArchiveOpener func(path string, logger *slog.Logger) (*archive.Archive, error)

// Container holds all the dependencies for the application
type Container struct {
	serverFactory api.ServerFactory
	openArchive   ArchiveOpener
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		serverFactory: api.NewServerFactory(),
		openArchive:   archive.Open,
	}
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// GetArchiveOpener returns the archive opener
func (c *Container) GetArchiveOpener() ArchiveOpener {
	return c.openArchive
}

// SetArchiveOpener allows overriding the archive opener (for testing)
func (c *Container) SetArchiveOpener(opener ArchiveOpener) {
	c.openArchive = opener
}
