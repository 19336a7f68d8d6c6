package api

import (
	"context"
	"iter"

	"github.com/ssargent/lunadb/pkg/codec"
	"github.com/ssargent/lunadb/pkg/store"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PutResponse is returned after a document is stored
type PutResponse struct {
	ID     int32 `json:"id"`
	Offset int64 `json:"offset"`
	Size   int   `json:"size"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string
}

// DocumentStore defines the store operations the API serves. *store.Store satisfies it.
type DocumentStore interface {
	FindByID(id int32) (codec.Document, error)
	Delete(id int32) error
	Scan(ctx context.Context) iter.Seq2[codec.Document, error]
	ScanLive(ctx context.Context) iter.Seq2[codec.Document, error]
	Flush() error
	Stats() store.Stats
}

// DocumentWriter stores a document under an identifier. *store.Writer satisfies it.
type DocumentWriter interface {
	Put(id int32, data []byte) (int64, error)
}
