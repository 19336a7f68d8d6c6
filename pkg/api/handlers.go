package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/lunadb/pkg/codec"
	"github.com/ssargent/lunadb/pkg/loader"
	"github.com/ssargent/lunadb/pkg/store"
)

// Server holds the API server state
type Server struct {
	store   DocumentStore
	writer  DocumentWriter
	config  ServerConfig
	metrics *Metrics
	logger  *slog.Logger

	// The store has a single writer; reads share, mutations exclude.
	mu sync.RWMutex
}

// NewServer creates a new API server
func NewServer(st DocumentStore, writer DocumentWriter, config ServerConfig, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:   st,
		writer:  writer,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handlePut stores the request body under the id path parameter.
// An existing document with the same id is tombstoned first.
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := s.parseID(w, r, "put", start)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, codec.MaxDataSize+1))
	if err != nil {
		s.metrics.RecordDBOperation("put", false, time.Since(start))
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > codec.MaxDataSize {
		s.metrics.RecordDBOperation("put", false, time.Since(start))
		sendError(w, fmt.Sprintf("Document exceeds %d bytes", codec.MaxDataSize), http.StatusRequestEntityTooLarge)
		return
	}

	s.mu.Lock()
	offset, err := s.writer.Put(id, body)
	s.mu.Unlock()
	if err != nil {
		s.metrics.RecordDBOperation("put", false, time.Since(start))
		s.sendStoreError(w, "put", err)
		return
	}

	s.metrics.RecordDBOperation("put", true, time.Since(start))
	sendSuccess(w, PutResponse{ID: id, Offset: offset, Size: len(body)})
}

// handleGet returns the raw bytes of a live document.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := s.parseID(w, r, "get", start)
	if !ok {
		return
	}

	s.mu.RLock()
	doc, err := s.store.FindByID(id)
	s.mu.RUnlock()
	if err != nil {
		s.metrics.RecordDBOperation("get", false, time.Since(start))
		s.sendStoreError(w, "get", err)
		return
	}

	s.metrics.RecordDBOperation("get", true, time.Since(start))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := s.parseID(w, r, "delete", start)
	if !ok {
		return
	}

	s.mu.Lock()
	err := s.store.Delete(id)
	s.mu.Unlock()
	if err != nil {
		s.metrics.RecordDBOperation("delete", false, time.Since(start))
		s.sendStoreError(w, "delete", err)
		return
	}

	s.metrics.RecordDBOperation("delete", true, time.Since(start))
	sendSuccess(w, map[string]string{"message": "Document deleted successfully"})
}

// handleScan streams every live document as NDJSON in file order.
// ?include=deleted also streams tombstoned records.
//
// The read lock is held until the last line reaches the client, so writes
// wait for the whole stream, however slow the reader. A client that goes
// away cancels the request context, which ends the scan and frees them.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.store.ScanLive(r.Context())
	if r.URL.Query().Get("include") == "deleted" {
		docs = s.store.Scan(r.Context())
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	n, err := loader.Dump(w, docs)
	s.metrics.RecordScan(n)
	s.metrics.RecordDBOperation("scan", err == nil, time.Since(start))

	if err == nil {
		return
	}
	if n == 0 {
		// nothing written yet, the status can still change
		s.sendStoreError(w, "scan", err)
		return
	}
	s.logger.Error("scan aborted mid-stream", "documents", n, "error", err)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.stats()
	s.metrics.UpdateDBStats(stats)
	sendSuccess(w, stats)
}

func (s *Server) stats() store.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Stats()
}

func (s *Server) parseID(w http.ResponseWriter, r *http.Request, operation string, start time.Time) (int32, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		s.metrics.RecordDBOperation(operation, false, time.Since(start))
		sendError(w, fmt.Sprintf("Invalid document id %q", raw), http.StatusBadRequest)
		return 0, false
	}
	return int32(id), true
}

func (s *Server) sendStoreError(w http.ResponseWriter, operation string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		sendError(w, "Document not found", http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidID):
		sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, codec.ErrDataTooLarge):
		sendError(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, store.ErrScanInProgress):
		sendError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, store.ErrClosed):
		sendError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.Error("store operation failed", "operation", operation, "error", err)
		sendError(w, fmt.Sprintf("Failed to %s document: %v", operation, err), http.StatusInternalServerError)
	}
}

// startMetricsUpdater refreshes the store gauges every interval until done is closed
func (s *Server) startMetricsUpdater(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.metrics.UpdateDBStats(s.stats())
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
