package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/lunadb/pkg/codec"
	"github.com/ssargent/lunadb/pkg/logging"
	"github.com/ssargent/lunadb/pkg/store"
)

const testAPIKey = "test-key"

func setupTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	st, err := store.Open(store.Config{DataDir: t.TempDir(), MaxIdentifier: 1000})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return newTestServer(t, st, st.NewWriter())
}

func newTestServer(t *testing.T, st DocumentStore, w DocumentWriter) (*Server, http.Handler) {
	t.Helper()

	registry := prometheus.NewRegistry()
	server := NewServer(st, w, ServerConfig{APIKey: testAPIKey}, NewMetrics(registry), logging.Discard())
	return server, NewRouter(server, registry)
}

func do(t *testing.T, h http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var response APIResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return response
}

func TestServer_handleHealth(t *testing.T) {
	_, h := setupTestServer(t)

	w := do(t, h, "GET", "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	response := decode(t, w)
	if !response.Success {
		t.Error("Expected success to be true")
	}
	if response.Data == nil {
		t.Error("Expected data to be present")
	}
}

func TestServer_PutGet(t *testing.T) {
	_, h := setupTestServer(t)

	w := do(t, h, "PUT", "/api/v1/documents/7", "hello luna")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var put struct {
		Success bool        `json:"success"`
		Data    PutResponse `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&put); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if put.Data.ID != 7 || put.Data.Offset != 0 || put.Data.Size != 10 {
		t.Errorf("Unexpected put response %+v", put.Data)
	}

	w = do(t, h, "GET", "/api/v1/documents/7", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "hello luna" {
		t.Errorf("Expected body %q, got %q", "hello luna", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Expected octet-stream content type, got %s", ct)
	}
}

func TestServer_PutReplaces(t *testing.T) {
	_, h := setupTestServer(t)

	do(t, h, "PUT", "/api/v1/documents/1", "first")
	w := do(t, h, "PUT", "/api/v1/documents/1", "second")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	w = do(t, h, "GET", "/api/v1/documents/1", "")
	if got := w.Body.String(); got != "second" {
		t.Errorf("Expected replaced document, got %q", got)
	}
}

func TestServer_InvalidRequests(t *testing.T) {
	_, h := setupTestServer(t)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{"non numeric id", "GET", "/api/v1/documents/abc", "", http.StatusBadRequest},
		{"zero id", "PUT", "/api/v1/documents/0", "x", http.StatusBadRequest},
		{"negative id", "DELETE", "/api/v1/documents/-4", "", http.StatusBadRequest},
		{"id overflows int32", "GET", "/api/v1/documents/4294967296", "", http.StatusBadRequest},
		{"id above max identifier", "PUT", "/api/v1/documents/1001", "x", http.StatusBadRequest},
		{"document too large", "PUT", "/api/v1/documents/1", strings.Repeat("a", codec.MaxDataSize+1), http.StatusRequestEntityTooLarge},
		{"missing document", "GET", "/api/v1/documents/55", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if decode(t, w).Success {
				t.Error("Expected success to be false")
			}
		})
	}
}

func TestServer_MaxSizeDocument(t *testing.T) {
	_, h := setupTestServer(t)

	w := do(t, h, "PUT", "/api/v1/documents/3", strings.Repeat("z", codec.MaxDataSize))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	w = do(t, h, "GET", "/api/v1/documents/3", "")
	if w.Body.Len() != codec.MaxDataSize {
		t.Errorf("Expected %d bytes, got %d", codec.MaxDataSize, w.Body.Len())
	}
}

func TestServer_Delete(t *testing.T) {
	_, h := setupTestServer(t)

	do(t, h, "PUT", "/api/v1/documents/2", "doomed")

	w := do(t, h, "DELETE", "/api/v1/documents/2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	w = do(t, h, "GET", "/api/v1/documents/2", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}

	// deleting again, or deleting something never stored, is not an error
	for _, path := range []string{"/api/v1/documents/2", "/api/v1/documents/9"} {
		w = do(t, h, "DELETE", path, "")
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200 for %s, got %d", path, w.Code)
		}
	}
}

func TestServer_Scan(t *testing.T) {
	_, h := setupTestServer(t)

	do(t, h, "PUT", "/api/v1/documents/1", "alpha")
	do(t, h, "PUT", "/api/v1/documents/2", "beta")
	do(t, h, "PUT", "/api/v1/documents/3", "gamma")
	do(t, h, "DELETE", "/api/v1/documents/2", "")

	w := do(t, h, "GET", "/api/v1/documents", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Expected ndjson content type, got %s", ct)
	}
	expected := "{\"id\":1,\"data\":\"alpha\"}\n{\"id\":3,\"data\":\"gamma\"}\n"
	if got := w.Body.String(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}

	w = do(t, h, "GET", "/api/v1/documents?include=deleted", "")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], `"deleted":true`) {
		t.Errorf("Expected tombstoned record on line 2, got %s", lines[1])
	}
}

// stalledRecorder blocks its first body write until released
type stalledRecorder struct {
	*httptest.ResponseRecorder
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *stalledRecorder) Write(p []byte) (int, error) {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return r.ResponseRecorder.Write(p)
}

func TestServer_ScanHoldsWritersUntilStreamEnds(t *testing.T) {
	_, h := setupTestServer(t)
	do(t, h, "PUT", "/api/v1/documents/1", "alpha")

	rec := &stalledRecorder{
		ResponseRecorder: httptest.NewRecorder(),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		req := httptest.NewRequest("GET", "/api/v1/documents", nil)
		req.Header.Set("X-API-Key", testAPIKey)
		h.ServeHTTP(rec, req)
	}()
	<-rec.entered

	putDone := make(chan int)
	go func() {
		putDone <- do(t, h, "PUT", "/api/v1/documents/2", "beta").Code
	}()

	select {
	case <-putDone:
		t.Fatal("Expected PUT to wait for the scan stream")
	case <-time.After(50 * time.Millisecond):
	}

	close(rec.release)
	<-scanDone
	if code := <-putDone; code != http.StatusOK {
		t.Errorf("Expected status 200 after scan, got %d", code)
	}
	if got := rec.Body.String(); got != "{\"id\":1,\"data\":\"alpha\"}\n" {
		t.Errorf("Expected scan to see only the first document, got %q", got)
	}
}

func TestServer_ScanBinaryDocument(t *testing.T) {
	_, h := setupTestServer(t)

	do(t, h, "PUT", "/api/v1/documents/1", string([]byte{0xff, 0x00, 0xfe, 'a'}))

	w := do(t, h, "GET", "/api/v1/documents", "")
	expected := "{\"id\":1,\"data\":\"\",\"data_b64\":\"/wD+YQ==\"}\n"
	if got := w.Body.String(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestServer_Stats(t *testing.T) {
	_, h := setupTestServer(t)

	do(t, h, "PUT", "/api/v1/documents/1", "abc")
	do(t, h, "PUT", "/api/v1/documents/2", "def")
	do(t, h, "DELETE", "/api/v1/documents/1", "")

	w := do(t, h, "GET", "/api/v1/stats", "")
	var response struct {
		Data store.Stats `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.Data.Appended != 2 || response.Data.Deleted != 1 {
		t.Errorf("Unexpected stats %+v", response.Data)
	}
	if response.Data.DataSize != 20 {
		t.Errorf("Expected data size 20, got %d", response.Data.DataSize)
	}
}

// failingStore reports err from every operation
type failingStore struct {
	err error
}

func (f failingStore) FindByID(int32) (codec.Document, error) { return codec.Document{}, f.err }
func (f failingStore) Delete(int32) error                     { return f.err }
func (f failingStore) Flush() error                           { return f.err }
func (f failingStore) Stats() store.Stats                     { return store.Stats{} }

func (f failingStore) Scan(context.Context) iter.Seq2[codec.Document, error] {
	return func(yield func(codec.Document, error) bool) {
		yield(codec.Document{}, f.err)
	}
}

func (f failingStore) ScanLive(ctx context.Context) iter.Seq2[codec.Document, error] {
	return f.Scan(ctx)
}

func (f failingStore) Put(int32, []byte) (int64, error) { return 0, f.err }

func TestServer_StoreErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		method         string
		path           string
		expectedStatus int
	}{
		{"scan in progress", store.ErrScanInProgress, "GET", "/api/v1/documents", http.StatusConflict},
		{"closed store", store.ErrClosed, "GET", "/api/v1/documents/1", http.StatusServiceUnavailable},
		{"corrupt record", codec.ErrCorrupt, "GET", "/api/v1/documents/1", http.StatusInternalServerError},
		{"write failure", errors.New("disk full"), "PUT", "/api/v1/documents/1", http.StatusInternalServerError},
		{"delete failure", errors.New("disk full"), "DELETE", "/api/v1/documents/1", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := failingStore{err: tt.err}
			_, h := newTestServer(t, fs, fs)

			w := do(t, h, tt.method, tt.path, "body")
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected json error body, got %s", ct)
			}
		})
	}
}

func TestServer_ScanErrorMidStream(t *testing.T) {
	boom := errors.New("bad sector")
	st := partialStore{failingStore: failingStore{err: boom}}
	_, h := newTestServer(t, st, st)

	w := do(t, h, "GET", "/api/v1/documents", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 once streaming started, got %d", w.Code)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte(`{"id":1,"data":"ok"}`)) {
		t.Errorf("Expected first document before the error, got %q", w.Body.String())
	}
}

type partialStore struct {
	failingStore
}

func (p partialStore) ScanLive(context.Context) iter.Seq2[codec.Document, error] {
	return func(yield func(codec.Document, error) bool) {
		if !yield(codec.Document{ID: 1, Data: []byte("ok")}, nil) {
			return
		}
		yield(codec.Document{}, p.err)
	}
}
