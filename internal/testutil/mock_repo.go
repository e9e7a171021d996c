// Package testutil provides testing utilities for the collection size scan.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// Collection is one summary served by the mock listing endpoint.
type Collection struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// MockRepo is a configurable mock repository API server for testing. It
// serves the collections listing endpoint (rows/start pagination over the
// configured collections) and the search endpoint (numFound per collection).
type MockRepo struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	collections  []Collection
	counts       map[string]int
	missingCount map[string]bool

	// Tracking
	RequestCount    int
	ListingRequests int
	SearchRequests  int
	LastSearchQuery string
}

// NewMockRepo creates a new mock repository server.
func NewMockRepo() *MockRepo {
	mock := &MockRepo{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		counts:       make(map[string]int),
		missingCount: make(map[string]bool),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		switch r.URL.Path {
		case "/api/collections/":
			mock.listingHandler(w, r)
		case "/api/search/":
			mock.searchHandler(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockRepo) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockRepo) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockRepo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ListingRequests = 0
	m.SearchRequests = 0
	m.LastSearchQuery = ""
}

// SetHandler sets a custom handler for a specific path, overriding the
// built-in endpoint behavior.
func (m *MockRepo) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetCollections replaces the collections served by the listing endpoint.
func (m *MockRepo) SetCollections(collections []Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = collections
}

// AddCollection appends a collection with the given item count.
func (m *MockRepo) AddCollection(id, name string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = append(m.collections, Collection{ID: id, Name: name})
	m.counts[id] = count
}

// AddCollections appends n generated collections, all with the given count.
// IDs follow the pattern "test:0001".
func (m *MockRepo) AddCollections(n, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := len(m.collections)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("test:%04d", base+i+1)
		m.collections = append(m.collections, Collection{ID: id, Name: "Collection " + id})
		m.counts[id] = count
	}
}

// SetCount sets the numFound value returned for a collection.
func (m *MockRepo) SetCount(id string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[id] = count
}

// OmitCount makes the search response for a collection carry no numFound field.
func (m *MockRepo) OmitCount(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missingCount[id] = true
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockRepo) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetSearchRequests returns the number of search endpoint requests.
func (m *MockRepo) GetSearchRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.SearchRequests
}

// listingHandler serves a rows/start page of the configured collections.
func (m *MockRepo) listingHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.ListingRequests++
	m.mu.Unlock()

	rows, _ := strconv.Atoi(r.URL.Query().Get("rows"))
	start, _ := strconv.Atoi(r.URL.Query().Get("start"))
	if rows <= 0 {
		rows = 100
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	page := []Collection{}
	if start < len(m.collections) {
		end := start + rows
		if end > len(m.collections) {
			end = len(m.collections)
		}
		page = m.collections[start:end]
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(map[string]any{"collections": page})
}

// searchHandler answers a membership query with the configured numFound.
func (m *MockRepo) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	m.mu.Lock()
	m.SearchRequests++
	m.LastSearchQuery = q
	m.mu.Unlock()

	id := collectionIDFromQuery(q)

	m.mu.RLock()
	defer m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if m.missingCount[id] {
		fmt.Fprint(w, `{"response": {}}`)
		return
	}

	count, ok := m.counts[id]
	if !ok {
		count = 0
	}
	json.NewEncoder(w).Encode(map[string]any{
		"response": map[string]any{"numFound": count},
	})
}

// collectionIDFromQuery extracts the quoted collection ID from a membership
// query of the form field:"id".
func collectionIDFromQuery(q string) string {
	_, quoted, found := strings.Cut(q, ":\"")
	if !found {
		return ""
	}
	return strings.TrimSuffix(quoted, "\"")
}
