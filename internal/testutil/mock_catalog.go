// Package testutil provides testing utilities for the catalog client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path under which MockCatalog serves the catalog API.
const APIPrefix = "/v1"

// maxBatchIDs mirrors the service's batch size limit.
const maxBatchIDs = 20

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is an in-process catalog service. It serves albums registered
// with AddAlbum, follows the service's batch and pagination rules and records
// every request it receives.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	albums   map[string]int

	requireToken string
	tokenSeq     int

	// Tracking
	RequestCount      int
	TokenRequestCount int
	BatchSizes        []int
	LastRequestHeader http.Header
	LastQuery         string
}

// NewMockCatalog creates a new mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		albums:   make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/token" {
			mock.tokenHandler(w, r)
			return
		}

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastQuery = r.URL.RawQuery
		handler, exists := mock.handlers[r.URL.Path]
		required := mock.requireToken
		mock.mu.Unlock()

		if required != "" && r.Header.Get("Authorization") != "Bearer "+required {
			writeError(w, http.StatusUnauthorized, "Invalid access token")
			return
		}

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the catalog API base URL.
func (m *MockCatalog) URL() string {
	return m.server.URL + APIPrefix
}

// TokenURL returns the client credentials token endpoint.
func (m *MockCatalog) TokenURL() string {
	return m.server.URL + "/api/token"
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.TokenRequestCount = 0
	m.BatchSizes = nil
	m.LastRequestHeader = nil
	m.LastQuery = ""
}

// AddAlbum registers an album with trackCount tracks.
func (m *MockCatalog) AddAlbum(id string, trackCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.albums[id] = trackCount
}

// RequireToken makes every API request without "Bearer <token>" fail with 401.
func (m *MockCatalog) RequireToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requireToken = token
}

// SetHandler sets a custom handler for a path (including APIPrefix).
func (m *MockCatalog) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of API requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetTokenRequestCount returns the number of token requests.
func (m *MockCatalog) GetTokenRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TokenRequestCount
}

// GetBatchSizes returns the id count of every batch request, in arrival order.
func (m *MockCatalog) GetBatchSizes() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.BatchSizes...)
}

func (m *MockCatalog) defaultHandler(w http.ResponseWriter, r *http.Request) {
	path, ok := strings.CutPrefix(r.URL.Path, APIPrefix+"/albums")
	if !ok || r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "Service not found")
		return
	}

	switch {
	case path == "":
		m.batchHandler(w, r)
	case strings.HasSuffix(path, "/tracks"):
		m.tracksHandler(w, r, strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/tracks"))
	default:
		m.albumHandler(w, strings.TrimPrefix(path, "/"))
	}
}

func (m *MockCatalog) albumHandler(w http.ResponseWriter, id string) {
	if !validID(id) {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	total, ok := m.trackCount(id)
	if !ok {
		writeError(w, http.StatusNotFound, "non existing id")
		return
	}
	writeJSON(w, http.StatusOK, m.album(id, total))
}

func (m *MockCatalog) batchHandler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	ids := strings.Split(raw, ",")

	m.mu.Lock()
	m.BatchSizes = append(m.BatchSizes, len(ids))
	m.mu.Unlock()

	if len(ids) > maxBatchIDs {
		writeError(w, http.StatusBadRequest, "Too many ids requested")
		return
	}

	albums := make([]any, len(ids))
	for i, id := range ids {
		if !validID(id) {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		if total, ok := m.trackCount(id); ok {
			albums[i] = m.album(id, total)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"albums": albums})
}

func (m *MockCatalog) tracksHandler(w http.ResponseWriter, r *http.Request, id string) {
	offset, limit := 0, 20
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		offset = n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		if n > 50 {
			writeError(w, http.StatusBadRequest, "Invalid limit, cannot be greater than 50")
			return
		}
		if n > 0 {
			limit = n
		}
	}

	if !validID(id) {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	total, ok := m.trackCount(id)
	if !ok {
		writeError(w, http.StatusNotFound, "non existing id")
		return
	}
	writeJSON(w, http.StatusOK, m.tracksPage(id, total, offset, limit))
}

func (m *MockCatalog) tokenHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.TokenRequestCount++
	m.tokenSeq++
	seq := m.tokenSeq
	m.mu.Unlock()

	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"unsupported_grant_type"}`))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": fmt.Sprintf("mock-token-%d", seq),
		"token_type":   "bearer",
		"expires_in":   3600,
	})
}

func (m *MockCatalog) trackCount(id string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total, ok := m.albums[id]
	return total, ok
}

func (m *MockCatalog) album(id string, total int) map[string]any {
	return map[string]any{
		"id":                     id,
		"name":                   "Album " + id,
		"type":                   "album",
		"album_type":             "album",
		"release_date":           "1997-05-21",
		"release_date_precision": "day",
		"total_tracks":           total,
		"label":                  "Mock Records",
		"popularity":             42,
		"genres":                 []string{},
		"uri":                    "spotify:album:" + id,
		"href":                   m.URL() + "/albums/" + id,
		"external_urls":          map[string]string{"spotify": "https://open.spotify.com/album/" + id},
		"images": []map[string]any{
			{"url": "https://i.scdn.co/image/" + id, "height": 640, "width": 640},
		},
		"artists": []map[string]any{artist(id)},
		"tracks":  m.tracksPage(id, total, 0, 20),
	}
}

func (m *MockCatalog) tracksPage(id string, total, offset, limit int) map[string]any {
	base := m.URL() + "/albums/" + id + "/tracks"
	link := func(o int) string {
		return fmt.Sprintf("%s?offset=%d&limit=%d", base, o, limit)
	}

	items := []map[string]any{}
	for n := offset; n < total && n < offset+limit; n++ {
		items = append(items, track(id, n))
	}

	var next, previous any
	if offset+len(items) < total {
		next = link(offset + limit)
	}
	if offset > 0 {
		previous = link(max(0, offset-limit))
	}

	return map[string]any{
		"href":     link(offset),
		"items":    items,
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"next":     next,
		"previous": previous,
	}
}

func artist(albumID string) map[string]any {
	id := "ar" + albumID
	return map[string]any{
		"id":   id,
		"name": "Artist " + albumID,
		"type": "artist",
		"uri":  "spotify:artist:" + id,
		"href": "https://api.spotify.com/v1/artists/" + id,
	}
}

func track(albumID string, n int) map[string]any {
	id := fmt.Sprintf("tr%d%s", n, albumID)
	return map[string]any{
		"id":           id,
		"name":         fmt.Sprintf("Track %d", n+1),
		"type":         "track",
		"track_number": n + 1,
		"disc_number":  1,
		"duration_ms":  180000 + n,
		"explicit":     false,
		"preview_url":  nil,
		"uri":          "spotify:track:" + id,
		"href":         "https://api.spotify.com/v1/tracks/" + id,
		"artists":      []map[string]any{artist(albumID)},
	}
}

func validID(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range id {
		if !('0' <= c && c <= '9') && !('a' <= c && c <= 'z') && !('A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"status": status, "message": message},
	})
}

// NewErrorResponse creates a response with the service's error envelope.
func NewErrorResponse(status int, message string) MockResponse {
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{"status": status, "message": message},
	})
	return MockResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter time.Duration) MockResponse {
	resp := NewErrorResponse(http.StatusTooManyRequests, "API rate limit exceeded")
	resp.Headers["Retry-After"] = strconv.Itoa(int(retryAfter.Seconds()))
	return resp
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return NewErrorResponse(http.StatusInternalServerError, "Server error")
}
