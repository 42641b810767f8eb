// Package testutil provides testing utilities for the workflow cleanup tool.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockRun is one workflow run held by MockGitHub.
type MockRun struct {
	ID            int64
	Name          string
	CommitMessage string
	CreatedAt     string // YYYY-MM-DD, compared as a string
}

// MockGitHub is an in-memory GitHub Actions API for testing.
type MockGitHub struct {
	server *httptest.Server
	mu     sync.RWMutex
	runs   map[int64]MockRun

	// Failure injection
	deleteStatus map[int64]int
	listStatus   int
	deleteDelay  time.Duration

	// Tracking
	ListCount      int
	DeleteAttempts map[int64]int
	LastCreated    string
	LastPerPage    int
	LastAuthHeader string
	inFlight       int
	MaxInFlight    int
}

// NewMockGitHub creates a new mock GitHub API server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		runs:           make(map[int64]MockRun),
		deleteStatus:   make(map[int64]int),
		DeleteAttempts: make(map[int64]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}/actions/runs", mock.listRuns)
	mux.HandleFunc("DELETE /repos/{owner}/{repo}/actions/runs/{id}", mock.deleteRun)

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.LastAuthHeader = r.Header.Get("Authorization")
		mock.mu.Unlock()

		setRateLimitHeaders(w)
		mux.ServeHTTP(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// AddRuns seeds count runs created on createdAt, with IDs starting at firstID.
func (m *MockGitHub) AddRuns(firstID int64, count int, createdAt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < count; i++ {
		id := firstID + int64(i)
		m.runs[id] = MockRun{
			ID:            id,
			Name:          "CI",
			CommitMessage: fmt.Sprintf("commit %d", id),
			CreatedAt:     createdAt,
		}
	}
}

// AddRun seeds a single run.
func (m *MockGitHub) AddRun(run MockRun) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
}

// FailDelete makes deletes of id answer with status.
func (m *MockGitHub) FailDelete(id int64, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteStatus[id] = status
}

// FailList makes listing requests answer with status.
func (m *MockGitHub) FailList(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listStatus = status
}

// SetDeleteDelay delays every delete response.
func (m *MockGitHub) SetDeleteDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteDelay = d
}

// Remaining returns the number of runs not yet deleted.
func (m *MockGitHub) Remaining() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

// GetListCount returns the number of listing requests.
func (m *MockGitHub) GetListCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ListCount
}

// GetDeleteCount returns the total number of delete attempts.
func (m *MockGitHub) GetDeleteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.DeleteAttempts {
		total += n
	}
	return total
}

// GetMaxInFlight returns the highest number of concurrent deletes observed.
func (m *MockGitHub) GetMaxInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.MaxInFlight
}

func (m *MockGitHub) listRuns(w http.ResponseWriter, r *http.Request) {
	created := r.URL.Query().Get("created")
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage <= 0 {
		perPage = 30
	}

	m.mu.Lock()
	m.ListCount++
	m.LastCreated = created
	m.LastPerPage = perPage
	status := m.listStatus
	matching := make([]MockRun, 0, len(m.runs))
	for _, run := range m.runs {
		if matchesCreated(run.CreatedAt, created) {
			matching = append(matching, run)
		}
	}
	m.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}

	// Newest first, like the real API.
	sort.Slice(matching, func(i, j int) bool { return matching[i].ID > matching[j].ID })
	total := len(matching)
	if len(matching) > perPage {
		matching = matching[:perPage]
	}

	runs := make([]map[string]any, 0, len(matching))
	for _, run := range matching {
		entry := map[string]any{
			"id":         run.ID,
			"name":       run.Name,
			"created_at": run.CreatedAt + "T00:00:00Z",
		}
		if run.CommitMessage != "" {
			entry["head_commit"] = map[string]any{"message": run.CommitMessage}
		}
		runs = append(runs, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_count":   total,
		"workflow_runs": runs,
	})
}

func (m *MockGitHub) deleteRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}

	m.mu.Lock()
	m.DeleteAttempts[id]++
	m.inFlight++
	if m.inFlight > m.MaxInFlight {
		m.MaxInFlight = m.inFlight
	}
	delay := m.deleteDelay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	status, failing := m.deleteStatus[id]
	_, exists := m.runs[id]
	if !failing && exists {
		delete(m.runs, id)
	}
	m.mu.Unlock()

	switch {
	case failing:
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
	case !exists:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// matchesCreated evaluates the subset of GitHub's created qualifier the
// cleanup tool sends ("<date").
func matchesCreated(createdAt, qualifier string) bool {
	if qualifier == "" {
		return true
	}
	if date, ok := strings.CutPrefix(qualifier, "<"); ok {
		return createdAt < date
	}
	return createdAt == qualifier
}

func setRateLimitHeaders(w http.ResponseWriter) {
	w.Header().Set("X-RateLimit-Limit", "5000")
	w.Header().Set("X-RateLimit-Remaining", "4999")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
	w.Header().Set("X-RateLimit-Resource", "core")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
