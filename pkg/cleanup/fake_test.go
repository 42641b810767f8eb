package cleanup

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// fakeRemote is an in-memory collection; deleted items drop out of later pages.
type fakeRemote struct {
	mu        sync.Mutex
	items     []CandidateItem
	deleted   map[int64]bool
	failIDs   map[int64]int // id -> status returned instead of 204
	attempts  map[int64]int
	listCalls int
	listErr   error
	nilPage   bool
	oversize  bool // ignore pageSize and return every remaining item
	delay     time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeRemote(n int) *fakeRemote {
	items := make([]CandidateItem, n)
	for i := range items {
		items[i] = CandidateItem{ID: int64(i + 1), Label: "commit message"}
	}
	return &fakeRemote{
		items:    items,
		deleted:  make(map[int64]bool),
		failIDs:  make(map[int64]int),
		attempts: make(map[int64]int),
	}
}

func (f *fakeRemote) ListPage(_ context.Context, _ Filter, pageSize int) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.nilPage {
		return nil, nil
	}

	page := Page{}
	for _, item := range f.items {
		if len(page) == pageSize && !f.oversize {
			break
		}
		if !f.deleted[item.ID] {
			page = append(page, item)
		}
	}
	return page, nil
}

func (f *fakeRemote) DeleteItem(_ context.Context, id int64) (int, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxInFlight.Load()
		if cur <= prev || f.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts[id]++
	if status, ok := f.failIDs[id]; ok {
		if status == 0 {
			return 0, errors.New("connection reset by peer")
		}
		return status, nil
	}
	f.deleted[id] = true
	return http.StatusNoContent, nil
}

func (f *fakeRemote) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.attempts {
		total += n
	}
	return total
}

// recordingReporter captures messages per level.
type recordingReporter struct {
	mu       sync.Mutex
	debug    []string
	info     []string
	notice   []string
	sources  []string
	warnings []string
	errors   []string
}

func (r *recordingReporter) Debug(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debug = append(r.debug, msg)
}

func (r *recordingReporter) Info(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info = append(r.info, msg)
}

func (r *recordingReporter) Notice(msg, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notice = append(r.notice, msg)
	r.sources = append(r.sources, source)
}

func (r *recordingReporter) Warning(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, msg)
}

func (r *recordingReporter) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}
