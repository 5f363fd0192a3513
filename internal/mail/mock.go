package mail

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MockSearcher is an in-memory Searcher for tests. Every thread holds the
// messages registered under it; queries are matched by exact string unless
// Match is set.
type MockSearcher struct {
	SearchErr   error
	FetchErr    error
	Match       func(query string, threadQuery string) bool
	threads     map[string][]Message
	byQuery     map[string][]string
	Queries     []string
	SearchCalls int
	mu          sync.Mutex
}

// NewMockSearcher creates an empty mock mailbox.
func NewMockSearcher() *MockSearcher {
	return &MockSearcher{
		threads: make(map[string][]Message),
		byQuery: make(map[string][]string),
	}
}

// AddThread registers a thread returned for query. The query may omit any
// after: clause; the mock strips it before matching.
func (m *MockSearcher) AddThread(query, threadID string, msgs ...Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.threads[threadID] = append(m.threads[threadID], msgs...)
	m.byQuery[query] = append(m.byQuery[query], threadID)
}

// Search implements Searcher.
func (m *MockSearcher) Search(_ context.Context, query string, limit int) ([]Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SearchCalls++
	m.Queries = append(m.Queries, query)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	base := stripAfter(query)
	keys := make([]string, 0, len(m.byQuery))
	for k := range m.byQuery {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var threads []Thread
	for _, k := range keys {
		matched := k == base
		if m.Match != nil {
			matched = m.Match(base, k)
		}
		if !matched {
			continue
		}
		for _, id := range m.byQuery[k] {
			threads = append(threads, Thread{ID: id})
		}
	}

	if limit > 0 && len(threads) > limit {
		threads = threads[:limit]
	}
	return threads, nil
}

// FetchMessages implements Searcher.
func (m *MockSearcher) FetchMessages(_ context.Context, threads []Thread) ([][]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FetchErr != nil {
		return nil, m.FetchErr
	}

	out := make([][]Message, 0, len(threads))
	for _, t := range threads {
		out = append(out, append([]Message(nil), m.threads[t.ID]...))
	}
	return out, nil
}

func stripAfter(query string) string {
	if i := strings.Index(query, " after:"); i >= 0 {
		return query[:i]
	}
	return query
}
