package fetch

import "context"

// MockFetcher is a test double for Fetcher.
type MockFetcher struct {
	Result *Result
	Err    error

	// URLs records every URL passed to Fetch, in order.
	URLs []string
}

// Fetch records the URL and returns the configured result or error.
func (m *MockFetcher) Fetch(_ context.Context, rawURL string) (*Result, error) {
	m.URLs = append(m.URLs, rawURL)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}
