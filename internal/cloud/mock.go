package cloud

import (
	"context"
	"sync"
)

// MockUploader implements Uploader without network calls (for tests).
type MockUploader struct {
	mu       sync.Mutex
	URL      string
	Err      error
	Uploaded []string
}

// NewMockUploader creates a mock that returns the given URL for every upload.
func NewMockUploader(url string) *MockUploader {
	return &MockUploader{URL: url}
}

func (m *MockUploader) Upload(ctx context.Context, localPath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Uploaded = append(m.Uploaded, localPath)
	return m.URL, nil
}

// Paths returns a copy of the recorded upload paths.
func (m *MockUploader) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Uploaded))
	copy(out, m.Uploaded)
	return out
}
