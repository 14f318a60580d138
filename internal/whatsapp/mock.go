package whatsapp

import (
	"context"
	"sync"
)

// MockClient implements Sender without network calls (for tests). It records
// every call and can be told to fail either operation.
type MockClient struct {
	mu         sync.Mutex
	TextErr    error
	VideoErr   error
	SentTexts  []MockText
	SentVideos []MockVideo
}

// MockText records one SendText call.
type MockText struct {
	To   string
	Body string
}

// MockVideo records one SendVideo call.
type MockVideo struct {
	To   string
	Path string
}

// NewMockClient creates a recording mock sender.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) SendText(ctx context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TextErr != nil {
		return m.TextErr
	}
	m.SentTexts = append(m.SentTexts, MockText{To: to, Body: body})
	return nil
}

func (m *MockClient) SendVideo(ctx context.Context, to string, localPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.VideoErr != nil {
		return m.VideoErr
	}
	m.SentVideos = append(m.SentVideos, MockVideo{To: to, Path: localPath})
	return nil
}

// Texts returns a copy of the recorded text sends.
func (m *MockClient) Texts() []MockText {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockText, len(m.SentTexts))
	copy(out, m.SentTexts)
	return out
}

// Videos returns a copy of the recorded video sends.
func (m *MockClient) Videos() []MockVideo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockVideo, len(m.SentVideos))
	copy(out, m.SentVideos)
	return out
}
