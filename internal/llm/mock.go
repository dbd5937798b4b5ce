package llm

import (
	"context"
	"sync"
)

// Mock is a scripted client for tests. Replies are returned in order; once
// exhausted the last reply repeats. It records every prompt it receives.
type Mock struct {
	mu      sync.Mutex
	replies []string
	err     error

	VisionCalls []MockVisionCall
	TextCalls   []MockTextCall
}

type MockVisionCall struct {
	Image        []byte
	MimeType     string
	Instructions string
}

type MockTextCall struct {
	System string
	User   string
}

var _ VisionClient = (*Mock)(nil)
var _ TextClient = (*Mock)(nil)

// NewMock builds a mock client that returns the given replies in order.
func NewMock(replies ...string) *Mock {
	return &Mock{replies: replies}
}

// Fail configures the mock to return err on every invocation.
func (m *Mock) Fail(err error) *Mock {
	m.err = err
	return m
}

func (m *Mock) next() string {
	if len(m.replies) == 0 {
		return ""
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply
}

func (m *Mock) InvokeVision(_ context.Context, image []byte, mimeType string, instructions string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VisionCalls = append(m.VisionCalls, MockVisionCall{Image: image, MimeType: mimeType, Instructions: instructions})
	if m.err != nil {
		return "", m.err
	}
	return m.next(), nil
}

func (m *Mock) InvokeText(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TextCalls = append(m.TextCalls, MockTextCall{System: systemPrompt, User: userPrompt})
	if m.err != nil {
		return "", m.err
	}
	return m.next(), nil
}

func (m *Mock) Model() string {
	return "mock"
}

func (m *Mock) Ready() bool {
	return true
}
