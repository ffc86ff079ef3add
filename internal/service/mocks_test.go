package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"chat-assistant-server/internal/domain"
)

type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{messages: []string{}}
}

func (m *MockLogger) record(line string) {
	m.mu.Lock()
	m.messages = append(m.messages, line)
	m.mu.Unlock()
}

func (m *MockLogger) Info(msg string, args ...interface{})  { m.record("INFO: " + msg) }
func (m *MockLogger) Debug(msg string, args ...interface{}) { m.record("DEBUG: " + msg) }
func (m *MockLogger) Warn(msg string, args ...interface{})  { m.record("WARN: " + msg) }

func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	line := "ERROR: " + msg
	if err != nil {
		line += " - " + err.Error()
	}
	m.record(line)
}

func (m *MockLogger) Contains(fragment string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range m.messages {
		if strings.Contains(line, fragment) {
			return true
		}
	}
	return false
}

// conflictingStore wraps a store and fails the first n saves with a version
// conflict.
type conflictingStore struct {
	domain.AccountStore
	mu        sync.Mutex
	conflicts int
	saves     int
}

func (s *conflictingStore) Save(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	s.saves++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return domain.ErrVersionConflict
	}
	s.mu.Unlock()
	return s.AccountStore.Save(ctx, account)
}

func (s *conflictingStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type mockResponder struct {
	reply    string
	imageURL string
	err      error

	mu      sync.Mutex
	prompts []string
}

func (m *mockResponder) Reply(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockResponder) GenerateImage(ctx context.Context, prompt string) (*domain.Reply, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Reply{Kind: domain.ActionImageGeneration, Text: "Here is your image", ImageURL: m.imageURL}, nil
}

func day(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

// steppingClock returns each reading in turn and repeats the last one.
type steppingClock struct {
	mu       sync.Mutex
	readings []time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.readings[0]
	if len(c.readings) > 1 {
		c.readings = c.readings[1:]
	}
	return now
}
