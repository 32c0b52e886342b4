package mail

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrSimulated is returned by MockSender for recipients listed in FailFor.
var ErrSimulated = errors.New("simulated send failure")

// MockSender records every message and fails or panics for selected
// recipients. It is safe for concurrent use.
type MockSender struct {
	// FailFor and PanicFor hold lowercase recipients.
	FailFor  map[string]bool
	PanicFor map[string]bool

	mu       sync.Mutex
	messages []Message
}

func (m *MockSender) Send(_ context.Context, msg Message) error {
	to := strings.ToLower(msg.To)
	if m.PanicFor[to] {
		panic("simulated provider panic for " + to)
	}
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	if m.FailFor[to] {
		return ErrSimulated
	}
	return nil
}

func (m *MockSender) Name() string {
	return "mock"
}

// Messages returns a copy of every message passed to Send, failed ones
// included, in arrival order.
func (m *MockSender) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Attempts is the number of Send calls that did not panic.
func (m *MockSender) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}
