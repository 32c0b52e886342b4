package audit

import (
	"context"
	"sync"
)

// Recorder is an in-memory Sink, used by tests of the packages that emit
// events.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Write(_ context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *Recorder) Close() error {
	return nil
}

func (r *Recorder) Name() string {
	return "recorder"
}

// Events returns a copy of everything written so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
