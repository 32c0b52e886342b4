// SPDX-FileCopyrightText: 2024 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventDispatchCompleted is emitted after every send run, whatever the
	// outcome.
	EventDispatchCompleted EventType = "mail.dispatch.completed"
)

// Source tells which entry point triggered the run.
type Source string

const (
	SourceAPI Source = "api"
	SourceCLI Source = "cli"
)

// Event is a single audit record. Recipient addresses are not included, only
// counts.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Source     Source    `json:"source"`
	Provider   string    `json:"provider"`
	Subject    string    `json:"subject"`
	Recipients int       `json:"recipients"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Batches    int       `json:"batches"`
	DurationMs int64     `json:"durationMs"`
	RequestID  string    `json:"requestId,omitempty"`
}

// NewEvent returns an event of the given type with a fresh ID and the current
// UTC time.
func NewEvent(t EventType, source Source) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Source:    source,
	}
}
