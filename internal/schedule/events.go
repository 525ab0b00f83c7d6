package schedule

import (
	"context"
	"time"
)

// Class lifecycle event names as they appear on the wire.
const (
	EventClassCreated   = "class.created"
	EventClassUpdated   = "class.updated"
	EventClassCancelled = "class.cancelled"
	EventClassExpired   = "class.expired"
)

// ClassEvent is the payload published on every class lifecycle change.
type ClassEvent struct {
	Event      string    `json:"event"`
	ClassID    int64     `json:"classId"`
	TeacherID  int64     `json:"teacherId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher pushes class events to the configured broker. Implementations
// live in internal/messaging; a nil Publisher disables events entirely.
// The key groups related events (the class id), which brokers that
// partition by key use for per-class ordering. Publishing is best effort:
// failures are logged and never fail the operation that raised the event.
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}
