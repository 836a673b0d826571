package audit

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

// Event is a single audit log entry.
type Event struct {
	ID        string         `json:"id" bson:"_id"`
	EventType string         `json:"event_type" bson:"event_type"`
	Actor     string         `json:"actor" bson:"actor"`
	Resource  string         `json:"resource" bson:"resource"`
	Action    string         `json:"action" bson:"action"`
	Details   map[string]any `json:"details,omitempty" bson:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`

	account *meter.Key
}

// Validate checks the required fields.
func (e *Event) Validate() error {
	switch {
	case e.EventType == "":
		return fmt.Errorf("%w: event type is required", ErrEventValidation)
	case e.Action == "":
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	case e.Actor == "":
		return fmt.Errorf("%w: actor is required", ErrEventValidation)
	}
	return nil
}

// EventOption configures an Event passed to Logger.Log.
type EventOption func(*Event)

// WithActor sets who performed the action.
func WithActor(actor string) EventOption {
	return func(e *Event) {
		e.Actor = actor
	}
}

// WithResource sets the affected resource.
func WithResource(resource string) EventOption {
	return func(e *Event) {
		e.Resource = resource
	}
}

// WithAccount sets the affected account as the resource and the
// "account_key" detail.
func WithAccount(key meter.Key) EventOption {
	return func(e *Event) {
		e.account = &key
	}
}

// WithDetail adds a detail value.
func WithDetail(key string, value any) EventOption {
	return func(e *Event) {
		if e.Details == nil {
			e.Details = make(map[string]any)
		}
		e.Details[key] = value
	}
}
