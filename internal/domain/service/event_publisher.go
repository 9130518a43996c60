package service

import (
	"context"
)

// Event types carried on the alert topic.
const (
	EventAlertCreated = "alert.created"
	EventSOSReceived  = "sos.received"
)

// AlertEvent is the trigger record consumed by the external push fan-out and
// SMS collaborators. The core only publishes it; delivery mechanics live
// outside.
type AlertEvent struct {
	RequestID string  `json:"request_id,omitempty"` // For distributed tracing
	Type      string  `json:"type"`
	AlertID   string  `json:"alert_id,omitempty"`
	MessageID string  `json:"message_id,omitempty"`
	Severity  string  `json:"severity,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Region    string  `json:"region,omitempty"`
	Title     string  `json:"title,omitempty"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishAlertEvent publishes a trigger event for async processing
	PublishAlertEvent(ctx context.Context, event *AlertEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
