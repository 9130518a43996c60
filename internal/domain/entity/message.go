package entity

import (
	"time"
)

// MessageKind distinguishes the two emergency message flavors, which share a
// shape but live in separate collections and status domains.
type MessageKind string

// Message kinds.
const (
	KindSOS    MessageKind = "sos"
	KindReport MessageKind = "report"
)

// MessageStatus is an operator-driven, forward-only lifecycle state.
type MessageStatus string

// SOS status domain.
const (
	StatusPending      MessageStatus = "pending"
	StatusAcknowledged MessageStatus = "acknowledged"
	StatusResolved     MessageStatus = "resolved"
)

// Incident report status domain (shares pending/resolved with SOS).
const (
	StatusInvestigating MessageStatus = "investigating"
	StatusDismissed     MessageStatus = "dismissed"
)

// statusOrder ranks statuses per kind. A transition is legal only when the
// target rank is strictly greater than the current rank; a client or operator
// can never regress a message.
var statusOrder = map[MessageKind]map[MessageStatus]int{
	KindSOS: {
		StatusPending:      0,
		StatusAcknowledged: 1,
		StatusResolved:     2,
	},
	KindReport: {
		StatusPending:       0,
		StatusInvestigating: 1,
		StatusResolved:      2,
		StatusDismissed:     2,
	},
}

// ValidStatus reports whether the status belongs to the kind's domain.
func (k MessageKind) ValidStatus(status MessageStatus) bool {
	_, ok := statusOrder[k][status]

	return ok
}

// CanTransition reports whether moving from one status to another is a legal
// forward step for the kind.
func (k MessageKind) CanTransition(from, to MessageStatus) bool {
	order, ok := statusOrder[k]
	if !ok {
		return false
	}
	fromRank, ok := order[from]
	if !ok {
		return false
	}
	toRank, ok := order[to]
	if !ok {
		return false
	}

	return toRank > fromRank
}

// EmergencyMessage is a user-originated message requiring response: an SOS or
// an incident report. ID is assigned by the remote store and is empty while
// the message sits in the outbound queue.
type EmergencyMessage struct {
	ID        string              `json:"id,omitempty" firestore:"-"`
	Kind      MessageKind         `json:"kind" firestore:"kind"`
	AuthorID  string              `json:"author_id" firestore:"authorId"`
	Message   string              `json:"message" firestore:"message"`
	Location  *LocationDescriptor `json:"location,omitempty" firestore:"location"`
	CreatedAt time.Time           `json:"created_at" firestore:"createdAt"`
	Status    MessageStatus       `json:"status" firestore:"status"`
}

// Attachment is a reference to a locally captured blob awaiting upload.
type Attachment struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// QueueEntry is an undelivered emergency message held in the outbound queue.
// Created on a failed send, destroyed on successful replay, otherwise
// persisted indefinitely across process restarts.
type QueueEntry struct {
	Payload     EmergencyMessage `json:"payload"`
	Attachments []Attachment     `json:"attachments,omitempty"`

	// IdempotencyKey, when set by the caller, suppresses a second enqueue of
	// the same logical message while the first is still queued.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// FlushResult summarizes one replay pass over the outbound queue.
type FlushResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

// SendResult is the outcome of a send attempt. Queued means the message was
// accepted for deferred delivery and must be presented to the user as a
// success, not an error.
type SendResult struct {
	ID     string `json:"id,omitempty"`
	Queued bool   `json:"queued"`
}
