package model

import (
	"time"
)

// Status is the delivery state of a notification. Transitions are
// monotonic: PENDING -> SENT, exactly once.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
)

// Notification is a time-delayed message addressed to a single recipient.
//
// ScheduledAt is an absolute delivery timestamp in epoch milliseconds;
// the record becomes due once ScheduledAt has passed and stays PENDING
// until its recipient is reachable over a live connection.
type Notification struct {
	ID          string     `bson:"_id" json:"id"`
	RecipientID string     `bson:"clientId" json:"recipientId"`
	ScheduledAt int64      `bson:"time" json:"scheduledTime"`
	Status      Status     `bson:"status" json:"status"`
	Text        string     `bson:"text" json:"text"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	DeliveredAt *time.Time `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
}
