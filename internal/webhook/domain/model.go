package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Event types delivered by the payment gateway.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
)

// Payment status values on a checkout session object.
const (
	PaymentStatusPaid = "paid"
)

// EventRecord is the durable dedup record for a webhook delivery. The
// session id is unique, so concurrent deliveries of the same session
// collapse onto one row.
type EventRecord struct {
	ID        int64  `json:"id" gorm:"primaryKey"`
	SessionID string `json:"session_id" gorm:"column:session_id;type:text;not null;uniqueIndex:ux_checkout_events_session"`
	EventID   string `json:"event_id" gorm:"column:event_id;type:text;not null"`
	EventType string `json:"event_type" gorm:"column:event_type;type:text;not null"`
	ProductID int64  `json:"product_id" gorm:"column:product_id;not null;default:0"`
	Quantity  int64  `json:"quantity" gorm:"not null;default:0"`

	Payload datatypes.JSON `json:"payload" gorm:"type:jsonb"`

	// ProcessingError carries the reason an acknowledged event could not be
	// applied, for operator reconciliation.
	ProcessingError *string `json:"processing_error,omitempty" gorm:"column:processing_error;type:text"`

	ReceivedAt  time.Time  `json:"received_at" gorm:"not null"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func (EventRecord) TableName() string { return "checkout_events" }
