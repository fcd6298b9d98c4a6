package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusRefunded  = "refunded"
)

// Payment records a payment intent opened for a job post.
type Payment struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Amount    float64        `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency  string         `gorm:"type:varchar(3);not null" json:"currency"`
	JobPostID uuid.UUID      `gorm:"type:uuid;index;not null" json:"job_post_id"`
	PayerID   uuid.UUID      `gorm:"type:uuid;index;not null" json:"payer_id"`
	Status    string         `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	IntentID  string         `gorm:"type:varchar(255);index" json:"intent_id"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
