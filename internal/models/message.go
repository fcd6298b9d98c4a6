package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a direct message between two users. Only IsRead ever changes.
type Message struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	SenderID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_messages_pair,priority:1" json:"sender_id"`
	ReceiverID uuid.UUID      `gorm:"type:uuid;not null;index:idx_messages_pair,priority:2" json:"receiver_id"`
	IsRead     bool           `gorm:"not null;default:false" json:"is_read"`
	Sender     *PublicProfile `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver   *PublicProfile `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
