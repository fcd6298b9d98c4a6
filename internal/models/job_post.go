package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Job post statuses. A post only moves forward: open -> in-progress -> closed.
const (
	JobStatusOpen       = "open"
	JobStatusInProgress = "in-progress"
	JobStatusClosed     = "closed"
)

// FileFormats lists the deliverable formats a job post may request.
var FileFormats = []string{"PDF", "DOCX", "PPTX", "XLSX", "JPG", "PNG", "MP4", "AVI", "MOV", "GIF"}

// JobPost is a unit of work offered by its owner.
type JobPost struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title           string         `gorm:"type:varchar(200);not null" json:"title"`
	Description     string         `gorm:"type:text;not null" json:"description"`
	FileFormat      string         `gorm:"type:varchar(8);not null" json:"file_format"`
	Budget          *float64       `gorm:"type:numeric(12,2)" json:"budget"`
	Deadline        time.Time      `gorm:"not null" json:"deadline"`
	VideoAttachment pq.StringArray `gorm:"type:text[]" json:"video_attachment"`
	Status          string         `gorm:"type:varchar(16);not null;default:open;index" json:"status"`
	UserID          uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	Owner           *PublicProfile `gorm:"foreignKey:UserID" json:"owner,omitempty"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
