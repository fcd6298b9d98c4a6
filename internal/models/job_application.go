package models

import (
	"time"

	"github.com/google/uuid"
)

// JobApplication is one user's bid on a job post. At most one per (post, user).
type JobApplication struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	JobPostID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_job_applications_post_user" json:"job_post_id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_job_applications_post_user;index" json:"user_id"`
	Message   string         `gorm:"type:text" json:"message"`
	Applicant *PublicProfile `gorm:"foreignKey:UserID" json:"applicant,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
