package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User is a marketplace profile. Credentials live in the identity store;
// PasswordHash here mirrors the registration hash and is never serialized.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name           string         `gorm:"not null" json:"name" validate:"required"`
	Email          string         `gorm:"uniqueIndex:uq_users_email;not null" json:"email" validate:"required,email"`
	PasswordHash   string         `gorm:"not null" json:"-"`
	ProfilePic     string         `gorm:"type:text" json:"profile_pic"`
	Bio            string         `gorm:"type:text" json:"bio"`
	Skills         pq.StringArray `gorm:"type:text[]" json:"skills"`
	PortfolioURL   string         `gorm:"type:text" json:"portfolio_url"`
	ContactDisplay bool           `gorm:"not null;default:true" json:"contact_display"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// PublicProfile is the subset of a user embedded in other resources.
type PublicProfile struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string         `json:"name"`
	ProfilePic   string         `json:"profile_pic"`
	Bio          string         `json:"bio,omitempty"`
	Skills       pq.StringArray `gorm:"type:text[]" json:"skills,omitempty"`
	PortfolioURL string         `json:"portfolio_url,omitempty"`
}

func (PublicProfile) TableName() string { return "users" }

// SummaryColumns are the columns loaded for list embeds.
var SummaryColumns = []string{"id", "name", "profile_pic"}

// ProfileColumns are the columns loaded for detail embeds.
var ProfileColumns = []string{"id", "name", "profile_pic", "bio", "skills", "portfolio_url"}
