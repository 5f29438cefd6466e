package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Expert is the public profile of a practitioner that users can book
type Expert struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID          uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`
	Name            string         `json:"name" gorm:"size:100;not null"`
	Specialization  string         `json:"specialization" gorm:"size:100;not null;index"`
	Bio             string         `json:"bio" gorm:"type:text"`
	ExperienceYears int            `json:"experience_years" gorm:"default:0"`
	SessionPrice    int64          `json:"session_price" gorm:"not null;default:0"` // minor units
	Currency        string         `json:"currency" gorm:"size:3;default:'USD'"`
	SessionMinutes  int            `json:"session_minutes" gorm:"default:60"`
	Languages       string         `json:"languages" gorm:"size:255"` // comma separated
	Rating          float64        `json:"rating" gorm:"default:0"`
	ReviewCount     int            `json:"review_count" gorm:"default:0"`
	Avatar          string         `json:"avatar" gorm:"size:500;default:''"`
	IsAvailable     bool           `json:"is_available" gorm:"default:true"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

// ExpertFilter narrows an expert listing
type ExpertFilter struct {
	Query          string
	Specialization string
	AvailableOnly  bool
	Page           int
	Limit          int
}

// Offset returns the row offset for the page
func (f ExpertFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
