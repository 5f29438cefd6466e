package model

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the booking lifecycle
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:   {AppointmentConfirmed, AppointmentCancelled},
	AppointmentConfirmed: {AppointmentCompleted, AppointmentCancelled},
}

// CanTransition reports whether a booking may move from s to next
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment is a booked session between a user and an expert
type Appointment struct {
	ID              uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID          uuid.UUID         `json:"user_id" gorm:"type:uuid;not null;index"`
	ExpertID        uuid.UUID         `json:"expert_id" gorm:"type:uuid;not null;index"`
	ScheduledAt     time.Time         `json:"scheduled_at" gorm:"not null;index"`
	DurationMinutes int               `json:"duration_minutes" gorm:"not null;default:60"`
	Status          AppointmentStatus `json:"status" gorm:"size:20;not null;default:'pending'"`
	Price           int64             `json:"price" gorm:"not null;default:0"`
	Currency        string            `json:"currency" gorm:"size:3;default:'USD'"`
	Notes           string            `json:"notes" gorm:"type:text"`
	CancelledBy     *uuid.UUID        `json:"cancelled_by,omitempty" gorm:"type:uuid"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`

	User   User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Expert Expert `json:"expert,omitempty" gorm:"foreignKey:ExpertID"`
}

// EndsAt returns the end of the booked slot
func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps reports whether two slots intersect
func (a *Appointment) Overlaps(start time.Time, minutes int) bool {
	end := start.Add(time.Duration(minutes) * time.Minute)
	return start.Before(a.EndsAt()) && a.ScheduledAt.Before(end)
}
