package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/wellnest-api/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSlotTaken is returned when a booking overlaps an existing one
var ErrSlotTaken = errors.New("time slot overlaps an existing appointment")

// AppointmentRepository handles database operations for Appointment
type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// CreateIfFree inserts the appointment unless it overlaps another
// non-cancelled booking of the same expert. The expert row is locked so two
// concurrent bookings cannot both pass the check.
func (r *AppointmentRepository) CreateIfFree(appt *model.Appointment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var expert model.Expert
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", appt.ExpertID).
			First(&expert).Error; err != nil {
			return err
		}

		end := appt.EndsAt()
		var count int64
		err := tx.Model(&model.Appointment{}).
			Where("expert_id = ? AND status <> ?", appt.ExpertID, model.AppointmentCancelled).
			Where("scheduled_at < ? AND scheduled_at + (duration_minutes * INTERVAL '1 minute') > ?", end, appt.ScheduledAt).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSlotTaken
		}
		return tx.Create(appt).Error
	})
}

// FindByID finds an appointment with its expert
func (r *AppointmentRepository) FindByID(id uuid.UUID) (*model.Appointment, error) {
	var appt model.Appointment
	if err := r.db.Preload("Expert").Where("id = ?", id).First(&appt).Error; err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListForUser returns appointments where the user is the client or the expert
func (r *AppointmentRepository) ListForUser(userID uuid.UUID) ([]model.Appointment, error) {
	appts := []model.Appointment{}
	err := r.db.
		Preload("Expert").
		Preload("User").
		Joins("JOIN experts ON experts.id = appointments.expert_id").
		Where("appointments.user_id = ? OR experts.user_id = ?", userID, userID).
		Order("appointments.scheduled_at DESC").
		Find(&appts).Error
	return appts, err
}

// UpdateStatus moves an appointment from one status to another. Returns
// gorm.ErrRecordNotFound when the status changed underneath.
func (r *AppointmentRepository) UpdateStatus(id uuid.UUID, from, to model.AppointmentStatus, by *uuid.UUID) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if to == model.AppointmentCancelled && by != nil {
		updates["cancelled_by"] = *by
	}
	res := r.db.Model(&model.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
