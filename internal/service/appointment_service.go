package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wellnest/wellnest-api/internal/model"
	"github.com/wellnest/wellnest-api/internal/repository"
	"github.com/wellnest/wellnest-api/pkg/notification"
	"gorm.io/gorm"
)

const pushTimeout = 10 * time.Second

// AppointmentStore persists bookings
type AppointmentStore interface {
	CreateIfFree(appt *model.Appointment) error
	FindByID(id uuid.UUID) (*model.Appointment, error)
	ListForUser(userID uuid.UUID) ([]model.Appointment, error)
	UpdateStatus(id uuid.UUID, from, to model.AppointmentStatus, by *uuid.UUID) error
}

// EventSender pushes realtime events to connected users
type EventSender interface {
	SendToUser(userID uuid.UUID, event *model.WSEvent)
}

// Pusher delivers mobile push notifications
type Pusher interface {
	Send(ctx context.Context, userID uuid.UUID, p notification.Push) error
}

// AppointmentService handles booking business logic
type AppointmentService struct {
	appts   AppointmentStore
	experts ExpertStore
	events  EventSender
	push    Pusher
	log     logrus.FieldLogger

	now   func() time.Time
	async func(func())
}

func NewAppointmentService(appts AppointmentStore, experts ExpertStore, events EventSender, push Pusher, log logrus.FieldLogger) *AppointmentService {
	return &AppointmentService{
		appts:   appts,
		experts: experts,
		events:  events,
		push:    push,
		log:     log,
		now:     time.Now,
		async:   func(f func()) { go f() },
	}
}

// Book creates a pending appointment for a client
func (s *AppointmentService) Book(ctx context.Context, userID uuid.UUID, role model.Role, req model.CreateAppointmentRequest) (*model.Appointment, error) {
	if role.OrDefault() != model.RoleUser {
		return nil, ErrForbidden
	}
	if !req.ScheduledAt.After(s.now()) {
		return nil, ErrPastAppointment
	}

	expert, err := s.experts.FindByID(req.ExpertID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if expert.UserID == userID {
		return nil, ErrForbidden
	}
	if !expert.IsAvailable {
		return nil, ErrExpertUnavailable
	}

	minutes := req.DurationMinutes
	if minutes == 0 {
		minutes = expert.SessionMinutes
	}
	if minutes == 0 {
		minutes = 60
	}

	appt := &model.Appointment{
		UserID:          userID,
		ExpertID:        expert.ID,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMinutes: minutes,
		Status:          model.AppointmentPending,
		Price:           expert.SessionPrice,
		Currency:        expert.Currency,
		Notes:           req.Notes,
	}
	if err := s.appts.CreateIfFree(appt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}
	appt.Expert = *expert

	s.notify(appt, userID, expert.UserID)
	return appt, nil
}

// List returns appointments where the caller is the client or the expert
func (s *AppointmentService) List(userID uuid.UUID) ([]model.Appointment, error) {
	return s.appts.ListForUser(userID)
}

// Confirm accepts a pending booking. Expert owner only.
func (s *AppointmentService) Confirm(userID, id uuid.UUID) (*model.Appointment, error) {
	return s.transition(userID, id, model.AppointmentConfirmed, expertOnly)
}

// Cancel withdraws a booking. Either party.
func (s *AppointmentService) Cancel(userID, id uuid.UUID) (*model.Appointment, error) {
	return s.transition(userID, id, model.AppointmentCancelled, eitherParty)
}

// Complete closes a confirmed booking. Expert owner only.
func (s *AppointmentService) Complete(userID, id uuid.UUID) (*model.Appointment, error) {
	return s.transition(userID, id, model.AppointmentCompleted, expertOnly)
}

type actorRule int

const (
	expertOnly actorRule = iota
	eitherParty
)

func (s *AppointmentService) transition(userID, id uuid.UUID, to model.AppointmentStatus, rule actorRule) (*model.Appointment, error) {
	appt, err := s.appts.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	expertUserID := appt.Expert.UserID
	isExpert := expertUserID == userID
	isClient := appt.UserID == userID
	switch {
	case !isExpert && !isClient:
		return nil, ErrNotFound
	case rule == expertOnly && !isExpert:
		return nil, ErrForbidden
	}

	if !appt.Status.CanTransition(to) {
		return nil, ErrInvalidTransition
	}

	var by *uuid.UUID
	if to == model.AppointmentCancelled {
		by = &userID
	}
	if err := s.appts.UpdateStatus(id, appt.Status, to, by); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	appt.Status = to
	appt.CancelledBy = by

	counterpart := appt.UserID
	if isClient {
		counterpart = expertUserID
	}
	s.notify(appt, userID, counterpart)
	return appt, nil
}

// notify tells the counterpart about a status change over WebSocket and push
func (s *AppointmentService) notify(appt *model.Appointment, actor, counterpart uuid.UUID) {
	event := &model.WSEvent{
		Type: model.WSEventAppointmentUpdated,
		Payload: model.AppointmentEvent{
			AppointmentID: appt.ID,
			Status:        appt.Status,
			ScheduledAt:   appt.ScheduledAt,
			ChangedBy:     actor,
		},
	}
	if s.events != nil {
		s.events.SendToUser(counterpart, event)
		s.events.SendToUser(actor, event)
	}

	if s.push == nil {
		return
	}
	p := notification.AppointmentPush(appt, appt.Expert.Name)
	s.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := s.push.Send(ctx, counterpart, p); err != nil {
			s.log.WithError(err).WithField("appointment_id", appt.ID).Warn("push notification failed")
		}
	})
}
