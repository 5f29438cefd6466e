package notification

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wellnest/wellnest-api/internal/model"
	"google.golang.org/api/option"
)

// DeviceStore gives the notifier access to a user's preferences and devices
type DeviceStore interface {
	FindByID(id uuid.UUID) (*model.User, error)
	GetUserDevices(userID uuid.UUID) ([]model.UserDevice, error)
	RemoveDevice(token string) error
}

// Push is one notification addressed to a single user
type Push struct {
	Title string
	Body  string
	Data  map[string]string
}

type multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// NotificationService handles FCM notifications. A nil service is valid and
// sends nothing.
type NotificationService struct {
	client  multicaster
	devices DeviceStore
	log     logrus.FieldLogger
}

// NewNotificationService creates a new FCM notification service. Returns nil
// when Firebase is not configured so the server keeps running without push.
func NewNotificationService(credentialsFile string, devices DeviceStore, log logrus.FieldLogger) *NotificationService {
	if credentialsFile == "" {
		log.Warn("⚠️ Firebase credentials not provided, push notifications disabled")
		return nil
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		log.WithError(err).Warn("⚠️ Failed to initialize Firebase app, push notifications disabled")
		return nil
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		log.WithError(err).Warn("⚠️ Failed to get messaging client, push notifications disabled")
		return nil
	}

	log.Info("✅ Firebase FCM initialized")
	return &NotificationService{client: client, devices: devices, log: log}
}

// Send delivers a push to every registered device of a user
func (s *NotificationService) Send(ctx context.Context, userID uuid.UUID, p Push) error {
	if s == nil || s.client == nil {
		return nil
	}

	user, err := s.devices.FindByID(userID)
	if err != nil {
		return err
	}
	if !user.IsNotificationEnabled {
		return nil
	}

	devices, err := s.devices.GetUserDevices(userID)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.FCMToken)
	}

	br, err := s.client.SendEachForMulticast(ctx, buildMessage(tokens, p))
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	for idx, resp := range br.Responses {
		if resp.Success {
			continue
		}
		if messaging.IsUnregistered(resp.Error) {
			if err := s.devices.RemoveDevice(tokens[idx]); err != nil {
				s.log.WithError(err).Warn("failed to drop unregistered device")
			}
			continue
		}
		s.log.WithError(resp.Error).WithField("user_id", userID).Warn("⚠️ FCM delivery failed")
	}
	return nil
}

// AppointmentPush describes a booking status change for the counterpart
func AppointmentPush(appt *model.Appointment, expertName string) Push {
	var body string
	switch appt.Status {
	case model.AppointmentPending:
		body = "New booking request for " + appt.ScheduledAt.UTC().Format("Jan 2, 15:04 UTC")
	case model.AppointmentConfirmed:
		body = expertName + " confirmed your session"
	case model.AppointmentCancelled:
		body = "Session on " + appt.ScheduledAt.UTC().Format("Jan 2, 15:04 UTC") + " was cancelled"
	case model.AppointmentCompleted:
		body = "Your session with " + expertName + " is complete"
	default:
		body = "Your appointment was updated"
	}
	return Push{
		Title: "WellNest",
		Body:  body,
		Data: map[string]string{
			"type":           model.WSEventAppointmentUpdated,
			"appointment_id": appt.ID.String(),
			"status":         string(appt.Status),
		},
	}
}

func buildMessage(tokens []string, p Push) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: p.Title,
			Body:  p.Body,
		},
		Data: p.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
}
