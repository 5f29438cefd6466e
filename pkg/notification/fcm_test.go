package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/wellnest/wellnest-api/internal/model"
)

type fakeDevices struct {
	user    model.User
	devices []model.UserDevice
	removed []string
}

func (f *fakeDevices) FindByID(uuid.UUID) (*model.User, error) { return &f.user, nil }

func (f *fakeDevices) GetUserDevices(uuid.UUID) ([]model.UserDevice, error) {
	return f.devices, nil
}

func (f *fakeDevices) RemoveDevice(token string) error {
	f.removed = append(f.removed, token)
	return nil
}

type fakeFCM struct {
	got  *messaging.MulticastMessage
	resp *messaging.BatchResponse
}

func (f *fakeFCM) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.got = m
	return f.resp, nil
}

func TestNilServiceIsNoop(t *testing.T) {
	var s *NotificationService
	if err := s.Send(context.Background(), uuid.New(), Push{}); err != nil {
		t.Fatalf("Send on nil service: %v", err)
	}
}

func TestSend_RespectsPreference(t *testing.T) {
	log, _ := test.NewNullLogger()
	fcm := &fakeFCM{}
	devices := &fakeDevices{
		user:    model.User{IsNotificationEnabled: false},
		devices: []model.UserDevice{{FCMToken: "t1"}},
	}
	s := &NotificationService{client: fcm, devices: devices, log: log}

	if err := s.Send(context.Background(), uuid.New(), Push{Title: "x"}); err != nil {
		t.Fatal(err)
	}
	if fcm.got != nil {
		t.Error("push sent to a user with notifications disabled")
	}
}

func TestSend_DeliversToEveryDevice(t *testing.T) {
	log, hook := test.NewNullLogger()
	fcm := &fakeFCM{resp: &messaging.BatchResponse{
		Responses: []*messaging.SendResponse{
			{Success: true},
			{Success: false, Error: errors.New("quota exceeded")},
		},
	}}
	devices := &fakeDevices{
		user:    model.User{IsNotificationEnabled: true},
		devices: []model.UserDevice{{FCMToken: "t1"}, {FCMToken: "t2"}},
	}
	s := &NotificationService{client: fcm, devices: devices, log: log}

	if err := s.Send(context.Background(), uuid.New(), Push{Title: "WellNest", Body: "hi"}); err != nil {
		t.Fatal(err)
	}
	if fcm.got == nil || len(fcm.got.Tokens) != 2 {
		t.Fatalf("message = %+v", fcm.got)
	}
	if len(devices.removed) != 0 {
		t.Errorf("removed = %v, want none", devices.removed)
	}
	if len(hook.AllEntries()) != 1 {
		t.Errorf("log entries = %d, want 1 failure warning", len(hook.AllEntries()))
	}
}

func TestAppointmentPush(t *testing.T) {
	appt := &model.Appointment{
		ID:          uuid.New(),
		Status:      model.AppointmentConfirmed,
		ScheduledAt: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}
	p := AppointmentPush(appt, "Dr. Lee")
	if p.Body != "Dr. Lee confirmed your session" {
		t.Errorf("Body = %q", p.Body)
	}
	if p.Data["status"] != "confirmed" || p.Data["appointment_id"] != appt.ID.String() {
		t.Errorf("Data = %v", p.Data)
	}
}
