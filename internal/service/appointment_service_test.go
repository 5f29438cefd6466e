package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/wellnest-api/internal/model"
)

type apptFixture struct {
	svc     *AppointmentService
	experts *memExperts
	events  *fakeEvents
	push    *fakePusher
	now     time.Time

	expert     *model.Expert
	expertUser uuid.UUID
	client     uuid.UUID
}

func newApptFixture(t *testing.T) *apptFixture {
	t.Helper()
	f := &apptFixture{
		experts:    newMemExperts(),
		events:     &fakeEvents{},
		push:       &fakePusher{},
		now:        time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		expertUser: uuid.New(),
		client:     uuid.New(),
	}
	f.svc = NewAppointmentService(newMemAppointments(f.experts), f.experts, f.events, f.push, quietLogger())
	f.svc.now = func() time.Time { return f.now }
	f.svc.async = func(fn func()) { fn() }

	f.expert = &model.Expert{
		UserID: f.expertUser, Name: "Dr. Lee", Specialization: "Sleep",
		SessionPrice: 4500, Currency: "USD", SessionMinutes: 50, IsAvailable: true,
	}
	if err := f.experts.Create(f.expert); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *apptFixture) book(t *testing.T, at time.Time) *model.Appointment {
	t.Helper()
	a, err := f.svc.Book(context.Background(), f.client, model.RoleUser, model.CreateAppointmentRequest{
		ExpertID: f.expert.ID, ScheduledAt: at,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	return a
}

func TestAppointmentService_Book(t *testing.T) {
	f := newApptFixture(t)
	a := f.book(t, f.now.Add(24*time.Hour))

	if a.Status != model.AppointmentPending || a.Price != 4500 || a.DurationMinutes != 50 {
		t.Errorf("appointment = %+v", a)
	}
	if len(f.push.sent) != 1 || f.push.sent[0].To != f.expertUser {
		t.Errorf("push = %+v, want one to expert", f.push.sent)
	}
	if len(f.events.sent) != 2 || f.events.sent[0].To != f.expertUser {
		t.Errorf("events = %+v", f.events.sent)
	}
}

func TestAppointmentService_BookRejects(t *testing.T) {
	f := newApptFixture(t)
	tomorrow := f.now.Add(24 * time.Hour)
	f.book(t, tomorrow)
	ctx := context.Background()

	tests := []struct {
		name   string
		user   uuid.UUID
		role   model.Role
		expert uuid.UUID
		at     time.Time
		want   error
	}{
		{"past", f.client, model.RoleUser, f.expert.ID, f.now.Add(-time.Minute), ErrPastAppointment},
		{"expert role", uuid.New(), model.RoleExpert, f.expert.ID, tomorrow.Add(3 * time.Hour), ErrForbidden},
		{"unknown expert", f.client, model.RoleUser, uuid.New(), tomorrow.Add(3 * time.Hour), ErrNotFound},
		{"overlap", uuid.New(), model.RoleUser, f.expert.ID, tomorrow.Add(30 * time.Minute), ErrSlotTaken},
		{"self booking", f.expertUser, model.RoleUser, f.expert.ID, tomorrow.Add(3 * time.Hour), ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Book(ctx, tt.user, tt.role, model.CreateAppointmentRequest{ExpertID: tt.expert, ScheduledAt: tt.at})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	// back to back is fine
	if _, err := f.svc.Book(ctx, uuid.New(), "", model.CreateAppointmentRequest{ExpertID: f.expert.ID, ScheduledAt: tomorrow.Add(50 * time.Minute)}); err != nil {
		t.Errorf("adjacent slot: %v", err)
	}
}

func TestAppointmentService_Lifecycle(t *testing.T) {
	f := newApptFixture(t)
	a := f.book(t, f.now.Add(24*time.Hour))

	if _, err := f.svc.Confirm(f.client, a.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("client confirm err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Complete(f.expertUser, a.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("complete pending err = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.svc.Confirm(uuid.New(), a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("stranger err = %v, want ErrNotFound", err)
	}

	got, err := f.svc.Confirm(f.expertUser, a.ID)
	if err != nil || got.Status != model.AppointmentConfirmed {
		t.Fatalf("Confirm = %+v, %v", got, err)
	}
	last := f.push.sent[len(f.push.sent)-1]
	if last.To != f.client || last.Push.Data["status"] != "confirmed" {
		t.Errorf("push = %+v, want confirmation to client", last)
	}

	got, err = f.svc.Cancel(f.client, a.ID)
	if err != nil || got.Status != model.AppointmentCancelled || got.CancelledBy == nil || *got.CancelledBy != f.client {
		t.Fatalf("Cancel = %+v, %v", got, err)
	}
	if last := f.push.sent[len(f.push.sent)-1]; last.To != f.expertUser {
		t.Errorf("cancel push to %v, want expert", last.To)
	}

	if _, err := f.svc.Cancel(f.expertUser, a.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancel twice err = %v", err)
	}

	// cancelled slot is free again
	f.book(t, a.ScheduledAt)
}

func TestAppointmentService_List(t *testing.T) {
	f := newApptFixture(t)
	f.book(t, f.now.Add(24*time.Hour))

	for _, who := range []uuid.UUID{f.client, f.expertUser} {
		got, err := f.svc.List(who)
		if err != nil || len(got) != 1 {
			t.Errorf("List(%v) = %d, %v", who, len(got), err)
		}
	}
	if got, _ := f.svc.List(uuid.New()); len(got) != 0 {
		t.Errorf("stranger sees %d", len(got))
	}
}
