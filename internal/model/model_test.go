package model

import (
	"testing"
	"time"
)

func TestRoleOrDefault(t *testing.T) {
	for in, want := range map[Role]Role{
		"":       RoleUser,
		"User":   RoleUser,
		"Expert": RoleExpert,
		"Admin":  RoleUser,
		"expert": RoleUser,
	} {
		if got := in.OrDefault(); got != want {
			t.Errorf("Role(%q).OrDefault() = %q, want %q", in, got, want)
		}
	}
}

func TestAppointmentTransitions(t *testing.T) {
	tests := []struct {
		from, to AppointmentStatus
		ok       bool
	}{
		{AppointmentPending, AppointmentConfirmed, true},
		{AppointmentPending, AppointmentCancelled, true},
		{AppointmentPending, AppointmentCompleted, false},
		{AppointmentConfirmed, AppointmentCompleted, true},
		{AppointmentConfirmed, AppointmentCancelled, true},
		{AppointmentConfirmed, AppointmentPending, false},
		{AppointmentCancelled, AppointmentConfirmed, false},
		{AppointmentCompleted, AppointmentCancelled, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestAppointmentOverlaps(t *testing.T) {
	nine := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	a := &Appointment{ScheduledAt: nine, DurationMinutes: 60}

	tests := []struct {
		name    string
		start   time.Time
		minutes int
		want    bool
	}{
		{"same slot", nine, 60, true},
		{"starts inside", nine.Add(30 * time.Minute), 60, true},
		{"ends inside", nine.Add(-30 * time.Minute), 45, true},
		{"back to back after", nine.Add(time.Hour), 60, false},
		{"back to back before", nine.Add(-time.Hour), 60, false},
	}
	for _, tt := range tests {
		if got := a.Overlaps(tt.start, tt.minutes); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOTPCodeValidity(t *testing.T) {
	now := time.Now()
	otp := &OTPCode{ExpiresAt: now.Add(90 * time.Second)}

	if !otp.ValidAt(now) {
		t.Error("fresh code should be valid")
	}
	if got := otp.RemainingSeconds(now); got != 90 {
		t.Errorf("remaining = %d, want 90", got)
	}
	if otp.ValidAt(now.Add(90 * time.Second)) {
		t.Error("code valid at its expiry instant")
	}
	if got := otp.RemainingSeconds(now.Add(time.Hour)); got != 0 {
		t.Errorf("remaining after expiry = %d", got)
	}

	otp.UsedAt = &now
	if otp.ValidAt(now) {
		t.Error("used code should be invalid")
	}
}

func TestExpertFilterOffset(t *testing.T) {
	if got := (ExpertFilter{Page: 3, Limit: 20}).Offset(); got != 40 {
		t.Errorf("offset = %d, want 40", got)
	}
	if got := (ExpertFilter{Page: 0, Limit: 20}).Offset(); got != 0 {
		t.Errorf("offset for page 0 = %d", got)
	}
}

func TestUserToResponse(t *testing.T) {
	phone := "+15550100"
	u := &User{Name: "Ann", Phone: &phone}
	r := u.ToResponse()
	if r.Phone != phone || r.Role != RoleUser || r.EmailVerified {
		t.Errorf("response = %+v", r)
	}
}
