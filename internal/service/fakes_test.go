package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/wellnest/wellnest-api/internal/model"
	"github.com/wellnest/wellnest-api/internal/repository"
	"github.com/wellnest/wellnest-api/pkg/notification"
	"gorm.io/gorm"
)

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

// ---- users ----

type memUsers struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*model.User
	devices map[uuid.UUID][]model.UserDevice
	online  map[uuid.UUID]bool
}

func newMemUsers() *memUsers {
	return &memUsers{
		byID:    map[uuid.UUID]*model.User{},
		devices: map[uuid.UUID][]model.UserDevice{},
		online:  map[uuid.UUID]bool{},
	}
}

func (m *memUsers) Create(u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) find(match func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) FindByID(id uuid.UUID) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id })
}

func (m *memUsers) FindByEmail(email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return strings.EqualFold(u.Email, strings.TrimSpace(email)) })
}

func (m *memUsers) FindByPhone(phone string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Phone != nil && *u.Phone == phone })
}

func (m *memUsers) FindByIdentity(email, phone string) (*model.User, error) {
	if email != "" {
		return m.FindByEmail(email)
	}
	if phone != "" {
		return m.FindByPhone(phone)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) update(id uuid.UUID, f func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f(u)
	return nil
}

func (m *memUsers) VerifyEmail(id uuid.UUID) error {
	return m.update(id, func(u *model.User) { now := time.Now(); u.EmailVerifiedAt = &now })
}

func (m *memUsers) UpdateRegistration(user *model.User) error {
	return m.update(user.ID, func(u *model.User) {
		u.Name, u.Phone, u.Password, u.Role = user.Name, user.Phone, user.Password, user.Role
	})
}

func (m *memUsers) UpdatePassword(id uuid.UUID, hashed string) error {
	return m.update(id, func(u *model.User) { u.Password = hashed })
}

func (m *memUsers) UpdateAvatar(id uuid.UUID, url string) error {
	return m.update(id, func(u *model.User) { u.Avatar = url })
}

func (m *memUsers) UpdateProfile(id uuid.UUID, req model.UpdateProfileRequest) error {
	return m.update(id, func(u *model.User) {
		if req.Name != "" {
			u.Name = req.Name
		}
		if req.Phone != "" {
			p := req.Phone
			u.Phone = &p
		}
		if req.Language != "" {
			u.Language = req.Language
		}
	})
}

func (m *memUsers) UpdateOnlineStatus(id uuid.UUID, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[id] = online
	return nil
}

func (m *memUsers) AddDevice(id uuid.UUID, token string, deviceType model.DeviceType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[id] = append(m.devices[id], model.UserDevice{UserID: id, FCMToken: token, DeviceType: deviceType})
	return nil
}

func (m *memUsers) GetOrCreateGoogleUser(info model.GoogleUserInfo, role model.Role) (*model.User, error) {
	if u, err := m.FindByEmail(info.Email); err == nil {
		return u, nil
	}
	gid := info.GoogleID
	u := &model.User{Email: info.Email, Name: info.Name, GoogleID: &gid, Role: role.OrDefault(), AuthProvider: model.AuthProviderGoogle}
	return u, m.Create(u)
}

// ---- otp codes ----

type memOTPs struct {
	mu            sync.Mutex
	codes         []*model.OTPCode
	invalidateErr error
}

func (m *memOTPs) Create(o *model.OTPCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	m.codes = append(m.codes, o)
	return nil
}

func (m *memOTPs) FindValidOTP(userID uuid.UUID, code string, purpose model.OTPPurpose) (*model.OTPCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.codes) - 1; i >= 0; i-- {
		o := m.codes[i]
		if o.UserID == userID && o.Code == code && o.Purpose == purpose && o.ValidAt(time.Now()) {
			return o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memOTPs) MarkAsUsed(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.codes {
		if o.ID == id && o.UsedAt == nil {
			now := time.Now()
			o.UsedAt = &now
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memOTPs) InvalidateAllForUser(userID uuid.UUID, purpose model.OTPPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.invalidateErr != nil {
		return m.invalidateErr
	}
	for _, o := range m.codes {
		if o.UserID == userID && o.Purpose == purpose && o.UsedAt == nil {
			now := time.Now()
			o.UsedAt = &now
		}
	}
	return nil
}

func (m *memOTPs) CountRecentOTPs(userID uuid.UUID, purpose model.OTPPurpose, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.codes {
		if o.UserID == userID && o.Purpose == purpose && o.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

// ---- redis tokens ----

type memTokens struct {
	mu          sync.Mutex
	blacklisted map[string]time.Duration
	reset       map[string]uuid.UUID
}

func newMemTokens() *memTokens {
	return &memTokens{blacklisted: map[string]time.Duration{}, reset: map[string]uuid.UUID{}}
}

func (m *memTokens) Blacklist(_ context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blacklisted[token] = ttl
	return nil
}

func (m *memTokens) SaveResetToken(_ context.Context, token string, userID uuid.UUID, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[token] = userID
	return nil
}

func (m *memTokens) ConsumeResetToken(_ context.Context, token string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.reset[token]
	if !ok {
		return uuid.Nil, repository.ErrTokenNotFound
	}
	delete(m.reset, token)
	return id, nil
}

// ---- mailer ----

type sentCode struct {
	To, Code string
	Reset    bool
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentCode
}

func (f *fakeMailer) SendOTP(to, _, code string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentCode{To: to, Code: code})
	return nil
}

func (f *fakeMailer) SendPasswordReset(to, _, code string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentCode{To: to, Code: code, Reset: true})
	return nil
}

func (f *fakeMailer) last() sentCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentCode{}
	}
	return f.sent[len(f.sent)-1]
}

// ---- experts and appointments ----

type memExperts struct {
	mu      sync.Mutex
	experts map[uuid.UUID]*model.Expert
}

func newMemExperts() *memExperts {
	return &memExperts{experts: map[uuid.UUID]*model.Expert{}}
}

func (m *memExperts) Create(e *model.Expert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	m.experts[e.ID] = &cp
	return nil
}

func (m *memExperts) FindByID(id uuid.UUID) (*model.Expert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.experts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memExperts) FindByUserID(userID uuid.UUID) (*model.Expert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.experts {
		if e.UserID == userID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memExperts) List(f model.ExpertFilter) ([]model.Expert, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Expert
	for _, e := range m.experts {
		if f.Specialization != "" && !strings.EqualFold(e.Specialization, f.Specialization) {
			continue
		}
		all = append(all, *e)
	}
	total := int64(len(all))
	start := f.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *memExperts) Update(id uuid.UUID, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.experts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range updates {
		switch k {
		case "name":
			e.Name = v.(string)
		case "session_price":
			e.SessionPrice = v.(int64)
		case "is_available":
			e.IsAvailable = v.(bool)
		case "avatar":
			e.Avatar = v.(string)
		}
	}
	return nil
}

func (m *memExperts) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.experts, id)
	return nil
}

type memAppointments struct {
	mu      sync.Mutex
	experts *memExperts
	appts   map[uuid.UUID]*model.Appointment
}

func newMemAppointments(experts *memExperts) *memAppointments {
	return &memAppointments{experts: experts, appts: map[uuid.UUID]*model.Appointment{}}
}

func (m *memAppointments) CreateIfFree(a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.appts {
		if other.ExpertID == a.ExpertID && other.Status != model.AppointmentCancelled &&
			other.Overlaps(a.ScheduledAt, a.DurationMinutes) {
			return repository.ErrSlotTaken
		}
	}
	a.ID = uuid.New()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *memAppointments) FindByID(id uuid.UUID) (*model.Appointment, error) {
	m.mu.Lock()
	a, ok := m.appts[id]
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	if e, err := m.experts.FindByID(a.ExpertID); err == nil {
		cp.Expert = *e
	}
	return &cp, nil
}

func (m *memAppointments) ListForUser(userID uuid.UUID) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Appointment{}
	for _, a := range m.appts {
		e, _ := m.experts.FindByID(a.ExpertID)
		if a.UserID == userID || (e != nil && e.UserID == userID) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAppointments) UpdateStatus(id uuid.UUID, from, to model.AppointmentStatus, by *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return gorm.ErrRecordNotFound
	}
	a.Status = to
	if by != nil {
		b := *by
		a.CancelledBy = &b
	}
	return nil
}

// ---- notifications ----

type sentEvent struct {
	To    uuid.UUID
	Event *model.WSEvent
}

type fakeEvents struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (f *fakeEvents) SendToUser(userID uuid.UUID, e *model.WSEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEvent{To: userID, Event: e})
}

type sentPush struct {
	To   uuid.UUID
	Push notification.Push
}

type fakePusher struct {
	mu   sync.Mutex
	sent []sentPush
}

func (f *fakePusher) Send(_ context.Context, userID uuid.UUID, p notification.Push) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentPush{To: userID, Push: p})
	return nil
}
