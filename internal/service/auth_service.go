package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wellnest/wellnest-api/internal/model"
	"github.com/wellnest/wellnest-api/pkg/auth"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

const otpLength = 6

// UserStore is the user persistence the auth flows need
type UserStore interface {
	Create(user *model.User) error
	FindByID(id uuid.UUID) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	FindByPhone(phone string) (*model.User, error)
	FindByIdentity(email, phone string) (*model.User, error)
	VerifyEmail(userID uuid.UUID) error
	UpdateRegistration(user *model.User) error
	UpdatePassword(userID uuid.UUID, hashedPassword string) error
	UpdateAvatar(userID uuid.UUID, avatarURL string) error
	UpdateProfile(userID uuid.UUID, req model.UpdateProfileRequest) error
	UpdateOnlineStatus(id uuid.UUID, isOnline bool) error
	AddDevice(userID uuid.UUID, token string, deviceType model.DeviceType) error
	GetOrCreateGoogleUser(info model.GoogleUserInfo, role model.Role) (*model.User, error)
}

// OTPStore persists one-time codes
type OTPStore interface {
	Create(otp *model.OTPCode) error
	FindValidOTP(userID uuid.UUID, code string, purpose model.OTPPurpose) (*model.OTPCode, error)
	MarkAsUsed(otpID uuid.UUID) error
	InvalidateAllForUser(userID uuid.UUID, purpose model.OTPPurpose) error
	CountRecentOTPs(userID uuid.UUID, purpose model.OTPPurpose, since time.Time) (int64, error)
}

// TokenStore keeps revoked JWTs and reset tokens
type TokenStore interface {
	Blacklist(ctx context.Context, token string, ttl time.Duration) error
	SaveResetToken(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, token string) (uuid.UUID, error)
}

// CodeMailer delivers OTP codes
type CodeMailer interface {
	SendOTP(toEmail, username, code string, expiryMinutes int) error
	SendPasswordReset(toEmail, username, code string, expiryMinutes int) error
}

// TokenIssuer signs and validates access tokens
type TokenIssuer interface {
	GenerateToken(userID uuid.UUID, email, name, role string) (string, error)
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// AuthConfig tunes OTP and reset token lifetimes
type AuthConfig struct {
	OTPExpiry      time.Duration
	OTPMaxPerHour  int
	ResetTokenTTL  time.Duration
	GoogleClientID string
}

// AuthService handles authentication business logic
type AuthService struct {
	users  UserStore
	otps   OTPStore
	tokens TokenStore
	jwt    TokenIssuer
	mailer CodeMailer
	cfg    AuthConfig
	log    logrus.FieldLogger

	now          func() time.Time
	async        func(func())
	verifyGoogle func(ctx context.Context, idToken string) (*model.GoogleUserInfo, error)
}

func NewAuthService(
	users UserStore,
	otps OTPStore,
	tokens TokenStore,
	jwt TokenIssuer,
	mailer CodeMailer,
	cfg AuthConfig,
	log logrus.FieldLogger,
) *AuthService {
	s := &AuthService{
		users:  users,
		otps:   otps,
		tokens: tokens,
		jwt:    jwt,
		mailer: mailer,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		async:  func(f func()) { go f() },
	}
	s.verifyGoogle = s.verifyGoogleToken
	return s
}

// ==================== Register (Email + OTP) ====================

// Register creates a new unverified user account and sends OTP. Registering
// again before verification replaces the pending details and sends a fresh
// code.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.OTPSentResponse, error) {
	existing, err := s.users.FindByEmail(req.Email)
	switch {
	case err == nil:
		if existing.IsEmailVerified() {
			return nil, ErrEmailTaken
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		existing = nil
	default:
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	var phone *string
	if p := strings.TrimSpace(req.Phone); p != "" {
		owner, err := s.users.FindByPhone(p)
		if err == nil && (existing == nil || owner.ID != existing.ID) {
			return nil, ErrPhoneTaken
		}
		phone = &p
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	if existing != nil {
		existing.Name = strings.TrimSpace(req.Name)
		existing.Phone = phone
		existing.Password = string(hashed)
		existing.Role = req.Role.OrDefault()
		if err := s.users.UpdateRegistration(existing); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		s.log.WithField("user_id", existing.ID).Info("unverified registration replaced")
		return s.sendOTP(existing, model.OTPPurposeEmailVerification)
	}

	user := &model.User{
		Name:                  strings.TrimSpace(req.Name),
		Email:                 strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:                 phone,
		Password:              string(hashed),
		Role:                  req.Role.OrDefault(),
		AuthProvider:          model.AuthProviderEmail,
		IsNotificationEnabled: true,
		Language:              "en",
	}
	if err := s.users.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.sendOTP(user, model.OTPPurposeEmailVerification)
}

// VerifyOTP consumes a registration code, activates the account and signs the
// user in
func (s *AuthService) VerifyOTP(ctx context.Context, req model.VerifyOTPRequest) (*model.LoginResponse, error) {
	user, err := s.users.FindByIdentity(req.Email, req.Phone)
	if err != nil {
		return nil, ErrInvalidOTP
	}

	if err := s.consumeOTP(user.ID, req.Code, model.OTPPurposeEmailVerification); err != nil {
		return nil, err
	}

	if err := s.users.VerifyEmail(user.ID); err != nil {
		return nil, fmt.Errorf("failed to verify email: %w", err)
	}
	now := s.now()
	user.EmailVerifiedAt = &now

	return s.issue(user)
}

// ResendOTP generates and sends a new registration code
func (s *AuthService) ResendOTP(ctx context.Context, req model.ResendOTPRequest) (*model.OTPSentResponse, error) {
	user, err := s.users.FindByIdentity(req.Email, req.Phone)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if user.IsEmailVerified() {
		return nil, ErrAlreadyVerified
	}
	return s.sendOTP(user, model.OTPPurposeEmailVerification)
}

// ==================== Login ====================

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.FindByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.AuthProvider == model.AuthProviderGoogle && user.Password == "" {
		return nil, ErrGoogleAccount
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsEmailVerified() {
		return nil, ErrEmailNotVerified
	}

	return s.issue(user)
}

// LoginWithGoogle signs a user in with a Google ID token, creating the
// account on first use
func (s *AuthService) LoginWithGoogle(ctx context.Context, req model.GoogleLoginRequest) (*model.LoginResponse, error) {
	info, err := s.verifyGoogle(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetOrCreateGoogleUser(*info, req.Role)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return s.issue(user)
}

func (s *AuthService) verifyGoogleToken(ctx context.Context, tokenString string) (*model.GoogleUserInfo, error) {
	payload, err := idtoken.Validate(ctx, tokenString, s.cfg.GoogleClientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %w", err)
	}

	claims := payload.Claims
	email, ok := claims["email"].(string)
	if !ok {
		return nil, errors.New("email not found in token")
	}
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)
	verified, _ := claims["email_verified"].(bool)

	return &model.GoogleUserInfo{
		GoogleID: payload.Subject,
		Email:    email,
		Name:     name,
		Picture:  picture,
		Verified: verified,
	}, nil
}

// ==================== Forgot/Reset Password ====================

// ForgotPassword sends a password reset OTP. Unknown identities get the same
// answer as known ones.
func (s *AuthService) ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) (*model.OTPSentResponse, error) {
	user, err := s.users.FindByIdentity(req.Email, req.Phone)
	if err != nil {
		return &model.OTPSentResponse{
			Message:   "If the account exists, a reset code has been sent",
			Email:     req.Email,
			ExpiresIn: int(s.cfg.OTPExpiry.Seconds()),
		}, nil
	}
	if user.AuthProvider == model.AuthProviderGoogle && user.Password == "" {
		return nil, ErrGoogleAccount
	}
	return s.sendOTP(user, model.OTPPurposePasswordReset)
}

// VerifyResetOTP consumes a reset code and hands out a one-time reset token
func (s *AuthService) VerifyResetOTP(ctx context.Context, req model.VerifyResetOTPRequest) (*model.ResetTokenResponse, error) {
	user, err := s.users.FindByIdentity(req.Email, req.Phone)
	if err != nil {
		return nil, ErrInvalidOTP
	}

	if err := s.consumeOTP(user.ID, req.Code, model.OTPPurposePasswordReset); err != nil {
		return nil, err
	}

	token := uuid.NewString()
	if err := s.tokens.SaveResetToken(ctx, token, user.ID, s.cfg.ResetTokenTTL); err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	return &model.ResetTokenResponse{
		ResetToken: token,
		ExpiresIn:  int(s.cfg.ResetTokenTTL.Seconds()),
	}, nil
}

// ResetPassword spends a reset token and sets a new password
func (s *AuthService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	userID, err := s.tokens.ConsumeResetToken(ctx, req.ResetToken)
	if err != nil {
		return ErrInvalidResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash password")
	}
	if err := s.users.UpdatePassword(userID, string(hashed)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.otps.InvalidateAllForUser(userID, model.OTPPurposePasswordReset); err != nil {
		// the password is already changed; leftover codes expire on their own
		s.log.WithError(err).WithField("user_id", userID).Warn("failed to invalidate reset codes")
	}
	return nil
}

// ==================== Profile ====================

// GetProfile returns the current user's profile
func (s *AuthService) GetProfile(userID uuid.UUID) (*model.UserResponse, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	resp := user.ToResponse()
	return &resp, nil
}

// UpdateProfile updates the editable profile fields and, when given, the avatar
func (s *AuthService) UpdateProfile(userID uuid.UUID, req model.UpdateProfileRequest, avatarURL string) (*model.UserResponse, error) {
	if req.Phone != "" {
		if other, err := s.users.FindByPhone(req.Phone); err == nil && other.ID != userID {
			return nil, ErrPhoneTaken
		}
	}
	if err := s.users.UpdateProfile(userID, req); err != nil {
		return nil, err
	}
	if avatarURL != "" {
		if err := s.users.UpdateAvatar(userID, avatarURL); err != nil {
			return nil, err
		}
	}
	return s.GetProfile(userID)
}

// RegisterDevice registers a device for push notifications
func (s *AuthService) RegisterDevice(userID uuid.UUID, req model.RegisterDeviceRequest) error {
	return s.users.AddDevice(userID, req.FCMToken, req.DeviceType)
}

// SetOnline records presence reported by the realtime hub
func (s *AuthService) SetOnline(userID uuid.UUID, online bool) {
	if err := s.users.UpdateOnlineStatus(userID, online); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("failed to update presence")
	}
}

// Logout revokes the token until it expires and marks the user offline
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, tokenString string) error {
	claims, err := s.jwt.ValidateToken(tokenString)
	if err != nil {
		return err
	}
	if err := s.tokens.Blacklist(ctx, tokenString, claims.TTL(s.now())); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	s.SetOnline(userID, false)
	return nil
}

// ==================== Internal Helpers ====================

func (s *AuthService) issue(user *model.User) (*model.LoginResponse, error) {
	role := user.Role.OrDefault()
	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Name, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &model.LoginResponse{
		Token: token,
		Role:  role,
		User:  user.ToResponse(),
	}, nil
}

func (s *AuthService) consumeOTP(userID uuid.UUID, code string, purpose model.OTPPurpose) error {
	otp, err := s.otps.FindValidOTP(userID, code, purpose)
	if err != nil {
		return ErrInvalidOTP
	}
	if err := s.otps.MarkAsUsed(otp.ID); err != nil {
		// lost a race with another request for the same code
		return ErrInvalidOTP
	}
	return nil
}

// sendOTP generates a code, saves it, and emails it
func (s *AuthService) sendOTP(user *model.User, purpose model.OTPPurpose) (*model.OTPSentResponse, error) {
	count, err := s.otps.CountRecentOTPs(user.ID, purpose, s.now().Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to check OTP rate: %w", err)
	}
	if count >= int64(s.cfg.OTPMaxPerHour) {
		return nil, ErrOTPRateLimited
	}

	if err := s.otps.InvalidateAllForUser(user.ID, purpose); err != nil {
		return nil, fmt.Errorf("failed to invalidate old codes: %w", err)
	}

	code, err := generateOTPCode(otpLength)
	if err != nil {
		return nil, errors.New("failed to generate OTP code")
	}

	otp := &model.OTPCode{
		UserID:    user.ID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(s.cfg.OTPExpiry),
	}
	if err := s.otps.Create(otp); err != nil {
		return nil, fmt.Errorf("failed to save OTP: %w", err)
	}

	minutes := int(s.cfg.OTPExpiry.Minutes())
	email, name := user.Email, user.Name
	s.async(func() {
		var err error
		switch purpose {
		case model.OTPPurposeEmailVerification:
			err = s.mailer.SendOTP(email, name, code, minutes)
		case model.OTPPurposePasswordReset:
			err = s.mailer.SendPasswordReset(email, name, code, minutes)
		}
		if err != nil {
			s.log.WithError(err).WithField("purpose", purpose).Error("❌ Failed to send OTP email")
		}
	})

	msg := "Verification code sent to your email"
	if purpose == model.OTPPurposePasswordReset {
		msg = "Reset code sent to your email"
	}
	return &model.OTPSentResponse{
		Message:   msg,
		Email:     user.Email,
		ExpiresIn: int(s.cfg.OTPExpiry.Seconds()),
	}, nil
}

// generateOTPCode generates a cryptographically secure random numeric code
func generateOTPCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
