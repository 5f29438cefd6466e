package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/wellnest-api/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository handles database operations for User
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by UUID
func (r *UserRepository) FindByID(id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email (case-insensitive)
func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByPhone finds a user by phone number
func (r *UserRepository) FindByPhone(phone string) (*model.User, error) {
	var user model.User
	err := r.db.Where("phone = ?", strings.TrimSpace(phone)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIdentity looks up by email when given, otherwise by phone
func (r *UserRepository) FindByIdentity(email, phone string) (*model.User, error) {
	if strings.TrimSpace(email) != "" {
		return r.FindByEmail(email)
	}
	if strings.TrimSpace(phone) != "" {
		return r.FindByPhone(phone)
	}
	return nil, gorm.ErrRecordNotFound
}

// FindByGoogleID finds a user by Google OAuth ID
func (r *UserRepository) FindByGoogleID(googleID string) (*model.User, error) {
	var user model.User
	err := r.db.Where("google_id = ?", googleID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateOnlineStatus sets a user's online status and last seen time
func (r *UserRepository) UpdateOnlineStatus(id uuid.UUID, isOnline bool) error {
	updates := map[string]interface{}{
		"is_online": isOnline,
	}
	if !isOnline {
		updates["last_seen"] = gorm.Expr("NOW()")
	}
	return r.db.Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
}

// VerifyEmail marks user's email as verified
func (r *UserRepository) VerifyEmail(userID uuid.UUID) error {
	return r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("email_verified_at", time.Now()).Error
}

// UpdateRegistration rewrites the sign-up details of a user that has not
// verified yet
func (r *UserRepository) UpdateRegistration(user *model.User) error {
	return r.db.Model(&model.User{}).
		Where("id = ? AND email_verified_at IS NULL", user.ID).
		Updates(map[string]interface{}{
			"name":     user.Name,
			"phone":    user.Phone,
			"password": user.Password,
			"role":     user.Role,
		}).Error
}

// UpdatePassword updates a user's password
func (r *UserRepository) UpdatePassword(userID uuid.UUID, hashedPassword string) error {
	return r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("password", hashedPassword).Error
}

// UpdateAvatar updates a user's avatar URL
func (r *UserRepository) UpdateAvatar(userID uuid.UUID, avatarURL string) error {
	return r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("avatar", avatarURL).Error
}

// UpdateProfile applies the non-empty fields of req
func (r *UserRepository) UpdateProfile(userID uuid.UUID, req model.UpdateProfileRequest) error {
	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if req.IsNotificationEnabled != nil {
		updates["is_notification_enabled"] = *req.IsNotificationEnabled
	}
	if req.Language != "" {
		updates["language"] = req.Language
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&model.User{}).Where("id = ?", userID).Updates(updates).Error
}

// AddDevice adds or updates a device token
func (r *UserRepository) AddDevice(userID uuid.UUID, token string, deviceType model.DeviceType) error {
	device := model.UserDevice{
		UserID:       userID,
		FCMToken:     token,
		DeviceType:   deviceType,
		LastActiveAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "fcm_token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_active_at": time.Now(),
			"device_type":    deviceType,
		}),
	}).Create(&device).Error
}

// GetUserDevices gets all devices for a user
func (r *UserRepository) GetUserDevices(userID uuid.UUID) ([]model.UserDevice, error) {
	var devices []model.UserDevice
	err := r.db.Where("user_id = ?", userID).Find(&devices).Error
	return devices, err
}

// RemoveDevice drops a token FCM reported as unregistered
func (r *UserRepository) RemoveDevice(token string) error {
	return r.db.Where("fcm_token = ?", token).Delete(&model.UserDevice{}).Error
}

// GetOrCreateGoogleUser finds a user by email or creates one with the given role
func (r *UserRepository) GetOrCreateGoogleUser(info model.GoogleUserInfo, role model.Role) (*model.User, error) {
	user, err := r.FindByEmail(info.Email)
	if err == nil {
		updates := map[string]interface{}{}
		if user.GoogleID == nil || *user.GoogleID != info.GoogleID {
			id := info.GoogleID
			updates["google_id"] = &id
		}
		if !user.IsEmailVerified() && info.Verified {
			now := time.Now()
			updates["email_verified_at"] = &now
		}
		if user.Avatar == "" && info.Picture != "" {
			updates["avatar"] = info.Picture
		}
		if len(updates) > 0 {
			if err := r.db.Model(user).Updates(updates).Error; err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	googleID := info.GoogleID
	var verifiedAt *time.Time
	if info.Verified {
		now := time.Now()
		verifiedAt = &now
	}

	newUser := model.User{
		Email:                 info.Email,
		Name:                  info.Name,
		Avatar:                info.Picture,
		Role:                  role.OrDefault(),
		GoogleID:              &googleID,
		AuthProvider:          model.AuthProviderGoogle,
		EmailVerifiedAt:       verifiedAt,
		IsNotificationEnabled: true,
		Language:              "en",
	}
	if err := r.db.Create(&newUser).Error; err != nil {
		return nil, err
	}
	return &newUser, nil
}
