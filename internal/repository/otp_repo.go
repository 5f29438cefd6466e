package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/wellnest-api/internal/model"
	"gorm.io/gorm"
)

// OTPRepository stores one-time codes in PostgreSQL
type OTPRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db, now: time.Now}
}

func (r *OTPRepository) Create(otp *model.OTPCode) error {
	return r.db.Create(otp).Error
}

// FindValidOTP returns the newest unconsumed, unexpired code matching code
func (r *OTPRepository) FindValidOTP(userID uuid.UUID, code string, purpose model.OTPPurpose) (*model.OTPCode, error) {
	var otp model.OTPCode
	err := r.db.
		Where("user_id = ? AND purpose = ? AND code = ?", userID, purpose, code).
		Where("used_at IS NULL AND expires_at > ?", r.now()).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// MarkAsUsed consumes a code. Returns gorm.ErrRecordNotFound when another
// request consumed it first.
func (r *OTPRepository) MarkAsUsed(otpID uuid.UUID) error {
	res := r.db.Model(&model.OTPCode{}).
		Where("id = ? AND used_at IS NULL", otpID).
		Update("used_at", r.now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// InvalidateAllForUser retires every open code of purpose, so only the code
// sent next can be used
func (r *OTPRepository) InvalidateAllForUser(userID uuid.UUID, purpose model.OTPPurpose) error {
	return r.db.Model(&model.OTPCode{}).
		Where("user_id = ? AND purpose = ? AND used_at IS NULL", userID, purpose).
		Update("used_at", r.now()).Error
}

// CountRecentOTPs counts codes issued since the given time
func (r *OTPRepository) CountRecentOTPs(userID uuid.UUID, purpose model.OTPPurpose, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.OTPCode{}).
		Where("user_id = ? AND purpose = ? AND created_at > ?", userID, purpose, since).
		Count(&count).Error
	return count, err
}

// CleanupExpired deletes codes that expired more than retention ago.
// Retention must exceed the send rate window or CountRecentOTPs undercounts.
func (r *OTPRepository) CleanupExpired(retention time.Duration) (int64, error) {
	cutoff := r.now().Add(-retention)
	res := r.db.
		Where("expires_at < ? AND created_at < ?", cutoff, cutoff).
		Delete(&model.OTPCode{})
	return res.RowsAffected, res.Error
}
