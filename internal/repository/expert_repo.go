package repository

import (
	"strings"

	"github.com/google/uuid"
	"github.com/wellnest/wellnest-api/internal/model"
	"gorm.io/gorm"
)

// ExpertRepository handles database operations for Expert
type ExpertRepository struct {
	db *gorm.DB
}

func NewExpertRepository(db *gorm.DB) *ExpertRepository {
	return &ExpertRepository{db: db}
}

// Create inserts a new expert profile
func (r *ExpertRepository) Create(expert *model.Expert) error {
	return r.db.Create(expert).Error
}

// FindByID finds an expert by UUID
func (r *ExpertRepository) FindByID(id uuid.UUID) (*model.Expert, error) {
	var expert model.Expert
	if err := r.db.Where("id = ?", id).First(&expert).Error; err != nil {
		return nil, err
	}
	return &expert, nil
}

// FindByUserID finds the expert profile owned by a user
func (r *ExpertRepository) FindByUserID(userID uuid.UUID) (*model.Expert, error) {
	var expert model.Expert
	if err := r.db.Where("user_id = ?", userID).First(&expert).Error; err != nil {
		return nil, err
	}
	return &expert, nil
}

// List returns one page of experts matching the filter and the total count
func (r *ExpertRepository) List(f model.ExpertFilter) ([]model.Expert, int64, error) {
	q := r.db.Model(&model.Expert{})
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + s + "%"
		q = q.Where("name ILIKE ? OR specialization ILIKE ? OR bio ILIKE ?", like, like, like)
	}
	if s := strings.TrimSpace(f.Specialization); s != "" {
		q = q.Where("specialization ILIKE ?", s)
	}
	if f.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	experts := []model.Expert{}
	err := q.Order("rating DESC, created_at DESC").
		Offset(f.Offset()).
		Limit(f.Limit).
		Find(&experts).Error
	return experts, total, err
}

// Update applies a column map to an expert
func (r *ExpertRepository) Update(id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&model.Expert{}).Where("id = ?", id).Updates(updates).Error
}

// Delete soft-deletes an expert profile
func (r *ExpertRepository) Delete(id uuid.UUID) error {
	return r.db.Where("id = ?", id).Delete(&model.Expert{}).Error
}
