package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wellnest/wellnest-api/internal/model"
	"gorm.io/gorm"
)

const maxExpertPageSize = 50

// ExpertStore persists expert profiles
type ExpertStore interface {
	Create(expert *model.Expert) error
	FindByID(id uuid.UUID) (*model.Expert, error)
	FindByUserID(userID uuid.UUID) (*model.Expert, error)
	List(f model.ExpertFilter) ([]model.Expert, int64, error)
	Update(id uuid.UUID, updates map[string]interface{}) error
	Delete(id uuid.UUID) error
}

// ExpertService handles expert profile business logic
type ExpertService struct {
	experts ExpertStore
}

func NewExpertService(experts ExpertStore) *ExpertService {
	return &ExpertService{experts: experts}
}

// List returns one page of experts. Limit is clamped to 1..50.
func (s *ExpertService) List(q model.ListExpertsQuery) (*model.ExpertListResponse, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > maxExpertPageSize {
		limit = maxExpertPageSize
	}

	experts, total, err := s.experts.List(model.ExpertFilter{
		Query:          q.Q,
		Specialization: q.Specialization,
		Page:           page,
		Limit:          limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list experts: %w", err)
	}
	return &model.ExpertListResponse{Experts: experts, Total: total, Page: page, Limit: limit}, nil
}

// Get returns a single expert
func (s *ExpertService) Get(id uuid.UUID) (*model.Expert, error) {
	expert, err := s.experts.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return expert, nil
}

// Create registers the caller's expert profile. One profile per user.
func (s *ExpertService) Create(userID uuid.UUID, role model.Role, req model.CreateExpertRequest) (*model.Expert, error) {
	if role != model.RoleExpert {
		return nil, ErrForbidden
	}
	if _, err := s.experts.FindByUserID(userID); err == nil {
		return nil, ErrExpertExists
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}
	minutes := req.SessionMinutes
	if minutes == 0 {
		minutes = 60
	}

	expert := &model.Expert{
		UserID:          userID,
		Name:            strings.TrimSpace(req.Name),
		Specialization:  strings.TrimSpace(req.Specialization),
		Bio:             req.Bio,
		ExperienceYears: req.ExperienceYears,
		SessionPrice:    req.SessionPrice,
		Currency:        currency,
		SessionMinutes:  minutes,
		Languages:       req.Languages,
		IsAvailable:     true,
	}
	if err := s.experts.Create(expert); err != nil {
		return nil, fmt.Errorf("failed to create expert: %w", err)
	}
	return expert, nil
}

// Update changes the caller's own expert profile
func (s *ExpertService) Update(userID, id uuid.UUID, req model.UpdateExpertRequest) (*model.Expert, error) {
	if _, err := s.owned(userID, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Specialization != nil {
		updates["specialization"] = strings.TrimSpace(*req.Specialization)
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.ExperienceYears != nil {
		updates["experience_years"] = *req.ExperienceYears
	}
	if req.SessionPrice != nil {
		updates["session_price"] = *req.SessionPrice
	}
	if req.SessionMinutes != nil {
		updates["session_minutes"] = *req.SessionMinutes
	}
	if req.Languages != nil {
		updates["languages"] = *req.Languages
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}

	if err := s.experts.Update(id, updates); err != nil {
		return nil, fmt.Errorf("failed to update expert: %w", err)
	}
	return s.Get(id)
}

// Delete removes the caller's own expert profile
func (s *ExpertService) Delete(userID, id uuid.UUID) error {
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	return s.experts.Delete(id)
}

// CheckOwner returns the expert when userID owns it
func (s *ExpertService) CheckOwner(userID, id uuid.UUID) (*model.Expert, error) {
	return s.owned(userID, id)
}

// SetAvatar stores the uploaded avatar URL on the caller's profile
func (s *ExpertService) SetAvatar(userID, id uuid.UUID, url string) (*model.Expert, error) {
	if _, err := s.owned(userID, id); err != nil {
		return nil, err
	}
	if err := s.experts.Update(id, map[string]interface{}{"avatar": url}); err != nil {
		return nil, err
	}
	return s.Get(id)
}

func (s *ExpertService) owned(userID, id uuid.UUID) (*model.Expert, error) {
	expert, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if expert.UserID != userID {
		return nil, ErrForbidden
	}
	return expert, nil
}
