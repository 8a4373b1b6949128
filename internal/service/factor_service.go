package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kitchenops/backend/internal/domain"
)

// FactorInput carries the editable fields of a seasonal factor
type FactorInput struct {
	Month       *int    `json:"month" validate:"omitempty,min=1,max=12"`
	Weekday     *int    `json:"weekday" validate:"omitempty,min=0,max=6"`
	PeriodOfDay *string `json:"period_of_day"`
	EventLabel  *string `json:"event_label"`
	MenuItemID  *int64  `json:"menu_item_id" validate:"omitempty,gt=0"`
	DishID      *int64  `json:"dish_id" validate:"omitempty,gt=0"`
	CategoryID  *int64  `json:"category_id" validate:"omitempty,gt=0"`
	Multiplier  float64 `json:"multiplier"`
	Description string  `json:"description" validate:"max=255"`
}

func (in FactorInput) factor(id uuid.UUID) domain.SeasonalFactor {
	return domain.SeasonalFactor{
		ID:          id,
		Month:       in.Month,
		Weekday:     in.Weekday,
		PeriodOfDay: in.PeriodOfDay,
		EventLabel:  in.EventLabel,
		MenuItemID:  in.MenuItemID,
		DishID:      in.DishID,
		CategoryID:  in.CategoryID,
		Multiplier:  in.Multiplier,
		Description: in.Description,
	}
}

// FactorService manages the seasonality registry's factors
type FactorService struct {
	repo   DataRepository
	logger *logrus.Logger
}

// NewFactorService creates a factor service
func NewFactorService(repo DataRepository, logger *logrus.Logger) *FactorService {
	return &FactorService{repo: repo, logger: logger}
}

// CreateFactor validates and stores a new factor
func (s *FactorService) CreateFactor(ctx context.Context, in FactorInput) (domain.SeasonalFactor, error) {
	f, err := s.check(ctx, in, uuid.New())
	if err != nil {
		return domain.SeasonalFactor{}, err
	}
	if err := s.repo.CreateFactor(ctx, &f); err != nil {
		return domain.SeasonalFactor{}, internal("factors: create", err)
	}
	s.log("CreateFactor", f)
	return f, nil
}

// UpdateFactor replaces every editable field of an existing factor
func (s *FactorService) UpdateFactor(ctx context.Context, id uuid.UUID, in FactorInput) (domain.SeasonalFactor, error) {
	f, err := s.check(ctx, in, id)
	if err != nil {
		return domain.SeasonalFactor{}, err
	}
	if err := s.repo.UpdateFactor(ctx, &f); err != nil {
		return domain.SeasonalFactor{}, internal("factors: update", err)
	}
	s.log("UpdateFactor", f)
	return f, nil
}

// DeleteFactor removes a factor
func (s *FactorService) DeleteFactor(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteFactor(ctx, id); err != nil {
		return internal("factors: delete", err)
	}
	return nil
}

// GetFactor returns one factor
func (s *FactorService) GetFactor(ctx context.Context, id uuid.UUID) (domain.SeasonalFactor, error) {
	f, err := s.repo.GetFactor(ctx, id)
	if err != nil {
		return domain.SeasonalFactor{}, internal("factors: get", err)
	}
	return f, nil
}

// ListFactors returns the factors passing filter
func (s *FactorService) ListFactors(ctx context.Context, filter domain.FactorFilter) ([]domain.SeasonalFactor, error) {
	if filter.Item != nil {
		if err := filter.Item.Validate(); err != nil {
			return nil, err
		}
	}
	out, err := s.repo.ListFactors(ctx, filter)
	if err != nil {
		return nil, internal("factors: list", err)
	}
	return out, nil
}

// check validates the input and that an item scope points at a real item
func (s *FactorService) check(ctx context.Context, in FactorInput, id uuid.UUID) (domain.SeasonalFactor, error) {
	if err := validateStruct(in); err != nil {
		return domain.SeasonalFactor{}, err
	}
	f := in.factor(id)
	if err := f.Validate(); err != nil {
		return domain.SeasonalFactor{}, err
	}

	var item *domain.ItemRef
	switch {
	case f.MenuItemID != nil:
		ref := domain.MenuItem(*f.MenuItemID)
		item = &ref
	case f.DishID != nil:
		ref := domain.Dish(*f.DishID)
		item = &ref
	}
	if item != nil {
		exists, err := domain.ItemExists(ctx, s.repo, *item)
		if err != nil {
			return domain.SeasonalFactor{}, internal("factors: item lookup", err)
		}
		if !exists {
			return domain.SeasonalFactor{}, fmt.Errorf("%w: %s does not exist", domain.ErrNotFound, item)
		}
	}
	return f, nil
}

func (s *FactorService) log(fn string, f domain.SeasonalFactor) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"module":     "service",
		"func":       fn,
		"factor_id":  f.ID,
		"multiplier": f.Multiplier,
	}).Info("seasonal factor saved")
}
