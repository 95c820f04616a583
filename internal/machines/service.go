package machines

import (
	"context"
	"errors"
	"fmt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateMachineRequest) (*Machine, error) {
	existing, err := s.repo.GetByCode(ctx, req.Code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check machine code: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateCode
	}

	id, err := s.repo.Create(ctx, Machine{
		Code:                 req.Code,
		Model:                req.Model,
		LocationID:           req.LocationID,
		AcquisitionCostCents: req.AcquisitionCostCents,
		Status:               StatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("create machine: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateMachineRequest) (*Machine, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get machine: %w", err)
	}

	updates := make(map[string]any)
	if req.Model != nil {
		updates["model"] = *req.Model
	}
	if req.LocationID != nil {
		updates["location_id"] = *req.LocationID
	}
	if req.AcquisitionCostCents != nil {
		updates["acquisition_cost_cents"] = *req.AcquisitionCostCents
	}
	if req.Status != nil {
		status := Status(*req.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, *req.Status)
		}
		updates["status"] = string(status)
	}
	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update machine: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Machine, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListMachinesRequest) ([]Machine, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// AcquisitionCosts exposes per-machine acquisition cost for ROI derivation.
func (s *Service) AcquisitionCosts(ctx context.Context) (map[string]int64, error) {
	return s.repo.AcquisitionCosts(ctx)
}
