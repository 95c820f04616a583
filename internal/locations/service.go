package locations

import (
	"context"
	"fmt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateLocationRequest) (*Location, error) {
	id, err := s.repo.Create(ctx, Location{
		Name:        req.Name,
		Address:     req.Address,
		City:        req.City,
		FootTraffic: req.FootTraffic,
		IsActive:    true,
		Notes:       req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateLocationRequest) (*Location, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.FootTraffic != nil {
		updates["foot_traffic"] = *req.FootTraffic
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update location: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Location, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListLocationsRequest) ([]Location, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}
