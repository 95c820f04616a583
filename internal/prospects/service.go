package prospects

import (
	"context"
	"fmt"
	"time"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateProspectRequest) (*Prospect, error) {
	p := Prospect{
		BusinessName:          req.BusinessName,
		ContactName:           req.ContactName,
		Phone:                 req.Phone,
		Email:                 req.Email,
		Source:                req.Source,
		Stage:                 StageNew,
		EstimatedMonthlyCents: req.EstimatedMonthlyCents,
		Notes:                 req.Notes,
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create prospect: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateProspectRequest) (*Prospect, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get prospect: %w", err)
	}

	updates := make(map[string]any)
	if req.BusinessName != nil {
		updates["business_name"] = *req.BusinessName
	}
	if req.ContactName != nil {
		updates["contact_name"] = *req.ContactName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Source != nil {
		updates["source"] = *req.Source
	}
	if req.EstimatedMonthlyCents != nil {
		updates["estimated_monthly_cents"] = *req.EstimatedMonthlyCents
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update prospect: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// MoveStage advances a prospect through the funnel. Decided prospects stay
// decided; winning a prospect records the location it converted into.
func (s *Service) MoveStage(ctx context.Context, id int64, req MoveStageRequest) (*Prospect, error) {
	stage := Stage(req.Stage)
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStage, req.Stage)
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get prospect: %w", err)
	}
	if existing.Stage.Decided() && stage != existing.Stage {
		return nil, ErrStageRegression
	}

	updates := map[string]any{"stage": string(stage)}
	if stage.Decided() {
		updates["decided_at"] = time.Now().UTC()
	}
	if stage == StageWon && req.LocationID != nil {
		updates["location_id"] = *req.LocationID
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("move prospect stage: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Prospect, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListProspectsRequest) ([]Prospect, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// Funnel returns per-stage counts for the prospect funnel report.
func (s *Service) Funnel(ctx context.Context) ([]StageCount, error) {
	return s.repo.CountByStage(ctx)
}
