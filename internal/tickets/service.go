package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateTicketRequest) (*Ticket, error) {
	priority := Priority(req.Priority)
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, req.Priority)
	}

	id, err := s.repo.Create(ctx, Ticket{
		Code:        uuid.NewString(),
		MachineID:   req.MachineID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Status:      StatusOpen,
		Assignee:    req.Assignee,
	})
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Ticket, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Ticket, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves a ticket through its lifecycle. Closed tickets are
// final; reopening requires a new ticket so the maintenance history stays
// append-only.
func (s *Service) UpdateStatus(ctx context.Context, id int64, req UpdateStatusRequest) (*Ticket, error) {
	next := Status(req.Status)
	if !next.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusClosed {
		return nil, ErrTicketClosed
	}

	fields := map[string]any{"status": next}
	if req.Assignee != "" {
		fields["assignee"] = req.Assignee
	}
	if next == StatusClosed {
		fields["closed_at"] = time.Now().UTC()
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update ticket %d: %w", id, err)
	}
	return s.repo.Get(ctx, id)
}
