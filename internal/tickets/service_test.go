package tickets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	tickets map[int64]*Ticket
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{tickets: make(map[int64]*Ticket)}
}

func (r *memoryRepo) Get(_ context.Context, id int64) (*Ticket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *memoryRepo) List(_ context.Context, filter ListFilter) ([]Ticket, error) {
	var result []Ticket
	for _, t := range r.tickets {
		if filter.MachineID > 0 && t.MachineID != filter.MachineID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		result = append(result, *t)
	}
	return result, nil
}

func (r *memoryRepo) Create(_ context.Context, t Ticket) (int64, error) {
	r.nextID++
	t.ID = r.nextID
	r.tickets[t.ID] = &t
	return t.ID, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, fields map[string]any) error {
	t, ok := r.tickets[id]
	if !ok {
		return ErrNotFound
	}
	for col, val := range fields {
		switch col {
		case "status":
			t.Status = val.(Status)
		case "assignee":
			t.Assignee = val.(string)
		case "closed_at":
			closed := val.(time.Time)
			t.ClosedAt = &closed
		}
	}
	return nil
}

func TestCreateAssignsCodeAndOpenStatus(t *testing.T) {
	svc := NewService(newMemoryRepo())

	ticket, err := svc.Create(context.Background(), CreateTicketRequest{
		MachineID: 7,
		Title:     "coin mech jammed",
		Priority:  "high",
	})
	require.NoError(t, err)
	require.NotEmpty(t, ticket.Code)
	require.Equal(t, StatusOpen, ticket.Status)
	require.Equal(t, PriorityHigh, ticket.Priority)
}

func TestUpdateStatusProgression(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ticket, err := svc.Create(context.Background(), CreateTicketRequest{
		MachineID: 7, Title: "display dead", Priority: "medium",
	})
	require.NoError(t, err)

	moved, err := svc.UpdateStatus(context.Background(), ticket.ID, UpdateStatusRequest{
		Status: "in_progress", Assignee: "casey",
	})
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, moved.Status)
	require.Equal(t, "casey", moved.Assignee)
}

func TestClosedTicketIsFinal(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ticket, err := svc.Create(context.Background(), CreateTicketRequest{
		MachineID: 7, Title: "compressor noise", Priority: "low",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), ticket.ID, UpdateStatusRequest{Status: "closed"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), ticket.ID, UpdateStatusRequest{Status: "open"})
	require.ErrorIs(t, err, ErrTicketClosed)
}

func TestListFiltersByStatus(t *testing.T) {
	svc := NewService(newMemoryRepo())
	first, err := svc.Create(context.Background(), CreateTicketRequest{
		MachineID: 1, Title: "a", Priority: "low",
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateTicketRequest{
		MachineID: 2, Title: "b", Priority: "low",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), first.ID, UpdateStatusRequest{Status: "in_progress"})
	require.NoError(t, err)

	open, err := svc.List(context.Background(), ListFilter{Status: StatusOpen})
	require.NoError(t, err)
	require.Len(t, open, 1)

	_, err = svc.List(context.Background(), ListFilter{Status: "bogus"})
	require.ErrorIs(t, err, ErrInvalidStatus)
}
