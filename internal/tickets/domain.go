package tickets

import (
	"errors"
	"time"
)

// Status tracks the lifecycle of a maintenance ticket.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// Priority ranks how urgently a ticket needs attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Ticket is a maintenance issue raised against a machine.
type Ticket struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	MachineID   int64      `json:"machine_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	Assignee    string     `json:"assignee,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateTicketRequest struct {
	MachineID   int64  `json:"machine_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Priority    string `json:"priority" validate:"required,oneof=low medium high"`
	Assignee    string `json:"assignee" validate:"max=100"`
}

type UpdateStatusRequest struct {
	Status   string `json:"status" validate:"required,oneof=open in_progress closed"`
	Assignee string `json:"assignee" validate:"max=100"`
}

var (
	ErrNotFound        = errors.New("ticket not found")
	ErrInvalidStatus   = errors.New("invalid ticket status")
	ErrInvalidPriority = errors.New("invalid ticket priority")
	// ErrTicketClosed rejects status changes on tickets already closed.
	ErrTicketClosed = errors.New("ticket already closed")
)
