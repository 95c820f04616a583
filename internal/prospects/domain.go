package prospects

import (
	"errors"
	"time"
)

// Stage enumerates the lead funnel stages.
type Stage string

const (
	StageNew       Stage = "new"
	StageContacted Stage = "contacted"
	StageVisited   Stage = "visited"
	StageWon       Stage = "won"
	StageLost      Stage = "lost"
)

// Stages lists funnel stages in pipeline order.
func Stages() []Stage {
	return []Stage{StageNew, StageContacted, StageVisited, StageWon, StageLost}
}

// Valid reports whether the stage is a known funnel stage.
func (s Stage) Valid() bool {
	switch s {
	case StageNew, StageContacted, StageVisited, StageWon, StageLost:
		return true
	}
	return false
}

// Decided reports whether the stage is a terminal outcome.
func (s Stage) Decided() bool {
	return s == StageWon || s == StageLost
}

// Prospect is one tracked lead for a potential machine location.
type Prospect struct {
	ID                    int64      `json:"id"`
	BusinessName          string     `json:"business_name"`
	ContactName           *string    `json:"contact_name,omitempty"`
	Phone                 *string    `json:"phone,omitempty"`
	Email                 *string    `json:"email,omitempty"`
	Source                *string    `json:"source,omitempty"`
	Stage                 Stage      `json:"stage"`
	EstimatedMonthlyCents int64      `json:"estimated_monthly_cents"`
	LocationID            *int64     `json:"location_id,omitempty"`
	Notes                 *string    `json:"notes,omitempty"`
	DecidedAt             *time.Time `json:"decided_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// StageCount is the per-stage tally behind the funnel report.
type StageCount struct {
	Stage Stage `json:"stage"`
	Count int64 `json:"count"`
}

var (
	ErrNotFound     = errors.New("prospect not found")
	ErrInvalidStage = errors.New("invalid funnel stage")
	// ErrStageRegression rejects moving a decided prospect back into the pipeline.
	ErrStageRegression = errors.New("prospect already decided")
)
