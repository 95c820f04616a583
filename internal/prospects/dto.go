package prospects

type CreateProspectRequest struct {
	BusinessName          string  `json:"business_name" validate:"required,max=200"`
	ContactName           *string `json:"contact_name,omitempty" validate:"omitempty,max=200"`
	Phone                 *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email                 *string `json:"email,omitempty" validate:"omitempty,email"`
	Source                *string `json:"source,omitempty" validate:"omitempty,max=100"`
	EstimatedMonthlyCents int64   `json:"estimated_monthly_cents" validate:"gte=0"`
	Notes                 *string `json:"notes,omitempty"`
}

type UpdateProspectRequest struct {
	BusinessName          *string `json:"business_name,omitempty" validate:"omitempty,max=200"`
	ContactName           *string `json:"contact_name,omitempty" validate:"omitempty,max=200"`
	Phone                 *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email                 *string `json:"email,omitempty" validate:"omitempty,email"`
	Source                *string `json:"source,omitempty" validate:"omitempty,max=100"`
	EstimatedMonthlyCents *int64  `json:"estimated_monthly_cents,omitempty" validate:"omitempty,gte=0"`
	Notes                 *string `json:"notes,omitempty"`
}

type MoveStageRequest struct {
	Stage      string `json:"stage" validate:"required"`
	LocationID *int64 `json:"location_id,omitempty" validate:"omitempty,gt=0"`
}

type ListProspectsRequest struct {
	Stage  *Stage  `json:"stage,omitempty"`
	Search *string `json:"search,omitempty"`
	Limit  int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset int     `json:"offset" validate:"gte=0"`
}
