package recon

import (
	"errors"
	"time"
)

// Settlement is one payment-processor payout line covering a single day.
type Settlement struct {
	ID         int64     `json:"id"`
	Processor  string    `json:"processor"`
	SettledOn  time.Time `json:"settled_on"`
	GrossCents int64     `json:"gross_cents"`
	FeeCents   int64     `json:"fee_cents"`
	NetCents   int64     `json:"net_cents"`
	Reference  string    `json:"reference"`
	CreatedAt  time.Time `json:"created_at"`
}

// MatchStatus classifies one processor/day pair after reconciliation.
type MatchStatus string

const (
	// StatusMatched means settlement gross equals the sales total.
	StatusMatched MatchStatus = "matched"
	// StatusAmountMismatch means both sides exist but disagree.
	StatusAmountMismatch MatchStatus = "amount_mismatch"
	// StatusMissingSettlement means sales exist with no settlement line.
	StatusMissingSettlement MatchStatus = "missing_settlement"
	// StatusMissingSales means a settlement arrived for a day with no sales.
	StatusMissingSales MatchStatus = "missing_sales"
)

// MatchLine is the reconciliation verdict for one processor on one day.
type MatchLine struct {
	Processor       string      `json:"processor"`
	Day             time.Time   `json:"day"`
	SalesGrossCents int64       `json:"sales_gross_cents"`
	SettledCents    int64       `json:"settled_cents"`
	DeltaCents      int64       `json:"delta_cents"`
	Status          MatchStatus `json:"status"`
}

// Summary aggregates a reconciliation run over a date window.
type Summary struct {
	From               time.Time   `json:"from"`
	To                 time.Time   `json:"to"`
	Matched            int         `json:"matched"`
	AmountMismatches   int         `json:"amount_mismatches"`
	MissingSettlements int         `json:"missing_settlements"`
	MissingSales       int         `json:"missing_sales"`
	TotalDeltaCents    int64       `json:"total_delta_cents"`
	Lines              []MatchLine `json:"lines"`
}

type IngestRequest struct {
	Settlements []SettlementLine `json:"settlements" validate:"required,min=1,max=1000,dive"`
}

type SettlementLine struct {
	Processor  string    `json:"processor" validate:"required,max=50"`
	SettledOn  time.Time `json:"settled_on" validate:"required"`
	GrossCents int64     `json:"gross_cents" validate:"gte=0"`
	FeeCents   int64     `json:"fee_cents" validate:"gte=0"`
	NetCents   int64     `json:"net_cents"`
	Reference  string    `json:"reference" validate:"required,max=100"`
}

// IngestResult reports per-line outcomes; failed lines never abort the batch.
type IngestResult struct {
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Errors   []IngestError `json:"errors,omitempty"`
}

type IngestError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

var (
	ErrDuplicateReference = errors.New("settlement reference already ingested")
	ErrInvalidWindow      = errors.New("window start must precede end")
)
