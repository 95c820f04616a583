// Package importer loads operator sales history from CSV exports. Column
// names vary across processor exports, so headers resolve through prioritized
// alias lists and monetary columns are classified as dollars or cents from the
// values themselves.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vendops/vendops/internal/rollup"
)

// chunkSize bounds each insert batch; chunks submit sequentially.
const chunkSize = 500

// SaleRow is one parsed CSV line ready for insertion.
type SaleRow struct {
	OccurredAt     time.Time
	MachineID      string
	LocationID     string
	ProductID      string
	Processor      string
	Quantity       int64
	UnitPriceCents int64
	UnitCostCents  int64
	FeeCents       int64
}

// RowError records one rejected line; a bad line never aborts the import.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// MoneyFormat classifies how a CSV column encodes amounts.
type MoneyFormat string

const (
	// FormatDollars means values carry a decimal separator and scale by 100.
	FormatDollars MoneyFormat = "dollars"
	// FormatCents means values are already integer minor units.
	FormatCents MoneyFormat = "cents"
	// FormatEmpty means the column never held a value.
	FormatEmpty MoneyFormat = "empty"
)

// Summary reports one import batch: what was inserted, what failed, and how
// each header and money column was interpreted so operators can verify the
// guesswork.
type Summary struct {
	BatchID      string                 `json:"batch_id"`
	TotalRows    int                    `json:"total_rows"`
	Inserted     int                    `json:"inserted"`
	Failed       int                    `json:"failed"`
	Columns      map[string]string      `json:"columns"`
	MoneyFormats map[string]MoneyFormat `json:"money_formats"`
	Errors       []RowError             `json:"errors,omitempty"`
}

// Repository persists parsed rows in batches.
type Repository interface {
	InsertSales(ctx context.Context, batchID string, rows []SaleRow) error
}

// CacheBumper invalidates cached reports after new rows land.
type CacheBumper interface {
	BumpCache(ctx context.Context) error
}

type Service struct {
	logger *slog.Logger
	repo   Repository
	bumper CacheBumper
}

func NewService(logger *slog.Logger, repo Repository, bumper CacheBumper) *Service {
	return &Service{logger: logger, repo: repo, bumper: bumper}
}

// column aliases, highest priority first.
var columnAliases = map[string][]string{
	"occurred_at": {"occurred_at", "timestamp", "date", "sale_date", "transaction_date"},
	"machine_id":  {"machine_id", "machine", "device_id", "terminal_id"},
	"location_id": {"location_id", "location", "site_id"},
	"product_id":  {"product_id", "product", "sku", "item"},
	"processor":   {"processor", "payment_processor", "card_processor"},
	"quantity":    {"quantity", "qty", "units", "vends"},
	"unit_price":  {"unit_price", "price", "unit_price_cents", "amount"},
	"unit_cost":   {"unit_cost", "cost", "unit_cost_cents"},
	"fee":         {"fee", "fees", "processor_fee", "fee_cents"},
}

var moneyColumns = []string{"unit_price", "unit_cost", "fee"}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ErrMissingTimestamp rejects files whose header has no recognisable
// timestamp column; everything else is optional.
var ErrMissingTimestamp = errors.New("no timestamp column found in header")

// Import parses the CSV stream and inserts the rows in sequential chunks.
func (s *Service) Import(ctx context.Context, r io.Reader) (*Summary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("importer: read header: %w", err)
	}
	columns := resolveColumns(header)
	if _, ok := columns["occurred_at"]; !ok {
		return nil, ErrMissingTimestamp
	}

	summary := &Summary{
		BatchID:      uuid.NewString(),
		Columns:      columns,
		MoneyFormats: make(map[string]MoneyFormat),
	}

	index := make(map[string]int)
	for logical, name := range columns {
		for i, h := range header {
			if normalizeHeader(h) == name {
				index[logical] = i
				break
			}
		}
	}

	var raw [][]string
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		raw = append(raw, record)
	}
	summary.TotalRows = len(raw) + summary.Failed

	classifyMoney(summary, raw, index)

	var pending []SaleRow
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := s.repo.InsertSales(ctx, summary.BatchID, pending); err != nil {
			return fmt.Errorf("importer: insert chunk: %w", err)
		}
		summary.Inserted += len(pending)
		pending = pending[:0]
		return nil
	}

	for i, record := range raw {
		row, err := parseRow(record, index)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, RowError{Line: i + 2, Message: err.Error()})
			continue
		}
		pending = append(pending, row)
		if len(pending) >= chunkSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if s.bumper != nil && summary.Inserted > 0 {
		if err := s.bumper.BumpCache(ctx); err != nil {
			s.logger.Warn("report cache bump failed", slog.Any("error", err))
		}
	}
	s.logger.Info("csv import finished",
		slog.String("batch_id", summary.BatchID),
		slog.Int("inserted", summary.Inserted),
		slog.Int("failed", summary.Failed))
	return summary, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.Trim(h, "\uFEFF")))
}

// resolveColumns maps logical column names to the actual headers, first alias
// match wins.
func resolveColumns(header []string) map[string]string {
	normalized := make(map[string]bool, len(header))
	for _, h := range header {
		normalized[normalizeHeader(h)] = true
	}
	columns := make(map[string]string)
	for logical, aliases := range columnAliases {
		for _, alias := range aliases {
			if normalized[alias] {
				columns[logical] = alias
				break
			}
		}
	}
	return columns
}

// classifyMoney inspects every value in each monetary column: one decimal
// separator anywhere marks the whole column as dollars. The per-value
// conversion below applies the same rule row by row; the summary records the
// column-level verdict so operators can audit it.
func classifyMoney(summary *Summary, raw [][]string, index map[string]int) {
	for _, logical := range moneyColumns {
		i, ok := index[logical]
		if !ok {
			continue
		}
		format := FormatEmpty
		for _, record := range raw {
			if i >= len(record) {
				continue
			}
			value := strings.TrimSpace(record[i])
			if value == "" {
				continue
			}
			if rollup.HasDecimalSeparator(value) {
				format = FormatDollars
				break
			}
			format = FormatCents
		}
		summary.MoneyFormats[summary.Columns[logical]] = format
	}
}

func parseRow(record []string, index map[string]int) (SaleRow, error) {
	field := func(logical string) string {
		i, ok := index[logical]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	at, err := parseTimestamp(field("occurred_at"))
	if err != nil {
		return SaleRow{}, err
	}

	row := SaleRow{
		OccurredAt: at,
		MachineID:  field("machine_id"),
		LocationID: field("location_id"),
		ProductID:  field("product_id"),
		Processor:  field("processor"),
		Quantity:   1,
	}
	if qty := field("quantity"); qty != "" {
		parsed, err := strconv.ParseInt(qty, 10, 64)
		if err != nil {
			return SaleRow{}, fmt.Errorf("bad quantity %q", qty)
		}
		if parsed < 0 {
			return SaleRow{}, fmt.Errorf("negative quantity %q", qty)
		}
		row.Quantity = parsed
	}
	row.UnitPriceCents = rollup.ToMinorUnits(field("unit_price"))
	row.UnitCostCents = rollup.ToMinorUnits(field("unit_cost"))
	row.FeeCents = rollup.ToMinorUnits(field("fee"))
	return row, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}
