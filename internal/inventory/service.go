package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vendops/vendops/internal/shared"
)

// ReportInvalidator drops cached reports when stock levels change.
type ReportInvalidator interface {
	BumpCache(ctx context.Context) error
}

type Service struct {
	repo        Repository
	invalidator ReportInvalidator
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetReportInvalidator is wired after construction; the report service reads
// stock levels from this service, so the two are built in that order.
func (s *Service) SetReportInvalidator(inv ReportInvalidator) {
	s.invalidator = inv
}

func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	existing, err := s.repo.GetProductBySKU(ctx, req.SKU)
	if err != nil && !errors.Is(err, ErrProductNotFound) {
		return nil, fmt.Errorf("check sku: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateSKU
	}

	id, err := s.repo.CreateProduct(ctx, Product{
		SKU:            req.SKU,
		Name:           req.Name,
		UnitPriceCents: req.UnitPriceCents,
		UnitCostCents:  req.UnitCostCents,
		IsActive:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	return s.repo.ListProducts(ctx, activeOnly)
}

func (s *Service) CreateSlot(ctx context.Context, req CreateSlotRequest) (*Slot, error) {
	if _, err := s.repo.GetProduct(ctx, req.ProductID); err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}
	id, err := s.repo.CreateSlot(ctx, Slot{
		MachineID: req.MachineID,
		Code:      req.Code,
		ProductID: req.ProductID,
		Capacity:  req.Capacity,
		ParLevel:  req.ParLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return s.repo.GetSlot(ctx, id)
}

func (s *Service) ListSlots(ctx context.Context, machineID int64) ([]Slot, error) {
	return s.repo.ListSlots(ctx, machineID)
}

// Restock refills a slot inside one transaction: the level update and the
// restock event either both land or neither does.
func (s *Service) Restock(ctx context.Context, req RestockRequest) (*RestockEvent, error) {
	principal := shared.PrincipalFromContext(ctx)
	event := RestockEvent{
		Reference: uuid.NewString(),
		SlotID:    req.SlotID,
		Quantity:  req.Quantity,
		Operator:  principal.Operator,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		slot, err := tx.GetSlotForUpdate(ctx, req.SlotID)
		if err != nil {
			return err
		}
		newLevel := slot.CurrentLevel + req.Quantity
		if newLevel > slot.Capacity {
			return fmt.Errorf("%w: level %d capacity %d", ErrOverCapacity, newLevel, slot.Capacity)
		}
		event.MachineID = slot.MachineID
		event.ProductID = slot.ProductID

		if err := tx.SetSlotLevel(ctx, slot.ID, newLevel); err != nil {
			return err
		}
		id, err := tx.InsertRestockEvent(ctx, event)
		if err != nil {
			return err
		}
		event.ID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("restock slot %d: %w", req.SlotID, err)
	}
	if s.invalidator != nil {
		// A failed bump only delays refresh until the cache TTL expires.
		_ = s.invalidator.BumpCache(ctx)
	}
	return &event, nil
}

// LowStock lists slots at or below par level.
func (s *Service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	return s.repo.ListLowStock(ctx)
}

// StockLevels exposes summed on-hand quantity per product for velocity reporting.
func (s *Service) StockLevels(ctx context.Context) (map[string]int64, error) {
	return s.repo.StockLevels(ctx)
}
