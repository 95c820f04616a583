package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	products map[int64]*Product
	slots    map[int64]*Slot
	events   []RestockEvent
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products: make(map[int64]*Product),
		slots:    make(map[int64]*Slot),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetProduct(_ context.Context, id int64) (*Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memoryRepo) GetProductBySKU(_ context.Context, sku string) (*Product, error) {
	for _, p := range r.products {
		if p.SKU == sku {
			copied := *p
			return &copied, nil
		}
	}
	return nil, ErrProductNotFound
}

func (r *memoryRepo) ListProducts(_ context.Context, _ bool) ([]Product, error) {
	var result []Product
	for _, p := range r.products {
		result = append(result, *p)
	}
	return result, nil
}

func (r *memoryRepo) CreateProduct(_ context.Context, p Product) (int64, error) {
	r.nextID++
	p.ID = r.nextID
	r.products[p.ID] = &p
	return p.ID, nil
}

func (r *memoryRepo) GetSlot(_ context.Context, id int64) (*Slot, error) {
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *memoryRepo) ListSlots(_ context.Context, machineID int64) ([]Slot, error) {
	var result []Slot
	for _, s := range r.slots {
		if s.MachineID == machineID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (r *memoryRepo) CreateSlot(_ context.Context, s Slot) (int64, error) {
	r.nextID++
	s.ID = r.nextID
	r.slots[s.ID] = &s
	return s.ID, nil
}

func (r *memoryRepo) ListLowStock(_ context.Context) ([]LowStockItem, error) {
	var result []LowStockItem
	for _, s := range r.slots {
		if s.CurrentLevel <= s.ParLevel {
			result = append(result, LowStockItem{
				SlotID:       s.ID,
				SlotCode:     s.Code,
				MachineID:    s.MachineID,
				ProductID:    s.ProductID,
				CurrentLevel: s.CurrentLevel,
				ParLevel:     s.ParLevel,
			})
		}
	}
	return result, nil
}

func (r *memoryRepo) StockLevels(_ context.Context) (map[string]int64, error) {
	return nil, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetSlotForUpdate(ctx context.Context, id int64) (*Slot, error) {
	return t.repo.GetSlot(ctx, id)
}

func (t *memoryTx) SetSlotLevel(_ context.Context, id int64, level int) error {
	s, ok := t.repo.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	s.CurrentLevel = level
	return nil
}

func (t *memoryTx) InsertRestockEvent(_ context.Context, ev RestockEvent) (int64, error) {
	t.repo.nextID++
	ev.ID = t.repo.nextID
	t.repo.events = append(t.repo.events, ev)
	return ev.ID, nil
}

func seedSlot(t *testing.T, repo *memoryRepo, level, capacity, par int) *Slot {
	t.Helper()
	id, err := repo.CreateSlot(context.Background(), Slot{
		MachineID:    1,
		Code:         "A1",
		ProductID:    9,
		Capacity:     capacity,
		CurrentLevel: level,
		ParLevel:     par,
	})
	require.NoError(t, err)
	slot, err := repo.GetSlot(context.Background(), id)
	require.NoError(t, err)
	return slot
}

func TestRestockUpdatesLevelAndRecordsEvent(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	slot := seedSlot(t, repo, 2, 10, 3)

	event, err := svc.Restock(context.Background(), RestockRequest{SlotID: slot.ID, Quantity: 6})
	require.NoError(t, err)
	require.Equal(t, slot.MachineID, event.MachineID)
	require.Equal(t, slot.ProductID, event.ProductID)
	require.NotEmpty(t, event.Reference)

	updated, err := repo.GetSlot(context.Background(), slot.ID)
	require.NoError(t, err)
	require.Equal(t, 8, updated.CurrentLevel)
	require.Len(t, repo.events, 1)
}

type countingInvalidator struct{ bumps int }

func (c *countingInvalidator) BumpCache(context.Context) error {
	c.bumps++
	return nil
}

func TestRestockBumpsReportCache(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	inv := &countingInvalidator{}
	svc.SetReportInvalidator(inv)
	slot := seedSlot(t, repo, 2, 10, 3)

	_, err := svc.Restock(context.Background(), RestockRequest{SlotID: slot.ID, Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, 1, inv.bumps)

	_, err = svc.Restock(context.Background(), RestockRequest{SlotID: slot.ID, Quantity: 100})
	require.Error(t, err)
	require.Equal(t, 1, inv.bumps)
}

func TestRestockRejectsOverCapacity(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	slot := seedSlot(t, repo, 8, 10, 3)

	_, err := svc.Restock(context.Background(), RestockRequest{SlotID: slot.ID, Quantity: 5})
	require.ErrorIs(t, err, ErrOverCapacity)

	// Level unchanged and no event recorded when the restock fails.
	unchanged, err := repo.GetSlot(context.Background(), slot.ID)
	require.NoError(t, err)
	require.Equal(t, 8, unchanged.CurrentLevel)
	require.Empty(t, repo.events)
}

func TestLowStockListing(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	low := seedSlot(t, repo, 1, 10, 3)
	seedSlot(t, repo, 9, 10, 3)

	items, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, low.ID, items[0].SlotID)
}

func TestCreateProductRejectsDuplicateSKU(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.CreateProduct(context.Background(), CreateProductRequest{SKU: "CHIP-01", Name: "Chips"})
	require.NoError(t, err)

	_, err = svc.CreateProduct(context.Background(), CreateProductRequest{SKU: "CHIP-01", Name: "Chips Again"})
	require.ErrorIs(t, err, ErrDuplicateSKU)
}
