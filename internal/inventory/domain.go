package inventory

import (
	"errors"
	"time"
)

// Product is a catalog item stocked in machine slots.
type Product struct {
	ID             int64     `json:"id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	UnitCostCents  int64     `json:"unit_cost_cents"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Slot is one coil/tray position inside a machine.
type Slot struct {
	ID           int64     `json:"id"`
	MachineID    int64     `json:"machine_id"`
	Code         string    `json:"code"`
	ProductID    int64     `json:"product_id"`
	Capacity     int       `json:"capacity"`
	CurrentLevel int       `json:"current_level"`
	ParLevel     int       `json:"par_level"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RestockEvent records one refill of a slot.
type RestockEvent struct {
	ID        int64     `json:"id"`
	Reference string    `json:"reference"`
	MachineID int64     `json:"machine_id"`
	SlotID    int64     `json:"slot_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Operator  string    `json:"operator"`
	CreatedAt time.Time `json:"created_at"`
}

// LowStockItem is one slot at or below its par level.
type LowStockItem struct {
	SlotID       int64  `json:"slot_id"`
	SlotCode     string `json:"slot_code"`
	MachineID    int64  `json:"machine_id"`
	MachineCode  string `json:"machine_code"`
	ProductID    int64  `json:"product_id"`
	SKU          string `json:"sku"`
	CurrentLevel int    `json:"current_level"`
	ParLevel     int    `json:"par_level"`
}

type CreateProductRequest struct {
	SKU            string `json:"sku" validate:"required,max=50"`
	Name           string `json:"name" validate:"required,max=200"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"gte=0"`
	UnitCostCents  int64  `json:"unit_cost_cents" validate:"gte=0"`
}

type CreateSlotRequest struct {
	MachineID int64  `json:"machine_id" validate:"required,gt=0"`
	Code      string `json:"code" validate:"required,max=20"`
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Capacity  int    `json:"capacity" validate:"required,gt=0"`
	ParLevel  int    `json:"par_level" validate:"gte=0"`
}

type RestockRequest struct {
	SlotID   int64 `json:"slot_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

var (
	ErrProductNotFound = errors.New("product not found")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrDuplicateSKU    = errors.New("sku already exists")
	// ErrOverCapacity rejects restocks that would exceed the slot capacity.
	ErrOverCapacity = errors.New("restock exceeds slot capacity")
)
