package masterdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier is a vendor purchase orders commit money to.
type Supplier struct {
	ID            int64
	Code          string
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Material is a catalog item referenced by MR and PO lines.
type Material struct {
	ID            int64
	Code          string
	Name          string
	UnitID        *int64
	StandardPrice decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Unit is a unit of measure (pc, bag, m3).
type Unit struct {
	ID        int64
	Code      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Warehouse is a physical storage location goods are received into.
type Warehouse struct {
	ID        int64
	Code      string
	Name      string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
