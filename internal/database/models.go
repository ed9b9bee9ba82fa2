package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Branch is a single restaurant location.
type Branch struct {
	ID       uuid.UUID
	Name     string
	Address  pgtype.Text
	Phone    pgtype.Text
	IsActive bool
}

// User is a staff account scoped to one branch.
type User struct {
	ID             uuid.UUID
	BranchID       uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	CreatedAt      time.Time
}

// Product is a sellable item with a stock count. Stock is only
// touched here when a refund restores returned quantities; regular
// inventory management lives in the upstream catalog system.
type Product struct {
	ID       uuid.UUID
	BranchID uuid.UUID
	Name     string
	Station  string
	StockQty int32
}

// Order is the authoritative order record. Status holds one of the
// canonical enum.OrderStatus values; Routing is set by the upstream
// order-entry flow when the order is handed to the production queue.
type Order struct {
	ID            uuid.UUID
	BranchID      uuid.UUID
	OrderNumber   string
	InvoiceNumber pgtype.Text
	UpstreamRef   pgtype.Text
	Status        string
	Routing       pgtype.Text
	SectionName   pgtype.Text
	TableNumber   pgtype.Text
	Subtotal      pgtype.Numeric
	TotalAmount   pgtype.Numeric
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem is one line of an order. Name, station, and price are
// snapshots taken at order time so later catalog edits don't rewrite
// history. SortOrder preserves insertion order for ticket rendering.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	Quantity  int32
	Station   string
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
	SortOrder int32
}

// Refund records the single committed refund of an order. The table
// has a unique constraint on order_id, which is what makes the
// workflow at-most-once at the storage level.
type Refund struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Reason     pgtype.Text
	RefundedBy uuid.UUID
	CreatedAt  time.Time
}
