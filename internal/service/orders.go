package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
	"github.com/dapur-pos/api/internal/kds"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the order services.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNotPaid     = errors.New("order is not paid")
	ErrAlreadyRefunded  = errors.New("order already refunded")
	ErrStoreUnavailable = errors.New("order store unavailable")
)

// OrderReader defines the DB methods needed for order reads.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderReader interface {
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// OrderSummary is the list-level view of an order. Status is always
// canonical; DisplayStatus carries the operator-facing label,
// including the cancelled→"Refunded" alias.
type OrderSummary struct {
	ID            uuid.UUID       `json:"id"`
	BranchID      uuid.UUID       `json:"branch_id"`
	OrderNumber   string          `json:"order_number"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	UpstreamRef   string          `json:"upstream_ref,omitempty"`
	Status        string          `json:"status"`
	DisplayStatus string          `json:"display_status"`
	Routing       string          `json:"routing,omitempty"`
	SectionName   string          `json:"section_name,omitempty"`
	TableNumber   string          `json:"table_number,omitempty"`
	Total         decimal.Decimal `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderItemView is one line of an order detail.
type OrderItemView struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int32           `json:"quantity"`
	Station   string          `json:"station"`
	UnitPrice decimal.Decimal `json:"-"`
	Subtotal  decimal.Decimal `json:"-"`
}

// OrderDetail is the full view of an order. Stale marks a detail
// served from the summary cache because the store was unreachable.
type OrderDetail struct {
	OrderSummary
	Items []OrderItemView `json:"items"`
	Stale bool            `json:"stale,omitempty"`
}

// ListFilter narrows ListOrders.
type ListFilter struct {
	Status string
	Limit  int32
	Offset int32
}

// OrderService is the read side of the order store. It owns the
// degraded-read policies: list failures become an empty result, get
// failures fall back to the last-known summary.
type OrderService struct {
	store OrderReader

	mu        sync.RWMutex
	summaries map[uuid.UUID]OrderSummary
}

// NewOrderService creates a new OrderService.
func NewOrderService(store OrderReader) *OrderService {
	return &OrderService{
		store:     store,
		summaries: make(map[uuid.UUID]OrderSummary),
	}
}

// ListOrders returns the current order snapshot for a branch. Store
// failures are absorbed: the error is logged and an empty slice
// returned, so dashboard views degrade instead of breaking. Successful
// reads refresh the summary cache used by GetOrder's stale fallback.
func (s *OrderService) ListOrders(ctx context.Context, branchID uuid.UUID, filter ListFilter) []OrderSummary {
	params := database.ListOrdersParams{
		BranchID: branchID,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if filter.Status != "" {
		params.Status = pgtype.Text{String: filter.Status, Valid: true}
	}

	orders, err := s.store.ListOrders(ctx, params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		return []OrderSummary{}
	}

	out := make([]OrderSummary, len(orders))
	s.mu.Lock()
	for i, o := range orders {
		out[i] = toSummary(o)
		s.summaries[o.ID] = out[i]
	}
	s.mu.Unlock()
	return out
}

// GetOrder returns the full order detail. Unknown ids yield
// ErrOrderNotFound. If the store is unreachable, the last-known
// summary (if any) is returned with Stale set; otherwise
// ErrStoreUnavailable.
func (s *OrderService) GetOrder(ctx context.Context, branchID, orderID uuid.UUID) (OrderDetail, error) {
	o, err := s.store.GetOrder(ctx, database.GetOrderParams{ID: orderID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderDetail{}, ErrOrderNotFound
		}
		log.Printf("ERROR: get order %s: %v", orderID, err)
		return s.staleFallback(orderID, err)
	}

	summary := toSummary(o)
	s.mu.Lock()
	s.summaries[o.ID] = summary
	s.mu.Unlock()

	items, err := s.store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		log.Printf("ERROR: list order items %s: %v", orderID, err)
		return s.staleFallback(orderID, err)
	}

	detail := OrderDetail{OrderSummary: summary, Items: make([]OrderItemView, len(items))}
	for i, it := range items {
		detail.Items[i] = OrderItemView{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Station:   it.Station,
			UnitPrice: numericToDecimal(it.UnitPrice),
			Subtotal:  numericToDecimal(it.Subtotal),
		}
	}
	return detail, nil
}

// ListRouted returns the branch's routed orders in the shape the
// production queue derives tickets from. Read-only and best-effort:
// a store failure yields an empty slice, and an order whose items
// cannot be loaded is skipped rather than failing the board.
func (s *OrderService) ListRouted(ctx context.Context, branchID uuid.UUID) []kds.SourceOrder {
	orders, err := s.store.ListOrders(ctx, database.ListOrdersParams{
		BranchID: branchID,
		Routing:  pgtype.Text{String: enum.RoutingSentToKitchen, Valid: true},
		Limit:    200,
	})
	if err != nil {
		log.Printf("ERROR: list routed orders: %v", err)
		return []kds.SourceOrder{}
	}

	out := make([]kds.SourceOrder, 0, len(orders))
	for _, o := range orders {
		items, err := s.store.ListOrderItemsByOrder(ctx, o.ID)
		if err != nil {
			log.Printf("ERROR: list items for routed order %s: %v", o.ID, err)
			continue
		}
		src := kds.SourceOrder{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			SectionName: textOrEmpty(o.SectionName),
			TableNumber: textOrEmpty(o.TableNumber),
			Routing:     textOrEmpty(o.Routing),
			CreatedAt:   o.CreatedAt,
			Items:       make([]kds.SourceItem, len(items)),
		}
		for i, it := range items {
			src.Items[i] = kds.SourceItem{
				ID:       it.ID,
				Name:     it.Name,
				Quantity: it.Quantity,
				Station:  it.Station,
			}
		}
		out = append(out, src)
	}
	return out
}

// NoteRefunded updates the cached summary after a committed refund so
// the stale fallback can never resurrect a PAID view of a refunded
// order.
func (s *OrderService) NoteRefunded(orderID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if summary, ok := s.summaries[orderID]; ok {
		summary.Status = enum.OrderStatusRefunded
		summary.DisplayStatus = enum.DisplayStatus(summary.Status)
		s.summaries[orderID] = summary
	}
}

func (s *OrderService) staleFallback(orderID uuid.UUID, cause error) (OrderDetail, error) {
	s.mu.RLock()
	summary, ok := s.summaries[orderID]
	s.mu.RUnlock()
	if !ok {
		return OrderDetail{}, ErrStoreUnavailable
	}
	log.Printf("WARN: serving stale summary for order %s: %v", orderID, cause)
	return OrderDetail{OrderSummary: summary, Stale: true}, nil
}

// toSummary converts a database row, normalizing the status string.
// The local snapshot blob the production path consumes is written by
// the upstream order-entry system, so spellings are not trusted even
// though our own schema is CHECK constrained.
func toSummary(o database.Order) OrderSummary {
	status, known := enum.NormalizeOrderStatus(o.Status)
	if !known {
		log.Printf("WARN: order %s has non-canonical status %q", o.ID, o.Status)
	}
	return OrderSummary{
		ID:            o.ID,
		BranchID:      o.BranchID,
		OrderNumber:   o.OrderNumber,
		InvoiceNumber: textOrEmpty(o.InvoiceNumber),
		UpstreamRef:   textOrEmpty(o.UpstreamRef),
		Status:        status,
		DisplayStatus: enum.DisplayStatus(status),
		Routing:       textOrEmpty(o.Routing),
		SectionName:   textOrEmpty(o.SectionName),
		TableNumber:   textOrEmpty(o.TableNumber),
		Total:         numericToDecimal(o.TotalAmount),
		CreatedAt:     o.CreatedAt,
	}
}

// --- Helpers ---

func textOrEmpty(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}
