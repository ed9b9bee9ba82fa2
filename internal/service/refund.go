package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
	"github.com/dapur-pos/api/internal/printer"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RefundStore defines the DB methods needed to apply a refund.
// Satisfied by *database.Queries (and its WithTx variant).
type RefundStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	MarkOrderRefunded(ctx context.Context, arg database.MarkOrderRefundedParams) (database.Order, error)
	RestockProduct(ctx context.Context, arg database.RestockProductParams) error
	CreateRefund(ctx context.Context, arg database.CreateRefundParams) (database.Refund, error)
}

// NewRefundStore creates a RefundStore from a DBTX (pool or tx).
type NewRefundStore func(db database.DBTX) RefundStore

// ReceiptScheduler is the print side effect of a committed refund.
// Satisfied by *printer.Dispatcher.
type ReceiptScheduler interface {
	Schedule(job printer.Job)
}

// RefundRequest is the validated input for a refund.
type RefundRequest struct {
	BranchID   uuid.UUID
	OrderID    uuid.UUID
	Reason     string
	RefundedBy uuid.UUID
}

// RefundResult is the committed refund with the post-state order.
type RefundResult struct {
	Order  OrderSummary
	Refund database.Refund
}

// RefundService applies refunds. The whole effect — status flip,
// stock restoration, refund record — commits in one transaction, so
// the caller either observes a fully refunded order or the unchanged
// prior state; there is no partial outcome to reconcile.
type RefundService struct {
	pool     TxBeginner
	newStore NewRefundStore
	receipts ReceiptScheduler
}

// NewRefundService creates a new RefundService.
func NewRefundService(pool TxBeginner, newStore NewRefundStore, receipts ReceiptScheduler) *RefundService {
	return &RefundService{pool: pool, newStore: newStore, receipts: receipts}
}

// Refund transitions a PAID order to REFUNDED.
//
// Contract: unknown order id → ErrOrderNotFound; PENDING/CANCELLED →
// ErrOrderNotPaid; a repeated refund of an already-refunded order →
// ErrAlreadyRefunded, with no stock reapplied. The explicit rejection
// (rather than silent success) is deliberate: a double submit should
// tell the operator nothing happened the second time.
//
// The committed flip is visible to the very next list/get from the
// same caller, since Refund only returns after commit.
func (s *RefundService) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, database.GetOrderParams{ID: req.OrderID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	status, _ := enum.NormalizeOrderStatus(order.Status)
	switch status {
	case enum.OrderStatusPaid:
		// eligible
	case enum.OrderStatusRefunded:
		return nil, ErrAlreadyRefunded
	default:
		// CANCELLED is displayed as "Refunded" in some views but is a
		// distinct stored state and never refund-eligible.
		return nil, ErrOrderNotPaid
	}

	items, err := store.ListOrderItemsByOrder(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	updated, err := store.MarkOrderRefunded(ctx, database.MarkOrderRefundedParams{
		ID:       req.OrderID,
		BranchID: req.BranchID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The conditional UPDATE matched nothing: a concurrent
			// refund won the race between our read and write.
			return nil, ErrAlreadyRefunded
		}
		return nil, fmt.Errorf("mark order refunded: %w", err)
	}

	// Restore stock for every returned line. Runs inside the same
	// transaction as the status flip, so a restock failure rolls the
	// whole refund back.
	for _, it := range items {
		if err := store.RestockProduct(ctx, database.RestockProductParams{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		}); err != nil {
			return nil, fmt.Errorf("restock product %s: %w", it.ProductID, err)
		}
	}

	reason := pgtype.Text{}
	if req.Reason != "" {
		reason = pgtype.Text{String: req.Reason, Valid: true}
	}
	refund, err := store.CreateRefund(ctx, database.CreateRefundParams{
		OrderID:    req.OrderID,
		Reason:     reason,
		RefundedBy: req.RefundedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create refund record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	summary := toSummary(updated)
	result := &RefundResult{Order: summary, Refund: refund}

	// Post-commit: hand the adjusted receipt to the print dispatcher.
	// Best-effort by contract; the refund is already durable.
	if s.receipts != nil {
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
		job, err := BuildReceiptJob(enum.PrintJobRefundReceipt, detail, req.Reason, time.Now())
		if err != nil {
			// The refund is durable; a receipt that fails to render
			// is logged and dropped.
			log.Printf("ERROR: build refund receipt for order %s: %v", req.OrderID, err)
		} else {
			s.receipts.Schedule(job)
		}
	}

	return result, nil
}
