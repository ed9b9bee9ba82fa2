package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
	"github.com/dapur-pos/api/internal/printer"
	"github.com/dapur-pos/api/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- Mock RefundStore ---

type mockRefundStore struct {
	getOrderFn     func(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	listItemsFn    func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	markRefundedFn func(ctx context.Context, arg database.MarkOrderRefundedParams) (database.Order, error)
	restockFn      func(ctx context.Context, arg database.RestockProductParams) error
	createRefundFn func(ctx context.Context, arg database.CreateRefundParams) (database.Refund, error)
}

func (m *mockRefundStore) GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	if m.getOrderFn != nil {
		return m.getOrderFn(ctx, arg)
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockRefundStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	if m.listItemsFn != nil {
		return m.listItemsFn(ctx, orderID)
	}
	return []database.OrderItem{}, nil
}

func (m *mockRefundStore) MarkOrderRefunded(ctx context.Context, arg database.MarkOrderRefundedParams) (database.Order, error) {
	if m.markRefundedFn != nil {
		return m.markRefundedFn(ctx, arg)
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockRefundStore) RestockProduct(ctx context.Context, arg database.RestockProductParams) error {
	if m.restockFn != nil {
		return m.restockFn(ctx, arg)
	}
	return nil
}

func (m *mockRefundStore) CreateRefund(ctx context.Context, arg database.CreateRefundParams) (database.Refund, error) {
	if m.createRefundFn != nil {
		return m.createRefundFn(ctx, arg)
	}
	return database.Refund{ID: uuid.New(), OrderID: arg.OrderID, Reason: arg.Reason, RefundedBy: arg.RefundedBy}, nil
}

// --- Mock TxBeginner ---

type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (m *mockTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Conn() *pgx.Conn { return nil }

type mockPool struct {
	tx      *mockTx
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockPool) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	if m.tx == nil {
		m.tx = &mockTx{}
	}
	return m.tx, nil
}

// --- Mock ReceiptScheduler ---

type mockScheduler struct {
	jobs []printer.Job
}

func (m *mockScheduler) Schedule(job printer.Job) {
	m.jobs = append(m.jobs, job)
}

func newRefundService(store *mockRefundStore, pool *mockPool, receipts *mockScheduler) *service.RefundService {
	newStore := func(db database.DBTX) service.RefundStore { return store }
	var sched service.ReceiptScheduler
	if receipts != nil {
		sched = receipts
	}
	return service.NewRefundService(pool, newStore, sched)
}

// --- Tests ---

func TestRefund_HappyPath(t *testing.T) {
	branchID := uuid.New()
	userID := uuid.New()
	order := testDBOrder(t, branchID, enum.OrderStatusPaid)
	item := testDBOrderItem(t, order.ID)

	refunded := order
	refunded.Status = enum.OrderStatusRefunded

	committed := false
	restocked := map[uuid.UUID]int32{}

	store := &mockRefundStore{
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return order, nil
		},
		listItemsFn: func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
			return []database.OrderItem{item}, nil
		},
		markRefundedFn: func(ctx context.Context, arg database.MarkOrderRefundedParams) (database.Order, error) {
			if arg.ID != order.ID || arg.BranchID != branchID {
				t.Errorf("mark refunded params: got %+v", arg)
			}
			return refunded, nil
		},
		restockFn: func(ctx context.Context, arg database.RestockProductParams) error {
			restocked[arg.ProductID] += arg.Quantity
			return nil
		},
		createRefundFn: func(ctx context.Context, arg database.CreateRefundParams) (database.Refund, error) {
			if arg.Reason.String != "cold food" {
				t.Errorf("reason: got %q, want 'cold food'", arg.Reason.String)
			}
			if arg.RefundedBy != userID {
				t.Errorf("refunded_by: got %v, want %v", arg.RefundedBy, userID)
			}
			return database.Refund{ID: uuid.New(), OrderID: arg.OrderID, Reason: arg.Reason, RefundedBy: arg.RefundedBy}, nil
		},
	}
	pool := &mockPool{tx: &mockTx{commitFn: func(ctx context.Context) error {
		committed = true
		return nil
	}}}
	receipts := &mockScheduler{}

	svc := newRefundService(store, pool, receipts)
	result, err := svc.Refund(context.Background(), service.RefundRequest{
		BranchID:   branchID,
		OrderID:    order.ID,
		Reason:     "cold food",
		RefundedBy: userID,
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}

	if !committed {
		t.Error("transaction not committed")
	}
	if result.Order.Status != enum.OrderStatusRefunded {
		t.Errorf("status: got %s, want REFUNDED", result.Order.Status)
	}
	if result.Order.DisplayStatus != "Refunded" {
		t.Errorf("display status: got %s, want Refunded", result.Order.DisplayStatus)
	}
	if got := restocked[item.ProductID]; got != item.Quantity {
		t.Errorf("restocked qty: got %d, want %d", got, item.Quantity)
	}

	if len(receipts.jobs) != 1 {
		t.Fatalf("scheduled receipts: got %d, want 1", len(receipts.jobs))
	}
	job := receipts.jobs[0]
	if job.Type != enum.PrintJobRefundReceipt {
		t.Errorf("job type: got %s, want %s", job.Type, enum.PrintJobRefundReceipt)
	}
	if !strings.Contains(string(job.Payload), `"42.50"`) {
		t.Errorf("receipt payload missing total: %s", job.Payload)
	}
	if !strings.Contains(string(job.Payload), "cold food") {
		t.Errorf("receipt payload missing reason: %s", job.Payload)
	}
}

func TestRefund_OrderNotFound(t *testing.T) {
	svc := newRefundService(&mockRefundStore{}, &mockPool{}, nil)

	_, err := svc.Refund(context.Background(), service.RefundRequest{
		BranchID: uuid.New(),
		OrderID:  uuid.New(),
	})
	if !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("error: got %v, want ErrOrderNotFound", err)
	}
}

func TestRefund_PendingOrderRejected(t *testing.T) {
	branchID := uuid.New()
	order := testDBOrder(t, branchID, enum.OrderStatusPending)

	marked := false
	store := &mockRefundStore{
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return order, nil
		},
		markRefundedFn: func(ctx context.Context, arg database.MarkOrderRefundedParams) (database.Order, error) {
			marked = true
			return database.Order{}, pgx.ErrNoRows
		},
	}

	svc := newRefundService(store, &mockPool{}, nil)
	_, err := svc.Refund(context.Background(), service.RefundRequest{BranchID: branchID, OrderID: order.ID})
	if !errors.Is(err, service.ErrOrderNotPaid) {
		t.Fatalf("error: got %v, want ErrOrderNotPaid", err)
	}
	if marked {
		t.Error("rejected refund must not touch the order row")
	}
}

func TestRefund_CancelledOrderRejected(t *testing.T) {
	branchID := uuid.New()
	order := testDBOrder(t, branchID, enum.OrderStatusCancelled)

	store := &mockRefundStore{
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return order, nil
		},
	}

	svc := newRefundService(store, &mockPool{}, nil)
	_, err := svc.Refund(context.Background(), service.RefundRequest{BranchID: branchID, OrderID: order.ID})
	if !errors.Is(err, service.ErrOrderNotPaid) {
		t.Fatalf("error: got %v, want ErrOrderNotPaid", err)
	}
}

func TestRefund_AlreadyRefundedIsRejectedWithoutRestock(t *testing.T) {
	branchID := uuid.New()
	order := testDBOrder(t, branchID, enum.OrderStatusRefunded)

	restocks := 0
	store := &mockRefundStore{
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return order, nil
		},
		restockFn: func(ctx context.Context, arg database.RestockProductParams) error {
			restocks++
			return nil
		},
	}

	svc := newRefundService(store, &mockPool{}, nil)
	_, err := svc.Refund(context.Background(), service.RefundRequest{BranchID: branchID, OrderID: order.ID})
	if !errors.Is(err, service.ErrAlreadyRefunded) {
		t.Fatalf("error: got %v, want ErrAlreadyRefunded", err)
	}
	if restocks != 0 {
		t.Errorf("restocks: got %d, want 0 (stock must not be reapplied)", restocks)
	}
}

func TestRefund_ConcurrentRefundLosesRace(t *testing.T) {
	branchID := uuid.New()
	order := testDBOrder(t, branchID, enum.OrderStatusPaid)

	store := &mockRefundStore{
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return order, nil
		},
		// The conditional UPDATE matches nothing because another
		// request flipped the status after our read.
		markRefundedFn: func(ctx context.Context, arg database.MarkOrderRefundedParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	}

	svc := newRefundService(store, &mockPool{}, nil)
	_, err := svc.Refund(context.Background(), service.RefundRequest{BranchID: branchID, OrderID: order.ID})
	if !errors.Is(err, service.ErrAlreadyRefunded) {
		t.Fatalf("error: got %v, want ErrAlreadyRefunded", err)
	}
}

func TestRefund_RestockFailureAbortsWholeRefund(t *testing.T) {
	branchID := uuid.New()
	order := testDBOrder(t, branchID, enum.OrderStatusPaid)
	item := testDBOrderItem(t, order.ID)

	refunded := order
	refunded.Status = enum.OrderStatusRefunded

	committed := false
	store := &mockRefundStore{
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return order, nil
		},
		listItemsFn: func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
			return []database.OrderItem{item}, nil
		},
		markRefundedFn: func(ctx context.Context, arg database.MarkOrderRefundedParams) (database.Order, error) {
			return refunded, nil
		},
		restockFn: func(ctx context.Context, arg database.RestockProductParams) error {
			return errors.New("deadlock detected")
		},
	}
	pool := &mockPool{tx: &mockTx{commitFn: func(ctx context.Context) error {
		committed = true
		return nil
	}}}

	svc := newRefundService(store, pool, nil)
	_, err := svc.Refund(context.Background(), service.RefundRequest{BranchID: branchID, OrderID: order.ID})
	if err == nil {
		t.Fatal("expected error from restock failure")
	}
	if committed {
		t.Error("failed refund must not commit")
	}
}

func TestRefund_CommitFailureSurfaces(t *testing.T) {
	branchID := uuid.New()
	order := testDBOrder(t, branchID, enum.OrderStatusPaid)

	refunded := order
	refunded.Status = enum.OrderStatusRefunded

	store := &mockRefundStore{
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return order, nil
		},
		markRefundedFn: func(ctx context.Context, arg database.MarkOrderRefundedParams) (database.Order, error) {
			return refunded, nil
		},
	}
	pool := &mockPool{tx: &mockTx{commitFn: func(ctx context.Context) error {
		return errors.New("connection lost")
	}}}
	receipts := &mockScheduler{}

	svc := newRefundService(store, pool, receipts)
	_, err := svc.Refund(context.Background(), service.RefundRequest{BranchID: branchID, OrderID: order.ID})
	if err == nil {
		t.Fatal("expected commit error to surface")
	}
	if len(receipts.jobs) != 0 {
		t.Error("no receipt may be scheduled for an uncommitted refund")
	}
}

func TestRefund_EmptyReasonStoredAsNull(t *testing.T) {
	branchID := uuid.New()
	order := testDBOrder(t, branchID, enum.OrderStatusPaid)

	refunded := order
	refunded.Status = enum.OrderStatusRefunded

	store := &mockRefundStore{
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return order, nil
		},
		markRefundedFn: func(ctx context.Context, arg database.MarkOrderRefundedParams) (database.Order, error) {
			return refunded, nil
		},
		createRefundFn: func(ctx context.Context, arg database.CreateRefundParams) (database.Refund, error) {
			if arg.Reason.Valid {
				t.Errorf("reason: got %+v, want NULL", arg.Reason)
			}
			return database.Refund{ID: uuid.New(), OrderID: arg.OrderID}, nil
		},
	}

	svc := newRefundService(store, &mockPool{}, nil)
	if _, err := svc.Refund(context.Background(), service.RefundRequest{BranchID: branchID, OrderID: order.ID}); err != nil {
		t.Fatalf("refund: %v", err)
	}
}
