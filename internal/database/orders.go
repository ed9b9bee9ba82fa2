package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, branch_id, order_number, invoice_number, upstream_ref,
	status, routing, section_name, table_number, subtotal, total_amount,
	created_by, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.BranchID, &o.OrderNumber, &o.InvoiceNumber, &o.UpstreamRef,
		&o.Status, &o.Routing, &o.SectionName, &o.TableNumber, &o.Subtotal,
		&o.TotalAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// GetOrderParams identifies an order within a branch.
type GetOrderParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

// GetOrder returns one order. pgx.ErrNoRows when the id is unknown in
// the branch.
func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	const sql = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND branch_id = $2`
	return scanOrder(q.db.QueryRow(ctx, sql, arg.ID, arg.BranchID))
}

// ListOrdersParams filters the order list. Zero-value fields are
// ignored. Routing filters on the routing flag (production queue
// reads use enum.RoutingSentToKitchen).
type ListOrdersParams struct {
	BranchID uuid.UUID
	Status   pgtype.Text
	Routing  pgtype.Text
	Limit    int32
	Offset   int32
}

// ListOrders returns orders for a branch, newest first.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	const sql = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE branch_id = $1
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::text IS NULL OR routing = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	rows, err := q.db.Query(ctx, sql, arg.BranchID, arg.Status, arg.Routing, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListOrderItemsByOrder returns an order's items in insertion order.
func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	const sql = `
		SELECT id, order_id, product_id, name, quantity, station,
		       unit_price, subtotal, sort_order
		FROM order_items
		WHERE order_id = $1
		ORDER BY sort_order, id`

	rows, err := q.db.Query(ctx, sql, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Quantity,
			&it.Station, &it.UnitPrice, &it.Subtotal, &it.SortOrder,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkOrderRefundedParams identifies the order whose status flips.
type MarkOrderRefundedParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

// MarkOrderRefunded transitions an order PAID -> REFUNDED. The WHERE
// clause makes the flip conditional on the current status, so a
// concurrent or repeated refund updates zero rows and surfaces as
// pgx.ErrNoRows instead of a double transition.
func (q *Queries) MarkOrderRefunded(ctx context.Context, arg MarkOrderRefundedParams) (Order, error) {
	const sql = `
		UPDATE orders
		SET status = 'REFUNDED', updated_at = now()
		WHERE id = $1 AND branch_id = $2 AND status = 'PAID'
		RETURNING ` + orderColumns
	return scanOrder(q.db.QueryRow(ctx, sql, arg.ID, arg.BranchID))
}

// RestockProductParams identifies a product and the quantity returned.
type RestockProductParams struct {
	ProductID uuid.UUID
	Quantity  int32
}

// RestockProduct increments stock for a returned item.
func (q *Queries) RestockProduct(ctx context.Context, arg RestockProductParams) error {
	const sql = `UPDATE products SET stock_qty = stock_qty + $2 WHERE id = $1`
	_, err := q.db.Exec(ctx, sql, arg.ProductID, arg.Quantity)
	return err
}

// CreateRefundParams holds the refund record fields.
type CreateRefundParams struct {
	OrderID    uuid.UUID
	Reason     pgtype.Text
	RefundedBy uuid.UUID
}

// CreateRefund inserts the refund record. The unique constraint on
// order_id rejects a second insert for the same order.
func (q *Queries) CreateRefund(ctx context.Context, arg CreateRefundParams) (Refund, error) {
	const sql = `
		INSERT INTO refunds (order_id, reason, refunded_by)
		VALUES ($1, $2, $3)
		RETURNING id, order_id, reason, refunded_by, created_at`

	var r Refund
	err := q.db.QueryRow(ctx, sql, arg.OrderID, arg.Reason, arg.RefundedBy).
		Scan(&r.ID, &r.OrderID, &r.Reason, &r.RefundedBy, &r.CreatedAt)
	return r, err
}

// GetRefundByOrder returns the refund record for an order, if any.
func (q *Queries) GetRefundByOrder(ctx context.Context, orderID uuid.UUID) (Refund, error) {
	const sql = `
		SELECT id, order_id, reason, refunded_by, created_at
		FROM refunds WHERE order_id = $1`

	var r Refund
	err := q.db.QueryRow(ctx, sql, orderID).
		Scan(&r.ID, &r.OrderID, &r.Reason, &r.RefundedBy, &r.CreatedAt)
	return r, err
}
