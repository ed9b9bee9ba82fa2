package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/dapur-pos/api/internal/enum"
	"github.com/dapur-pos/api/internal/middleware"
	"github.com/dapur-pos/api/internal/printer"
	"github.com/dapur-pos/api/internal/service"
	"github.com/dapur-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OrderViewer defines the read-side service methods needed by order
// handlers. Satisfied by *service.OrderService.
type OrderViewer interface {
	ListOrders(ctx context.Context, branchID uuid.UUID, filter service.ListFilter) []service.OrderSummary
	GetOrder(ctx context.Context, branchID, orderID uuid.UUID) (service.OrderDetail, error)
	NoteRefunded(orderID uuid.UUID)
}

// Refunder applies refunds. Satisfied by *service.RefundService.
type Refunder interface {
	Refund(ctx context.Context, req service.RefundRequest) (*service.RefundResult, error)
}

// PrintScheduler queues a receipt for the print surface.
// Satisfied by *printer.Dispatcher.
type PrintScheduler interface {
	Schedule(job printer.Job)
}

// Broadcaster pushes events to branch-scoped WebSocket rooms.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToBranch(branchID uuid.UUID, event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	orders  OrderViewer
	refunds Refunder
	printer PrintScheduler
	hub     Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders OrderViewer, refunds Refunder, p PrintScheduler, hub Broadcaster) *OrderHandler {
	return &OrderHandler{orders: orders, refunds: refunds, printer: p, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/refund", h.Refund)
	r.Post("/{id}/print", h.Print)
}

// --- Request / Response types ---

type orderResponse struct {
	ID            uuid.UUID `json:"id"`
	BranchID      uuid.UUID `json:"branch_id"`
	OrderNumber   string    `json:"order_number"`
	ReceiptNumber string    `json:"receipt_number"`
	Status        string    `json:"status"`
	DisplayStatus string    `json:"display_status"`
	Routing       string    `json:"routing,omitempty"`
	SectionName   string    `json:"section_name,omitempty"`
	TableNumber   string    `json:"table_number,omitempty"`
	TotalAmount   string    `json:"total_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

type orderItemResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int32     `json:"quantity"`
	Station   string    `json:"station"`
	UnitPrice string    `json:"unit_price"`
	Subtotal  string    `json:"subtotal"`
}

type orderDetailResponse struct {
	orderResponse
	Items []orderItemResponse `json:"items"`
	Stale bool                `json:"stale,omitempty"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type refundRequest struct {
	Reason string `json:"reason"`
}

type refundResponse struct {
	Order      orderResponse `json:"order"`
	RefundID   uuid.UUID     `json:"refund_id"`
	Reason     string        `json:"reason,omitempty"`
	RefundedBy uuid.UUID     `json:"refunded_by"`
}

// --- Handlers ---

// List handles GET /branches/{bid}/orders. Store failures degrade to
// an empty list in the service layer, so this endpoint always answers
// 200 for a valid branch.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 200 {
		limit = 200
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	filter := service.ListFilter{Limit: int32(limit), Offset: int32(offset)}
	if s := r.URL.Query().Get("status"); s != "" {
		canonical, ok := enum.NormalizeOrderStatus(s)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		filter.Status = canonical
	}

	orders := h.orders.ListOrders(r.Context(), branchID, filter)

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /branches/{bid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	detail, err := h.orders.GetOrder(r.Context(), branchID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrStoreUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "order store unavailable"})
		default:
			log.Printf("ERROR: get order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

// Refund handles POST /branches/{bid}/orders/{id}/refund.
func (h *OrderHandler) Refund(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	// Body is optional; a refund without a reason is valid.
	var req refundRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	result, err := h.refunds.Refund(r.Context(), service.RefundRequest{
		BranchID:   branchID,
		OrderID:    orderID,
		Reason:     req.Reason,
		RefundedBy: claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrOrderNotPaid):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "only paid orders can be refunded"})
		case errors.Is(err, service.ErrAlreadyRefunded):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order already refunded"})
		default:
			log.Printf("ERROR: refund order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	// Keep the read cache consistent with the committed flip.
	h.orders.NoteRefunded(orderID)

	if h.hub != nil {
		payload, err := json.Marshal(toOrderResponse(result.Order))
		if err == nil {
			h.hub.BroadcastToBranch(branchID, ws.Event{Type: ws.EventOrderRefunded, Payload: payload})
		}
	}

	writeJSON(w, http.StatusOK, refundResponse{
		Order:      toOrderResponse(result.Order),
		RefundID:   result.Refund.ID,
		Reason:     req.Reason,
		RefundedBy: result.Refund.RefundedBy,
	})
}

// Print handles POST /branches/{bid}/orders/{id}/print. The job goes
// through the debounced dispatcher: rapid repeat clicks collapse to a
// single print of the latest receipt, and print failures never reach
// the caller.
func (h *OrderHandler) Print(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	detail, err := h.orders.GetOrder(r.Context(), branchID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrStoreUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "order store unavailable"})
		default:
			log.Printf("ERROR: get order for print: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	jobType := enum.PrintJobReceipt
	if detail.Status == enum.OrderStatusRefunded {
		jobType = enum.PrintJobRefundReceipt
	}

	job, err := service.BuildReceiptJob(jobType, detail, "", time.Now())
	if err != nil {
		log.Printf("ERROR: build receipt for order %s: %v", orderID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.printer.Schedule(job)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// --- Helpers ---

func toOrderResponse(o service.OrderSummary) orderResponse {
	return orderResponse{
		ID:            o.ID,
		BranchID:      o.BranchID,
		OrderNumber:   o.OrderNumber,
		ReceiptNumber: service.ReceiptNumber(o),
		Status:        o.Status,
		DisplayStatus: o.DisplayStatus,
		Routing:       o.Routing,
		SectionName:   o.SectionName,
		TableNumber:   o.TableNumber,
		TotalAmount:   o.Total.StringFixed(2),
		CreatedAt:     o.CreatedAt,
	}
}

func toOrderDetailResponse(d service.OrderDetail) orderDetailResponse {
	resp := orderDetailResponse{
		orderResponse: toOrderResponse(d.OrderSummary),
		Items:         make([]orderItemResponse, len(d.Items)),
		Stale:         d.Stale,
	}
	for i, it := range d.Items {
		resp.Items[i] = orderItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Station:   it.Station,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Subtotal:  it.Subtotal.StringFixed(2),
		}
	}
	return resp
}
