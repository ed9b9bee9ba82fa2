package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dapur-pos/api/internal/enum"
	"github.com/dapur-pos/api/internal/kds"
	"github.com/dapur-pos/api/internal/middleware"
	"github.com/dapur-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RoutedSource supplies the order snapshot the production board derives
// tickets from. Satisfied by *service.OrderService.
type RoutedSource interface {
	ListRouted(ctx context.Context, branchID uuid.UUID) []kds.SourceOrder
}

// KitchenHandler serves the KDS board endpoints.
type KitchenHandler struct {
	source RoutedSource
	boards *kds.Boards
	hub    Broadcaster
}

// NewKitchenHandler creates a new KitchenHandler.
func NewKitchenHandler(source RoutedSource, boards *kds.Boards, hub Broadcaster) *KitchenHandler {
	return &KitchenHandler{source: source, boards: boards, hub: hub}
}

// RegisterRoutes registers kitchen endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/kitchen
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tickets", h.ListTickets)
	r.Post("/tickets/{orderID}/items/{itemID}/ready", h.MarkItemReady)
}

// --- Response types ---

type ticketListResponse struct {
	Tickets []kds.Ticket `json:"tickets"`
}

type itemReadyEvent struct {
	OrderID uuid.UUID  `json:"order_id"`
	ItemID  uuid.UUID  `json:"item_id"`
	Ticket  kds.Ticket `json:"ticket"`
}

// --- Handlers ---

// ListTickets handles GET /branches/{bid}/kitchen/tickets.
// The board re-derives its tickets from the current order snapshot on
// every poll; item readiness marked between polls carries over. An
// optional ?station= filter narrows the board to kitchen or bar items.
func (h *KitchenHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
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

	queue := h.boards.Branch(branchID)
	queue.Refresh(h.source.ListRouted(r.Context(), branchID))

	station := r.URL.Query().Get("station")
	var tickets []kds.Ticket
	if station != "" {
		if !enum.IsValidStation(station) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid station"})
			return
		}
		tickets = queue.TicketsForStation(station)
	} else {
		tickets = queue.Tickets()
	}

	writeJSON(w, http.StatusOK, ticketListResponse{Tickets: tickets})
}

// MarkItemReady handles POST /branches/{bid}/kitchen/tickets/{orderID}/items/{itemID}/ready.
// Ready is terminal; repeating the press on an already-Ready item
// succeeds without change.
func (h *KitchenHandler) MarkItemReady(w http.ResponseWriter, r *http.Request) {
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

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	queue := h.boards.Branch(branchID)

	ticket, err := queue.MarkItemReady(orderID, itemID)
	if errors.Is(err, kds.ErrTicketNotFound) {
		// The board may not have seen this order yet (fresh process or
		// a mark racing a poll). Re-derive once and retry.
		queue.Refresh(h.source.ListRouted(r.Context(), branchID))
		ticket, err = queue.MarkItemReady(orderID, itemID)
	}
	if err != nil {
		switch {
		case errors.Is(err, kds.ErrTicketNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
		case errors.Is(err, kds.ErrItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket item not found"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	if h.hub != nil {
		payload, err := json.Marshal(itemReadyEvent{OrderID: orderID, ItemID: itemID, Ticket: ticket})
		if err == nil {
			h.hub.BroadcastToBranch(branchID, ws.Event{Type: ws.EventKitchenItemReady, Payload: payload})
		}
	}

	writeJSON(w, http.StatusOK, ticket)
}
