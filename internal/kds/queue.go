// Package kds holds the kitchen/bar production queue. Tickets are
// derived from the order set on every refresh; per-item readiness is
// tracked separately so operator progress survives re-derivation.
package kds

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dapur-pos/api/internal/enum"
	"github.com/google/uuid"
)

// Errors returned by the queue.
var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrItemNotFound   = errors.New("ticket item not found")
)

// SourceItem is one order line as seen by the queue.
type SourceItem struct {
	ID       uuid.UUID
	Name     string
	Quantity int32
	Station  string
}

// SourceOrder is the slice of an order the queue derives tickets from.
// Routing carries the upstream routing flag; only orders flagged
// enum.RoutingSentToKitchen produce a ticket.
type SourceOrder struct {
	ID          uuid.UUID
	OrderNumber string
	SectionName string
	TableNumber string
	Routing     string
	CreatedAt   time.Time
	Items       []SourceItem
}

// TicketItem is an item snapshot plus its readiness state.
type TicketItem struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Quantity  int32     `json:"quantity"`
	Station   string    `json:"station"`
	Readiness string    `json:"readiness"`
}

// Ticket is the display unit for one routed order.
type Ticket struct {
	OrderID     uuid.UUID    `json:"order_id"`
	OrderNumber string       `json:"order_number"`
	SectionName string       `json:"section_name,omitempty"`
	TableNumber string       `json:"table_number,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Items       []TicketItem `json:"items"`
}

type readinessKey struct {
	orderID uuid.UUID
	itemID  uuid.UUID
}

// Queue owns the derived tickets and the readiness map for one branch
// board. The order store never writes here and the queue never writes
// to the order store.
type Queue struct {
	mu        sync.RWMutex
	tickets   map[uuid.UUID]*Ticket
	readiness map[readinessKey]string
}

// NewQueue creates an empty production queue.
func NewQueue() *Queue {
	return &Queue{
		tickets:   make(map[uuid.UUID]*Ticket),
		readiness: make(map[readinessKey]string),
	}
}

// Refresh re-derives the ticket set from the given order snapshot.
// Derivation is pure with respect to the input: running it twice on
// the same snapshot yields the same tickets. Readiness recorded before
// the refresh is preserved via the keyed readiness map, never read
// from the snapshot itself. Orders that are malformed (nil id, no
// items) are skipped. Tickets whose order is no longer routed are
// dropped, along with their readiness entries.
func (q *Queue) Refresh(orders []SourceOrder) {
	q.mu.Lock()
	defer q.mu.Unlock()

	next := make(map[uuid.UUID]*Ticket, len(orders))
	for _, o := range orders {
		if o.Routing != enum.RoutingSentToKitchen {
			continue
		}
		if o.ID == uuid.Nil || len(o.Items) == 0 {
			continue
		}

		t := &Ticket{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			SectionName: o.SectionName,
			TableNumber: o.TableNumber,
			CreatedAt:   o.CreatedAt,
			Items:       make([]TicketItem, 0, len(o.Items)),
		}
		for _, it := range o.Items {
			if it.ID == uuid.Nil {
				continue
			}
			readiness := q.readiness[readinessKey{o.ID, it.ID}]
			if readiness == "" {
				readiness = enum.ItemReadinessPending
			}
			t.Items = append(t.Items, TicketItem{
				ID:        it.ID,
				Name:      it.Name,
				Quantity:  it.Quantity,
				Station:   it.Station,
				Readiness: readiness,
			})
		}
		if len(t.Items) == 0 {
			continue
		}
		next[o.ID] = t
	}

	// Drop readiness for orders that left the queue so a later
	// re-route starts from a clean Pending state.
	for key := range q.readiness {
		if _, ok := next[key.orderID]; !ok {
			delete(q.readiness, key)
		}
	}

	q.tickets = next
}

// MarkItemReady flips one item Pending -> Ready. Ready is terminal for
// the ticket's lifetime: marking an already-Ready item again succeeds
// without change, so a double button press never fails the operator.
// Returns the post-state ticket for confirmation rendering.
func (q *Queue) MarkItemReady(orderID, itemID uuid.UUID) (Ticket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tickets[orderID]
	if !ok {
		return Ticket{}, ErrTicketNotFound
	}

	for i := range t.Items {
		if t.Items[i].ID == itemID {
			t.Items[i].Readiness = enum.ItemReadinessReady
			q.readiness[readinessKey{orderID, itemID}] = enum.ItemReadinessReady
			return copyTicket(t), nil
		}
	}
	return Ticket{}, ErrItemNotFound
}

// Ticket returns a copy of one ticket.
func (q *Queue) Ticket(orderID uuid.UUID) (Ticket, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	t, ok := q.tickets[orderID]
	if !ok {
		return Ticket{}, ErrTicketNotFound
	}
	return copyTicket(t), nil
}

// Tickets returns copies of all tickets, oldest first.
func (q *Queue) Tickets() []Ticket {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]Ticket, 0, len(q.tickets))
	for _, t := range q.tickets {
		out = append(out, copyTicket(t))
	}
	sortTickets(out)
	return out
}

// TicketsForStation returns tickets filtered to items for one station
// (kitchen or bar board). Tickets with no items at the station are
// omitted.
func (q *Queue) TicketsForStation(station string) []Ticket {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]Ticket, 0, len(q.tickets))
	for _, t := range q.tickets {
		c := copyTicket(t)
		filtered := c.Items[:0]
		for _, it := range c.Items {
			if it.Station == station {
				filtered = append(filtered, it)
			}
		}
		if len(filtered) == 0 {
			continue
		}
		c.Items = filtered
		out = append(out, c)
	}
	sortTickets(out)
	return out
}

func copyTicket(t *Ticket) Ticket {
	c := *t
	c.Items = make([]TicketItem, len(t.Items))
	copy(c.Items, t.Items)
	return c
}

func sortTickets(ts []Ticket) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].OrderNumber < ts[j].OrderNumber
		}
		return ts[i].CreatedAt.Before(ts[j].CreatedAt)
	})
}
