package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dapur-pos/api/internal/printer"
)

// receiptLine is one printed line of a receipt payload.
type receiptLine struct {
	Name      string `json:"name"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

// receiptPayload is the print surface's input. Amounts are formatted
// with two decimals on the wire.
type receiptPayload struct {
	Number       string        `json:"number"`
	OrderID      string        `json:"order_id"`
	Status       string        `json:"status"`
	SectionName  string        `json:"section_name,omitempty"`
	TableNumber  string        `json:"table_number,omitempty"`
	Lines        []receiptLine `json:"lines"`
	Total        string        `json:"total"`
	RefundReason string        `json:"refund_reason,omitempty"`
	IssuedAt     time.Time     `json:"issued_at"`
}

// ReceiptNumber derives the identifier printed on a receipt. Upstream
// systems populate different fields depending on the sales channel, so
// the fallback order is fixed here instead of at each render site:
// invoice number, then order number, then the upstream reference, then
// the first 8 characters of the order id.
func ReceiptNumber(o OrderSummary) string {
	if o.InvoiceNumber != "" {
		return o.InvoiceNumber
	}
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	if o.UpstreamRef != "" {
		return o.UpstreamRef
	}
	return o.ID.String()[:8]
}

// BuildReceiptJob renders an order detail into a print job of the
// given type. refundReason is included only on refund receipts.
func BuildReceiptJob(jobType string, detail OrderDetail, refundReason string, issuedAt time.Time) (printer.Job, error) {
	payload := receiptPayload{
		Number:       ReceiptNumber(detail.OrderSummary),
		OrderID:      detail.ID.String(),
		Status:       detail.DisplayStatus,
		SectionName:  detail.SectionName,
		TableNumber:  detail.TableNumber,
		Lines:        make([]receiptLine, len(detail.Items)),
		Total:        detail.Total.StringFixed(2),
		RefundReason: refundReason,
		IssuedAt:     issuedAt,
	}
	for i, it := range detail.Items {
		payload.Lines[i] = receiptLine{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Subtotal:  it.Subtotal.StringFixed(2),
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return printer.Job{}, fmt.Errorf("marshal receipt: %w", err)
	}
	return printer.Job{Type: jobType, Payload: raw}, nil
}
