package service_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dapur-pos/api/internal/enum"
	"github.com/dapur-pos/api/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestReceiptNumber_Priority(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name string
		o    service.OrderSummary
		want string
	}{
		{
			name: "invoice number wins",
			o:    service.OrderSummary{ID: id, InvoiceNumber: "INV-9", OrderNumber: "DPR-1", UpstreamRef: "UP-1"},
			want: "INV-9",
		},
		{
			name: "order number next",
			o:    service.OrderSummary{ID: id, OrderNumber: "DPR-1", UpstreamRef: "UP-1"},
			want: "DPR-1",
		},
		{
			name: "upstream ref next",
			o:    service.OrderSummary{ID: id, UpstreamRef: "UP-1"},
			want: "UP-1",
		},
		{
			name: "short id as last resort",
			o:    service.OrderSummary{ID: id},
			want: id.String()[:8],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := service.ReceiptNumber(tt.o); got != tt.want {
				t.Errorf("receipt number: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildReceiptJob(t *testing.T) {
	orderID := uuid.New()
	detail := service.OrderDetail{
		OrderSummary: service.OrderSummary{
			ID:            orderID,
			OrderNumber:   "DPR-001",
			Status:        enum.OrderStatusRefunded,
			DisplayStatus: "Refunded",
			Total:         decimal.RequireFromString("42.5"),
		},
		Items: []service.OrderItemView{
			{
				Name:      "Nasi Goreng",
				Quantity:  2,
				UnitPrice: decimal.RequireFromString("21.25"),
				Subtotal:  decimal.RequireFromString("42.5"),
			},
		},
	}

	job, err := service.BuildReceiptJob(enum.PrintJobRefundReceipt, detail, "cold food", time.Now())
	if err != nil {
		t.Fatalf("build receipt job: %v", err)
	}
	if job.Type != enum.PrintJobRefundReceipt {
		t.Errorf("job type: got %s, want %s", job.Type, enum.PrintJobRefundReceipt)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["number"] != "DPR-001" {
		t.Errorf("number: got %v, want DPR-001", payload["number"])
	}
	if payload["total"] != "42.50" {
		t.Errorf("total: got %v, want 42.50", payload["total"])
	}
	if payload["refund_reason"] != "cold food" {
		t.Errorf("refund_reason: got %v, want 'cold food'", payload["refund_reason"])
	}

	lines := payload["lines"].([]interface{})
	if len(lines) != 1 {
		t.Fatalf("lines: got %d, want 1", len(lines))
	}
	line := lines[0].(map[string]interface{})
	if line["unit_price"] != "21.25" {
		t.Errorf("unit_price: got %v, want 21.25", line["unit_price"])
	}
}

func TestBuildReceiptJob_NoReasonOmitted(t *testing.T) {
	detail := service.OrderDetail{
		OrderSummary: service.OrderSummary{ID: uuid.New(), OrderNumber: "DPR-002"},
	}

	job, err := service.BuildReceiptJob(enum.PrintJobReceipt, detail, "", time.Now())
	if err != nil {
		t.Fatalf("build receipt job: %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if _, present := payload["refund_reason"]; present {
		t.Error("refund_reason must be omitted on plain receipts")
	}
}
