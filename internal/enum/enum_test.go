package enum_test

import (
	"testing"

	"github.com/dapur-pos/api/internal/enum"
)

func TestNormalizeOrderStatus(t *testing.T) {
	tests := []struct {
		in        string
		want      string
		wantKnown bool
	}{
		{"PAID", enum.OrderStatusPaid, true},
		{"paid", enum.OrderStatusPaid, true},
		{" Paid ", enum.OrderStatusPaid, true},
		{"COMPLETED", enum.OrderStatusPaid, true},
		{"CANCELLED", enum.OrderStatusCancelled, true},
		{"canceled", enum.OrderStatusCancelled, true},
		{"VOID", enum.OrderStatusCancelled, true},
		{"refunded", enum.OrderStatusRefunded, true},
		{"unpaid", enum.OrderStatusPending, true},
		{"pending", enum.OrderStatusPending, true},
		{"banana", "BANANA", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, known := enum.NormalizeOrderStatus(tt.in)
		if got != tt.want || known != tt.wantKnown {
			t.Errorf("NormalizeOrderStatus(%q) = (%q, %v), want (%q, %v)",
				tt.in, got, known, tt.want, tt.wantKnown)
		}
	}
}

func TestDisplayStatusAliasesCancelledToRefunded(t *testing.T) {
	if got := enum.DisplayStatus(enum.OrderStatusCancelled); got != "Refunded" {
		t.Errorf("DisplayStatus(CANCELLED) = %q, want %q", got, "Refunded")
	}
	if got := enum.DisplayStatus(enum.OrderStatusRefunded); got != "Refunded" {
		t.Errorf("DisplayStatus(REFUNDED) = %q, want %q", got, "Refunded")
	}
	if got := enum.DisplayStatus(enum.OrderStatusPaid); got != "Paid" {
		t.Errorf("DisplayStatus(PAID) = %q, want %q", got, "Paid")
	}
}

func TestIsTerminalOrderStatus(t *testing.T) {
	terminal := map[string]bool{
		enum.OrderStatusPending:   false,
		enum.OrderStatusPaid:      false,
		enum.OrderStatusCancelled: true,
		enum.OrderStatusRefunded:  true,
	}
	for status, want := range terminal {
		if got := enum.IsTerminalOrderStatus(status); got != want {
			t.Errorf("IsTerminalOrderStatus(%s) = %v, want %v", status, got, want)
		}
	}
}
