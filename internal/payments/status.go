package payments

import (
	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
)

// RecomputeStatus derives an order's aggregate payment status from its full
// ledger. It is a pure function and safe to re-run after any mutation.
func RecomputeStatus(ledger []models.Payment, totalPriceCents int64) enums.OrderPaymentStatus {
	var paid int64
	pendingExists := false
	for _, p := range ledger {
		switch p.Status {
		case enums.PaymentStatusPaid:
			paid += p.AmountCents
		case enums.PaymentStatusPending:
			pendingExists = true
		}
	}
	switch {
	case !pendingExists && paid >= totalPriceCents && totalPriceCents > 0:
		return enums.OrderPaymentStatusFullyPaid
	case paid > 0:
		return enums.OrderPaymentStatusPartiallyPaid
	default:
		return enums.OrderPaymentStatusUnpaid
	}
}

// SumExtra totals the extra entries, pending and paid alike. The order's
// extra_price and total_price are re-derived from this after every ledger
// mutation.
func SumExtra(ledger []models.Payment) int64 {
	var sum int64
	for _, p := range ledger {
		if p.Type != enums.PaymentTypeExtra {
			continue
		}
		if p.Status == enums.PaymentStatusPending || p.Status == enums.PaymentStatusPaid {
			sum += p.AmountCents
		}
	}
	return sum
}

// SumPaid totals the settled entries.
func SumPaid(ledger []models.Payment) int64 {
	var sum int64
	for _, p := range ledger {
		if p.Status == enums.PaymentStatusPaid {
			sum += p.AmountCents
		}
	}
	return sum
}
