package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/orchid/internal/gateway"
	"github.com/example/orchid/internal/models"
)

// amountTolerance is the permitted difference, in currency minor units,
// between the gateway-reported amount and the recorded payment amount.
// Anything beyond it flags the confirmation for manual review.
const amountTolerance int64 = 0

// PaymentConfirmationService applies canonical payment events to
// Payment/Order rows exactly once. It deliberately never advances the
// fulfillment status: settlement and fulfillment have different actors
// and different recovery paths, so a paid transaction only marks money
// as collected.
type PaymentConfirmationService struct {
	db *gorm.DB
}

func NewPaymentConfirmationService(db *gorm.DB) *PaymentConfirmationService {
	return &PaymentConfirmationService{db: db}
}

// ConfirmResult reports what Confirm did with an event.
type ConfirmResult struct {
	OrderID        string               `json:"order_id"`
	OldStatus      models.PaymentStatus `json:"old_status"`
	NewStatus      models.PaymentStatus `json:"new_status"`
	Duplicate      bool                 `json:"duplicate"`
	AmountMismatch bool                 `json:"amount_mismatch"`
}

// Confirm resolves the event's transaction code to a payment and applies
// the reported status idempotently. The whole read-check-write-audit unit
// runs under a row lock on the payment, so concurrently redelivered IPNs
// for the same transaction serialize here and the second one takes the
// duplicate path.
func (s *PaymentConfirmationService) Confirm(ctx context.Context, event gateway.PaymentEvent) (*ConfirmResult, error) {
	if event.TransactionCode == "" {
		return nil, newStatusError(CodeValidationError, "transaction code is required")
	}
	switch event.ReportedStatus {
	case models.PaymentPaid, models.PaymentFailed, models.PaymentCancelled:
	default:
		return nil, newStatusError(CodeValidationError, "unsupported reported status %q", event.ReportedStatus)
	}

	var result *ConfirmResult
	var conflictErr *StatusError
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, "transaction_code = ?", event.TransactionCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newStatusError(CodePaymentNotFound, "no payment matches transaction code %q", event.TransactionCode)
			}
			return err
		}

		if payment.Status.IsTerminal() {
			if payment.Status == event.ReportedStatus {
				// Duplicate delivery; gateways retry IPNs. Success, no mutation.
				log.Printf("[Confirm] duplicate %s event for txn %s (payload %s), no-op", event.ReportedStatus, event.TransactionCode, event.RawPayloadHash)
				result = &ConfirmResult{
					OrderID:   payment.OrderID.String(),
					OldStatus: payment.Status,
					NewStatus: payment.Status,
					Duplicate: true,
				}
				return nil
			}

			// Terminal status disagreement. Record it, surface it, touch nothing.
			log.Printf("[Confirm] status conflict for txn %s: stored %s, gateway %s reported %s", event.TransactionCode, payment.Status, event.Gateway, event.ReportedStatus)
			entry := models.OrderStatusLog{
				OrderID:   payment.OrderID,
				OldStatus: string(payment.Status),
				NewStatus: string(payment.Status),
				Note:      fmt.Sprintf("payment status conflict: %s reported %s but payment is already %s (txn %s); manual review required", event.Gateway, event.ReportedStatus, payment.Status, event.TransactionCode),
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			// Return nil so the conflict record commits; the error is
			// surfaced after the transaction.
			conflictErr = newStatusError(CodeStatusConflict, "payment is already %s; %s reported %s", payment.Status, event.Gateway, event.ReportedStatus)
			return nil
		}

		mismatch := diffAbs(event.ReportedAmount, payment.Amount) > amountTolerance
		if mismatch {
			// Flag only. The recorded amount is never auto-corrected.
			log.Printf("[Confirm] amount mismatch for txn %s: recorded %d, reported %d", event.TransactionCode, payment.Amount, event.ReportedAmount)
		}

		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).
			Update("status", event.ReportedStatus).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", payment.OrderID).
			Update("payment_status", event.ReportedStatus).Error; err != nil {
			return err
		}

		note := fmt.Sprintf("payment status %s -> %s via %s (txn %s)", payment.Status, event.ReportedStatus, event.Gateway, event.TransactionCode)
		if mismatch {
			note += fmt.Sprintf("; amount mismatch: recorded %d, reported %d", payment.Amount, event.ReportedAmount)
		}
		entry := models.OrderStatusLog{
			OrderID:   payment.OrderID,
			OldStatus: string(payment.Status),
			NewStatus: string(event.ReportedStatus),
			Note:      note,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &ConfirmResult{
			OrderID:        payment.OrderID.String(),
			OldStatus:      payment.Status,
			NewStatus:      event.ReportedStatus,
			AmountMismatch: mismatch,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if conflictErr != nil {
		return nil, conflictErr
	}
	return result, nil
}

func diffAbs(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
