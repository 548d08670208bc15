package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/orchid/internal/models"
)

// orderTransitions is the single source of truth for legal fulfillment
// transitions. Each status has at most one successor; CANCELLED is not
// here because it is only reachable through Cancel.
var orderTransitions = map[models.OrderStatus]models.OrderStatus{
	models.OrderPending:   models.OrderConfirmed,
	models.OrderConfirmed: models.OrderShipped,
	models.OrderShipped:   models.OrderCompleted,
}

// OrderStatusService is the order state machine. Every status mutation
// and its audit row are applied inside one transaction holding a row
// lock on the order, so concurrent calls on the same order serialize and
// the loser observes the winner's result.
type OrderStatusService struct {
	db *gorm.DB
}

func NewOrderStatusService(db *gorm.DB) *OrderStatusService {
	return &OrderStatusService{db: db}
}

// TransitionResult reports an accepted transition back to the caller.
type TransitionResult struct {
	OrderID       uuid.UUID            `json:"order_id"`
	OldStatus     models.OrderStatus   `json:"old_status"`
	NewStatus     models.OrderStatus   `json:"new_status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
}

// AdvanceStatus moves an order to the requested status if it is the
// single allowed successor of the current one. Reaching COMPLETED also
// forces the payment status to PAID: completion implies the money was
// collected, which covers CASH orders that never see a gateway.
func (s *OrderStatusService) AdvanceStatus(ctx context.Context, orderID uuid.UUID, requested models.OrderStatus, actor *uuid.UUID, note string) (*TransitionResult, error) {
	switch requested {
	case models.OrderConfirmed, models.OrderShipped, models.OrderCompleted:
	default:
		return nil, newStatusError(CodeValidationError, "status must be one of CONFIRMED, SHIPPED, COMPLETED; got %q", requested)
	}

	var result *TransitionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newStatusError(CodeOrderNotFound, "order %s not found", orderID)
			}
			return err
		}

		if order.Status == requested {
			return newStatusError(CodeSameStatus, "order is already %s", order.Status)
		}

		next, ok := orderTransitions[order.Status]
		if !ok {
			return newStatusError(CodeInvalidTransition, "order is %s and cannot change status", order.Status)
		}
		if next != requested {
			return newStatusError(CodeInvalidTransition, "cannot move order from %s to %s; the allowed next status is %s", order.Status, requested, next)
		}

		updates := map[string]any{"status": requested}
		paymentStatus := order.PaymentStatus
		if requested == models.OrderCompleted {
			paymentStatus = models.PaymentPaid
			updates["payment_status"] = models.PaymentPaid
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return err
		}

		logNote := note
		if requested == models.OrderCompleted && order.PaymentStatus != models.PaymentPaid {
			logNote = appendNote(logNote, fmt.Sprintf("payment status %s -> %s on completion", order.PaymentStatus, models.PaymentPaid))
		}
		entry := models.OrderStatusLog{
			OrderID:   order.ID,
			OldStatus: string(order.Status),
			NewStatus: string(requested),
			ChangedBy: actor,
			Note:      logNote,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &TransitionResult{
			OrderID:       order.ID,
			OldStatus:     order.Status,
			NewStatus:     requested,
			PaymentStatus: paymentStatus,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel moves an order to CANCELLED. Only PENDING and CONFIRMED orders
// can be cancelled; the payment status follows to CANCELLED in the same
// transaction.
func (s *OrderStatusService) Cancel(ctx context.Context, orderID uuid.UUID, reason, note string, actor *uuid.UUID) (*TransitionResult, error) {
	if reason == "" {
		return nil, newStatusError(CodeValidationError, "cancellation reason is required")
	}

	var result *TransitionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newStatusError(CodeOrderNotFound, "order %s not found", orderID)
			}
			return err
		}

		if order.Status != models.OrderPending && order.Status != models.OrderConfirmed {
			return newStatusError(CodeCannotCancel, "order is %s; only PENDING or CONFIRMED orders can be cancelled", order.Status)
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
			"status":         models.OrderCancelled,
			"payment_status": models.PaymentCancelled,
		}).Error; err != nil {
			return err
		}

		entry := models.OrderStatusLog{
			OrderID:   order.ID,
			OldStatus: string(order.Status),
			NewStatus: string(models.OrderCancelled),
			ChangedBy: actor,
			Note:      appendNote(fmt.Sprintf("reason: %s", reason), note),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &TransitionResult{
			OrderID:       order.ID,
			OldStatus:     order.Status,
			NewStatus:     models.OrderCancelled,
			PaymentStatus: models.PaymentCancelled,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func appendNote(base, extra string) string {
	if extra == "" {
		return base
	}
	if base == "" {
		return extra
	}
	return base + "; " + extra
}
