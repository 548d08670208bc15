package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/orchid/internal/models"
)

func TestAdvanceStatusHappyPath(t *testing.T) {
	svc := NewOrderStatusService(testDB)
	order := seedOrder(t, models.OrderPending, models.PaymentUnpaid, "", 250000)

	result, err := svc.AdvanceStatus(context.Background(), order.ID, models.OrderConfirmed, &testUserID, "stock checked")
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, result.OldStatus)
	assert.Equal(t, models.OrderConfirmed, result.NewStatus)
	assert.Equal(t, models.PaymentUnpaid, result.PaymentStatus)

	reloaded := reloadOrder(t, order.ID)
	assert.Equal(t, models.OrderConfirmed, reloaded.Status)
	assert.Equal(t, models.PaymentUnpaid, reloaded.PaymentStatus)

	logs := auditRows(t, order.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, "PENDING", logs[0].OldStatus)
	assert.Equal(t, "CONFIRMED", logs[0].NewStatus)
	require.NotNil(t, logs[0].ChangedBy)
	assert.Equal(t, testUserID, *logs[0].ChangedBy)
	assert.Equal(t, "stock checked", logs[0].Note)
}

func TestAdvanceStatusFullLifecycle(t *testing.T) {
	svc := NewOrderStatusService(testDB)
	order := seedOrder(t, models.OrderPending, models.PaymentPaid, "", 250000)

	for _, next := range []models.OrderStatus{models.OrderConfirmed, models.OrderShipped, models.OrderCompleted} {
		_, err := svc.AdvanceStatus(context.Background(), order.ID, next, nil, "")
		require.NoError(t, err, "advancing to %s", next)
	}

	assert.Equal(t, models.OrderCompleted, reloadOrder(t, order.ID).Status)
	assert.Len(t, auditRows(t, order.ID), 3)
}

func TestAdvanceStatusSameStatus(t *testing.T) {
	svc := NewOrderStatusService(testDB)
	order := seedOrder(t, models.OrderConfirmed, models.PaymentUnpaid, "", 250000)

	_, err := svc.AdvanceStatus(context.Background(), order.ID, models.OrderConfirmed, nil, "")
	requireStatusCode(t, err, CodeSameStatus)

	assert.Empty(t, auditRows(t, order.ID))
}

func TestAdvanceStatusIllegalTransitions(t *testing.T) {
	svc := NewOrderStatusService(testDB)

	cases := []struct {
		from models.OrderStatus
		to   models.OrderStatus
	}{
		{models.OrderPending, models.OrderShipped},
		{models.OrderPending, models.OrderCompleted},
		{models.OrderConfirmed, models.OrderCompleted},
		{models.OrderShipped, models.OrderConfirmed},
		{models.OrderCompleted, models.OrderConfirmed},
		{models.OrderCompleted, models.OrderShipped},
		{models.OrderCancelled, models.OrderConfirmed},
		{models.OrderCancelled, models.OrderShipped},
		{models.OrderCancelled, models.OrderCompleted},
	}
	for _, tc := range cases {
		order := seedOrder(t, tc.from, models.PaymentUnpaid, "", 250000)

		_, err := svc.AdvanceStatus(context.Background(), order.ID, tc.to, nil, "")
		requireStatusCode(t, err, CodeInvalidTransition)

		assert.Equal(t, tc.from, reloadOrder(t, order.ID).Status, "%s -> %s must not mutate", tc.from, tc.to)
		assert.Empty(t, auditRows(t, order.ID), "%s -> %s must not log", tc.from, tc.to)
	}
}

func TestAdvanceStatusRejectsNonTargets(t *testing.T) {
	svc := NewOrderStatusService(testDB)
	order := seedOrder(t, models.OrderConfirmed, models.PaymentUnpaid, "", 250000)

	for _, target := range []models.OrderStatus{models.OrderPending, models.OrderCancelled, "SHIPPING", ""} {
		_, err := svc.AdvanceStatus(context.Background(), order.ID, target, nil, "")
		requireStatusCode(t, err, CodeValidationError)
	}
}

func TestAdvanceStatusOrderNotFound(t *testing.T) {
	svc := NewOrderStatusService(testDB)

	_, err := svc.AdvanceStatus(context.Background(), uuid.New(), models.OrderConfirmed, nil, "")
	requireStatusCode(t, err, CodeOrderNotFound)
}

func TestCompletionForcesPaid(t *testing.T) {
	svc := NewOrderStatusService(testDB)
	order := seedOrder(t, models.OrderShipped, models.PaymentUnpaid, "", 250000)

	result, err := svc.AdvanceStatus(context.Background(), order.ID, models.OrderCompleted, &testUserID, "delivered")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, result.PaymentStatus)

	reloaded := reloadOrder(t, order.ID)
	assert.Equal(t, models.OrderCompleted, reloaded.Status)
	assert.Equal(t, models.PaymentPaid, reloaded.PaymentStatus)

	logs := auditRows(t, order.ID)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Note, "payment status UNPAID -> PAID on completion")
}

func TestCompletionOfPaidOrderKeepsNoteClean(t *testing.T) {
	svc := NewOrderStatusService(testDB)
	order := seedOrder(t, models.OrderShipped, models.PaymentPaid, "", 250000)

	_, err := svc.AdvanceStatus(context.Background(), order.ID, models.OrderCompleted, nil, "delivered")
	require.NoError(t, err)

	logs := auditRows(t, order.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, "delivered", logs[0].Note)
}

func TestCancelPendingOrder(t *testing.T) {
	svc := NewOrderStatusService(testDB)
	order := seedOrder(t, models.OrderPending, models.PaymentUnpaid, "", 250000)

	result, err := svc.Cancel(context.Background(), order.ID, "customer request", "called support", &testUserID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, result.NewStatus)
	assert.Equal(t, models.PaymentCancelled, result.PaymentStatus)

	reloaded := reloadOrder(t, order.ID)
	assert.Equal(t, models.OrderCancelled, reloaded.Status)
	assert.Equal(t, models.PaymentCancelled, reloaded.PaymentStatus)

	logs := auditRows(t, order.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, "reason: customer request; called support", logs[0].Note)
}

func TestCancelConfirmedOrder(t *testing.T) {
	svc := NewOrderStatusService(testDB)
	order := seedOrder(t, models.OrderConfirmed, models.PaymentUnpaid, "", 250000)

	_, err := svc.Cancel(context.Background(), order.ID, "out of stock", "", nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, reloadOrder(t, order.ID).Status)
}

func TestCancelRejectedAfterShipment(t *testing.T) {
	svc := NewOrderStatusService(testDB)

	for _, from := range []models.OrderStatus{models.OrderShipped, models.OrderCompleted, models.OrderCancelled} {
		order := seedOrder(t, from, models.PaymentPaid, "", 250000)

		_, err := svc.Cancel(context.Background(), order.ID, "too late", "", nil)
		requireStatusCode(t, err, CodeCannotCancel)

		assert.Equal(t, from, reloadOrder(t, order.ID).Status)
	}
}

func TestCancelRequiresReason(t *testing.T) {
	svc := NewOrderStatusService(testDB)
	order := seedOrder(t, models.OrderPending, models.PaymentUnpaid, "", 250000)

	_, err := svc.Cancel(context.Background(), order.ID, "", "note only", nil)
	requireStatusCode(t, err, CodeValidationError)
}

// Two staff members click "confirm" at the same moment; exactly one
// transition and one audit row must result.
func TestAdvanceStatusConcurrentSingleWinner(t *testing.T) {
	svc := NewOrderStatusService(testDB)
	order := seedOrder(t, models.OrderPending, models.PaymentUnpaid, "", 250000)

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AdvanceStatus(context.Background(), order.ID, models.OrderConfirmed, nil, "")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, CodeSameStatus, statusErr.Code)
	}
	assert.Equal(t, 1, wins)

	assert.Equal(t, models.OrderConfirmed, reloadOrder(t, order.ID).Status)
	assert.Len(t, auditRows(t, order.ID), 1)
}

func TestTransitionErrorNamesAllowedNextStatus(t *testing.T) {
	svc := NewOrderStatusService(testDB)
	order := seedOrder(t, models.OrderPending, models.PaymentUnpaid, "", 250000)

	_, err := svc.AdvanceStatus(context.Background(), order.ID, models.OrderShipped, nil, "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "CONFIRMED"), "error should name the allowed next status: %v", err)
}
