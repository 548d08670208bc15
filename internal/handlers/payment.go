package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/orchid/internal/gateway"
	"github.com/example/orchid/internal/middleware"
	"github.com/example/orchid/internal/models"
	"github.com/example/orchid/internal/services"
)

// PaymentHandler terminates the gateway callback protocols and the
// internal confirm endpoint. Each gateway keeps its own acknowledgement
// vocabulary; everything funnels into the confirmation service as a
// canonical PaymentEvent.
type PaymentHandler struct {
	db       *gorm.DB
	confirm  *services.PaymentConfirmationService
	vnpay    *gateway.VNPay
	momo     *gateway.MoMo
	telegram *services.TelegramService
}

func NewPaymentHandler(db *gorm.DB, confirm *services.PaymentConfirmationService, vnpay *gateway.VNPay, momo *gateway.MoMo, telegram *services.TelegramService) *PaymentHandler {
	return &PaymentHandler{db: db, confirm: confirm, vnpay: vnpay, momo: momo, telegram: telegram}
}

type initiatePaymentRequest struct {
	Gateway string `json:"gateway"`
}

// InitiatePayment binds a transaction code to the order's payment before
// the customer is sent to the gateway. The code is what the gateway
// echoes back in its callbacks, so it must exist first.
func (h *PaymentHandler) InitiatePayment(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req initiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Gateway != "vnpay" && req.Gateway != "momo" {
		return fiber.NewError(fiber.StatusBadRequest, "gateway must be vnpay or momo")
	}

	var payment models.Payment
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ? AND user_id = ?", orderID, userID).Error; err != nil {
			return err
		}

		if err := tx.First(&payment, "order_id = ?", order.ID).Error; err != nil {
			return err
		}
		if payment.Status.IsTerminal() {
			return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("payment is already %s", payment.Status))
		}

		if payment.TransactionCode == nil {
			code := fmt.Sprintf("TXN%s", strings.ToUpper(strings.ReplaceAll(payment.ID.String(), "-", "")[:12]))
			payment.TransactionCode = &code
		}
		payment.Gateway = req.Gateway
		payment.Status = models.PaymentUnpaid

		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(map[string]any{
			"transaction_code": payment.TransactionCode,
			"gateway":          payment.Gateway,
			"status":           payment.Status,
		}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("payment_status", models.PaymentUnpaid).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"transaction_code": payment.TransactionCode,
			"gateway":          payment.Gateway,
			"amount":           payment.Amount,
		},
	})
}

// VNPayReturn handles the simplified browser return path. The answer is
// JSON with VNPay's integer response-code convention (0 = success).
func (h *PaymentHandler) VNPayReturn(c *fiber.Ctx) error {
	params := queryParams(c)

	if err := h.vnpay.Verify(params); err != nil {
		log.Printf("[VNPay] return verification failed for txn %q from %s: %v", params["vnp_TxnRef"], c.IP(), err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"code": 97, "message": "invalid signature"})
	}

	event := h.vnpay.Normalize(params)
	result, err := h.confirm.Confirm(c.Context(), event)
	if err != nil {
		return writeStatusError(c, err)
	}

	h.recordBankDetails(event.TransactionCode, params["vnp_BankCode"], params["vnp_BankTranNo"])
	h.notifyIfPaid(event, result)

	return c.JSON(fiber.Map{"code": 0, "message": "success", "data": result})
}

// VNPayIPN handles the signed server-to-server webhook. VNPay retries
// until it receives RspCode 00, so every outcome must map onto its
// response-code vocabulary.
func (h *PaymentHandler) VNPayIPN(c *fiber.Ctx) error {
	params := queryParams(c)

	if err := h.vnpay.Verify(params); err != nil {
		log.Printf("[VNPay] IPN verification failed for txn %q from %s: %v", params["vnp_TxnRef"], c.IP(), err)
		return c.JSON(fiber.Map{"RspCode": "97", "Message": "Invalid Signature"})
	}

	event := h.vnpay.Normalize(params)
	result, err := h.confirm.Confirm(c.Context(), event)
	if err != nil {
		var statusErr *services.StatusError
		if errors.As(err, &statusErr) {
			switch statusErr.Code {
			case services.CodePaymentNotFound:
				return c.JSON(fiber.Map{"RspCode": "01", "Message": "Order Not Found"})
			case services.CodeStatusConflict:
				return c.JSON(fiber.Map{"RspCode": "02", "Message": "Order Already Confirmed"})
			case services.CodeValidationError:
				return c.JSON(fiber.Map{"RspCode": "04", "Message": "Invalid Data"})
			}
		}
		log.Printf("[VNPay] IPN confirm failed for txn %q: %v", event.TransactionCode, err)
		return c.JSON(fiber.Map{"RspCode": "99", "Message": "Unknown Error"})
	}

	if result.Duplicate {
		return c.JSON(fiber.Map{"RspCode": "02", "Message": "Order Already Confirmed"})
	}

	h.recordBankDetails(event.TransactionCode, params["vnp_BankCode"], params["vnp_BankTranNo"])
	h.notifyIfPaid(event, result)

	if result.AmountMismatch {
		// Applied and flagged on our side; VNPay still gets told the
		// amount did not line up.
		return c.JSON(fiber.Map{"RspCode": "04", "Message": "Invalid Amount"})
	}

	return c.JSON(fiber.Map{"RspCode": "00", "Message": "Confirm Success"})
}

// momoIPNRequest is the fixed MoMo webhook field set.
type momoIPNRequest struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

// MoMoIPN handles the MoMo server-to-server webhook. MoMo treats a 204
// as acknowledgement; anything else triggers a redelivery.
func (h *PaymentHandler) MoMoIPN(c *fiber.Ctx) error {
	var req momoIPNRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	params := map[string]string{
		"partnerCode":  req.PartnerCode,
		"orderId":      req.OrderID,
		"requestId":    req.RequestID,
		"amount":       fmt.Sprintf("%d", req.Amount),
		"orderInfo":    req.OrderInfo,
		"orderType":    req.OrderType,
		"transId":      fmt.Sprintf("%d", req.TransID),
		"resultCode":   fmt.Sprintf("%d", req.ResultCode),
		"message":      req.Message,
		"payType":      req.PayType,
		"responseTime": fmt.Sprintf("%d", req.ResponseTime),
		"extraData":    req.ExtraData,
		"signature":    req.Signature,
	}

	if err := h.momo.Verify(params); err != nil {
		log.Printf("[MoMo] IPN verification failed for order %q from %s: %v", req.OrderID, c.IP(), err)
		return fiber.NewError(fiber.StatusBadRequest, "invalid signature")
	}

	event := h.momo.Normalize(params)
	result, err := h.confirm.Confirm(c.Context(), event)
	if err != nil {
		return writeStatusError(c, err)
	}

	h.notifyIfPaid(event, result)

	return c.SendStatus(fiber.StatusNoContent)
}

type genericConfirmRequest struct {
	TransactionCode string `json:"transactionCode"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
}

// Confirm is the staff-facing generic entry point: the canonical shape
// every gateway adapter normalizes into, exposed directly for manual
// reconciliation.
func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	var req genericConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	event := gateway.PaymentEvent{
		TransactionCode: req.TransactionCode,
		ReportedStatus:  models.PaymentStatus(req.Status),
		ReportedAmount:  req.Amount,
		Gateway:         "internal",
	}

	result, err := h.confirm.Confirm(c.Context(), event)
	if err != nil {
		return writeStatusError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}

// recordBankDetails stores gateway-supplied diagnostics on the payment.
// Best effort; failures are logged, never surfaced to the gateway.
func (h *PaymentHandler) recordBankDetails(transactionCode, bankCode, accountNumber string) {
	if bankCode == "" && accountNumber == "" {
		return
	}
	if err := h.db.Model(&models.Payment{}).
		Where("transaction_code = ?", transactionCode).
		Updates(map[string]any{"bank_code": bankCode, "account_number": accountNumber}).Error; err != nil {
		log.Printf("[Payment] failed to record bank details for txn %q: %v", transactionCode, err)
	}
}

// notifyIfPaid pushes a staff notification for first-time settlements.
func (h *PaymentHandler) notifyIfPaid(event gateway.PaymentEvent, result *services.ConfirmResult) {
	if h.telegram == nil || result == nil || result.Duplicate || result.NewStatus != models.PaymentPaid {
		return
	}
	go func() {
		var order models.Order
		if err := h.db.First(&order, "id = ?", result.OrderID).Error; err != nil {
			return
		}
		if err := h.telegram.NotifyPaymentReceived(order.OrderNumber, event.Gateway, event.TransactionCode, event.ReportedAmount, order.Currency); err != nil {
			log.Printf("[Payment] telegram notification failed for order %s: %v", order.OrderNumber, err)
		}
	}()
}

// queryParams flattens the request query string into a map for the
// gateway adapters.
func queryParams(c *fiber.Ctx) map[string]string {
	params := make(map[string]string)
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		params[string(key)] = string(value)
	})
	return params
}
