package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/orchid/internal/middleware"
	"github.com/example/orchid/internal/models"
	"github.com/example/orchid/internal/services"
	"github.com/example/orchid/internal/utils"
)

// AdminHandler manages the staff back office: dashboards, order listing
// and the order lifecycle actions.
type AdminHandler struct {
	db          *gorm.DB
	orderStatus *services.OrderStatusService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, orderStatus *services.OrderStatusService) *AdminHandler {
	return &AdminHandler{db: db, orderStatus: orderStatus}
}

// httpStatusForCode maps service error codes to HTTP statuses.
func httpStatusForCode(code string) int {
	switch code {
	case services.CodeValidationError:
		return fiber.StatusBadRequest
	case services.CodeOrderNotFound, services.CodePaymentNotFound:
		return fiber.StatusNotFound
	case services.CodeSameStatus, services.CodeInvalidTransition,
		services.CodeCannotCancel, services.CodeStatusConflict:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// writeStatusError renders a services.StatusError as a machine-readable
// envelope, or passes other errors through to the fiber error handler.
func writeStatusError(c *fiber.Ctx, err error) error {
	var statusErr *services.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	return c.Status(httpStatusForCode(statusErr.Code)).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    statusErr.Code,
			"message": statusErr.Message,
		},
	})
}

type advanceStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// AdvanceOrderStatus moves an order along the fulfillment pipeline.
func (h *AdminHandler) AdvanceOrderStatus(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req advanceStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var actor *uuid.UUID
	if staffID, ok := middleware.GetCurrentUserID(c); ok {
		actor = &staffID
	}

	result, err := h.orderStatus.AdvanceStatus(c.Context(), orderID, models.OrderStatus(req.Status), actor, req.Note)
	if err != nil {
		return writeStatusError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

// CancelOrder cancels a PENDING or CONFIRMED order.
func (h *AdminHandler) CancelOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req cancelOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var actor *uuid.UUID
	if staffID, ok := middleware.GetCurrentUserID(c); ok {
		actor = &staffID
	}

	result, err := h.orderStatus.Cancel(c.Context(), orderID, req.Reason, req.Note, actor)
	if err != nil {
		return writeStatusError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	var totalUsers int64
	if err := h.db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	var totalOrders int64
	if err := h.db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return err
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var statusCounts []statusCount
	if err := h.db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return err
	}

	ordersByStatus := make(map[string]int64)
	for _, sc := range statusCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	// Revenue counts paid money only; the two status axes are
	// independent, so filter on payment_status rather than status.
	var totalRevenue int64
	if err := h.db.Model(&models.Order{}).
		Where("payment_status = ?", models.PaymentPaid).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&totalRevenue).Error; err != nil {
		return err
	}

	var todayRevenue int64
	if err := h.db.Model(&models.Order{}).
		Where("payment_status = ? AND placed_at::date = CURRENT_DATE", models.PaymentPaid).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&todayRevenue).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_users":      totalUsers,
			"total_orders":     totalOrders,
			"total_revenue":    totalRevenue,
			"today_revenue":    todayRevenue,
			"orders_by_status": ordersByStatus,
		},
	})
}

// ListAllOrders returns all orders with pagination, filtering and user info.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus := c.Query("payment_status"); paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where(
			"order_number ILIKE ? OR recipient ILIKE ? OR phone ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%",
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").Preload("Payment").Preload("User").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetOrderDetail returns one order with items, payment and full timeline.
func (h *AdminHandler) GetOrderDetail(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").Preload("Payment").Preload("User").
		First(&order, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	var logs []models.OrderStatusLog
	if err := h.db.Where("order_id = ?", order.ID).
		Order("created_at asc").
		Find(&logs).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order":    order,
			"timeline": logs,
		},
	})
}

// ListPayments returns payment records, optionally filtered.
func (h *AdminHandler) ListPayments(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Payment{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if gatewayTag := c.Query("gateway"); gatewayTag != "" {
		query = query.Where("gateway = ?", gatewayTag)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var payments []models.Payment
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&payments).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    payments,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}
