package handlers

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/orchid/internal/middleware"
	"github.com/example/orchid/internal/models"
	"github.com/example/orchid/internal/services"
	"github.com/example/orchid/internal/utils"
)

// OrderHandler manages customer-facing order endpoints.
type OrderHandler struct {
	db       *gorm.DB
	telegram *services.TelegramService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, telegram *services.TelegramService) *OrderHandler {
	return &OrderHandler{db: db, telegram: telegram}
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	SizeName  string `json:"size_name"`
	ColorName string `json:"color_name"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	PaymentMethod string             `json:"payment_method"`
	AddressID     string             `json:"address_id"`
	Recipient     string             `json:"recipient"`
	Phone         string             `json:"phone"`
	AddressLine   string             `json:"address_line"`
	Ward          string             `json:"ward"`
	District      string             `json:"district"`
	City          string             `json:"city"`
	Note          string             `json:"note"`
	Items         []orderItemRequest `json:"items"`
}

// CreateOrder places an order for the authenticated user. The order and
// its 1:1 payment record are created together in PENDING; gateway
// callbacks later mutate the payment, staff actions drive the order.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	method := models.PaymentMethod(req.PaymentMethod)
	switch method {
	case models.MethodCash, models.MethodCreditCard, models.MethodEWallet, models.MethodBankTransfer:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "invalid payment method")
	}

	if len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "order must contain at least one item")
	}

	order := models.Order{
		UserID:        userID,
		OrderNumber:   generateOrderNumber(),
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentPending,
		PaymentMethod: method,
		Currency:      "VND",
		Recipient:     req.Recipient,
		Phone:         req.Phone,
		AddressLine:   req.AddressLine,
		Ward:          req.Ward,
		District:      req.District,
		City:          req.City,
		Note:          req.Note,
		PlacedAt:      time.Now(),
	}

	// A saved address takes precedence over the inline snapshot fields.
	if req.AddressID != "" {
		if id, err := uuid.Parse(req.AddressID); err == nil {
			var address models.UserAddress
			if err := h.db.First(&address, "id = ? AND user_id = ?", id, userID).Error; err == nil {
				order.Recipient = address.Recipient
				order.Phone = address.Phone
				order.AddressLine = address.AddressLine
				order.Ward = address.Ward
				order.District = address.District
				order.City = address.City
			}
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var total int64
		for _, it := range req.Items {
			productID, err := uuid.Parse(it.ProductID)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid product_id")
			}
			if it.Quantity <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "quantity must be positive")
			}

			var product models.Product
			if err := tx.First(&product, "id = ? AND is_active = ?", productID, true).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("product %s not available", productID))
				}
				return err
			}

			lineTotal := product.Price * int64(it.Quantity)
			order.Items = append(order.Items, models.OrderItem{
				ProductID:   &product.ID,
				ProductName: product.Name,
				SizeName:    it.SizeName,
				ColorName:   it.ColorName,
				Quantity:    it.Quantity,
				UnitPrice:   product.Price,
				LineTotal:   lineTotal,
			})
			total += lineTotal
		}
		order.TotalAmount = total

		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		payment := models.Payment{
			OrderID: order.ID,
			Status:  models.PaymentPending,
			Amount:  order.TotalAmount,
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return err
	}

	if h.telegram != nil {
		go func() {
			var user models.User
			name := ""
			if err := h.db.First(&user, "id = ?", userID).Error; err == nil {
				name = fmt.Sprintf("%s %s", user.FirstName, user.LastName)
			}
			if err := h.telegram.NotifyNewOrder(order, name); err != nil {
				log.Printf("[Order] telegram notification failed for %s: %v", order.OrderNumber, err)
			}
		}()
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":             order.ID,
			"order_number":   order.OrderNumber,
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
			"placed_at":      order.PlacedAt,
			"total":          order.TotalAmount,
			"currency":       order.Currency,
		},
	})
}

// ListOrders returns orders for the authenticated user.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Where("user_id = ?", userID).Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").Preload("Payment").
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

// GetOrder returns a single order for the authenticated user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").Preload("Payment").
		First(&order, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// GetOrderTimeline returns the append-only status history of one of the
// user's orders, oldest first.
func (h *OrderHandler) GetOrderTimeline(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Select("id").First(&order, "id = ? AND user_id = ?", id, userID).Error; err != nil {
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

	return c.JSON(fiber.Map{"success": true, "data": logs})
}

func generateOrderNumber() string {
	return fmt.Sprintf("#%d", time.Now().UnixNano()%1000000000)
}
