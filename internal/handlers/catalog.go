package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/orchid/internal/models"
	"github.com/example/orchid/internal/utils"
)

// CatalogHandler manages the lookup-table side of the catalog:
// categories, sizes and colors.
type CatalogHandler struct {
	db *gorm.DB
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

// ListCategories returns paginated categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	var categories []models.Category
	var total int64

	if err := h.db.Model(&models.Category{}).Count(&total).Error; err != nil {
		return err
	}

	if err := h.db.Limit(pg.Limit).Offset(pg.Offset).Order("created_at desc").
		Find(&categories).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    categories,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetCategory returns a single category by ID.
func (h *CatalogHandler) GetCategory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var category models.Category
	if err := h.db.First(&category, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "category not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": category})
}

// CreateCategory persists a new category.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var payload models.Category
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.db.Create(&payload).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": payload})
}

// UpdateCategory updates an existing category.
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var category models.Category
	if err := h.db.First(&category, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "category not found")
		}
		return err
	}

	var payload models.Category
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	payload.ID = category.ID
	if err := h.db.Model(&category).Updates(payload).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": category})
}

// DeleteCategory removes a category by ID.
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.db.Delete(&models.Category{}, "id = ?", id).Error; err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Generic helpers for simple lookup tables.

func (h *CatalogHandler) listSimple(c *fiber.Ctx, model interface{}) error {
	pg := utils.ParsePagination(c)
	var total int64
	if err := h.db.Model(model).Count(&total).Error; err != nil {
		return err
	}
	if err := h.db.Limit(pg.Limit).Offset(pg.Offset).Order("created_at desc").
		Find(model).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": model, "pagination": fiber.Map{
		"current_page":   pg.Page,
		"items_per_page": pg.Limit,
		"total_items":    total,
	}})
}

func (h *CatalogHandler) getSimple(c *fiber.Ctx, model interface{}) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	if err := h.db.First(model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "resource not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": model})
}

func (h *CatalogHandler) createSimple(c *fiber.Ctx, model interface{}) error {
	if err := c.BodyParser(model); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.db.Create(model).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": model})
}

func (h *CatalogHandler) updateSimple(c *fiber.Ctx, model interface{}) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	if err := h.db.First(model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "resource not found")
		}
		return err
	}
	if err := c.BodyParser(model); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.db.Save(model).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": model})
}

func (h *CatalogHandler) deleteSimple(c *fiber.Ctx, model interface{}) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	if err := h.db.Delete(model, "id = ?", id).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandler) ListSizes(c *fiber.Ctx) error {
	var items []models.Size
	return h.listSimple(c, &items)
}

func (h *CatalogHandler) GetSize(c *fiber.Ctx) error {
	var item models.Size
	return h.getSimple(c, &item)
}

func (h *CatalogHandler) CreateSize(c *fiber.Ctx) error {
	var item models.Size
	return h.createSimple(c, &item)
}

func (h *CatalogHandler) UpdateSize(c *fiber.Ctx) error {
	var item models.Size
	return h.updateSimple(c, &item)
}

func (h *CatalogHandler) DeleteSize(c *fiber.Ctx) error {
	var item models.Size
	return h.deleteSimple(c, &item)
}

func (h *CatalogHandler) ListColors(c *fiber.Ctx) error {
	var items []models.Color
	return h.listSimple(c, &items)
}

func (h *CatalogHandler) GetColor(c *fiber.Ctx) error {
	var item models.Color
	return h.getSimple(c, &item)
}

func (h *CatalogHandler) CreateColor(c *fiber.Ctx) error {
	var item models.Color
	return h.createSimple(c, &item)
}

func (h *CatalogHandler) UpdateColor(c *fiber.Ctx) error {
	var item models.Color
	return h.updateSimple(c, &item)
}

func (h *CatalogHandler) DeleteColor(c *fiber.Ctx) error {
	var item models.Color
	return h.deleteSimple(c, &item)
}
