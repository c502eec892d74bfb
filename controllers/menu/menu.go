package menuControllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/middleware"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/models"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/utils"
)

type menuItemRequest struct {
	ItemName    string `json:"item_name" binding:"required"`
	Description string `json:"description"`
	Veg         *bool  `json:"veg"`
	Category    string `json:"category"`
}

type createMenuRequest struct {
	Name           string            `json:"name" binding:"required"`
	Description    string            `json:"description"`
	ImageURL       string            `json:"image_url"`
	TotalCost      float64           `json:"total_cost" binding:"required,min=0"`
	MaxOrders      int               `json:"max_orders" binding:"min=0,max=15"`
	AvailableFrom  *time.Time        `json:"available_from"`
	AvailableUntil *time.Time        `json:"available_until"`
	Items          []menuItemRequest `json:"items" binding:"dive"`
}

// CreateMenuHandler lists a new menu for the authenticated mom.
func CreateMenuHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.CurrentUser(c)

		var req createMenuRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}

		availableFrom := time.Now()
		if req.AvailableFrom != nil {
			availableFrom = *req.AvailableFrom
		}

		menu := models.Menu{
			ID:             uuid.NewString(),
			MomID:          principal.ID,
			Name:           req.Name,
			Description:    req.Description,
			ImageURL:       req.ImageURL,
			Active:         true,
			TotalCost:      req.TotalCost,
			AvailableFrom:  availableFrom,
			AvailableUntil: req.AvailableUntil,
			MaxOrders:      req.MaxOrders,
		}
		for _, item := range req.Items {
			veg := true
			if item.Veg != nil {
				veg = *item.Veg
			}
			menu.Items = append(menu.Items, models.MenuItem{
				ID:          uuid.NewString(),
				ItemName:    item.ItemName,
				Description: item.Description,
				Veg:         veg,
				Category:    item.Category,
			})
		}

		if err := db.Create(&menu).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Could not create menu"})
			return
		}

		utils.DeleteCachePattern("menus:*")
		c.JSON(http.StatusCreated, gin.H{
			"status":  "success",
			"message": "Menu created successfully",
			"data":    gin.H{"menu": menu},
		})
	}
}

// ListMenusHandler returns active menus, read through the cache.
func ListMenusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		const cacheKey = "menus:active"

		var menus []models.Menu
		if !utils.GetCache(cacheKey, &menus) {
			if err := db.Preload("Items").
				Where("active = ?", true).
				Order("created_at DESC").
				Find(&menus).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
				return
			}
			utils.SetCache(cacheKey, menus, 10*time.Minute)
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"menus": menus}})
	}
}

// GetMenuHandler returns one menu with its items, read through the cache.
func GetMenuHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		menuID := c.Param("menuID")
		cacheKey := "menus:" + menuID

		var menu models.Menu
		if !utils.GetCache(cacheKey, &menu) {
			if err := db.Preload("Items").First(&menu, "id = ?", menuID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Menu not found"})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
				return
			}
			utils.SetCache(cacheKey, menu, 10*time.Minute)
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"menu": menu}})
	}
}

// DeactivateMenuHandler takes a menu off the marketplace (owner or admin).
func DeactivateMenuHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.CurrentUser(c)
		menuID := c.Param("menuID")

		query := db.Model(&models.Menu{}).Where("id = ?", menuID)
		if principal.Role == models.RoleMom {
			query = query.Where("mom_id = ?", principal.ID)
		}

		res := query.Update("active", false)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Menu not found or unauthorized"})
			return
		}

		utils.DeleteCachePattern("menus:*")
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Menu deactivated"})
	}
}
