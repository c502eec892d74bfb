package orderControllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/middleware"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/models"
)

type statusBucket struct {
	Status      models.OrderStatus `json:"status"`
	Count       int64              `json:"count"`
	TotalAmount float64            `json:"total_amount"`
}

// GetOrderStatsHandler returns per-status counts and revenue for the vendor
// dashboard. Moms see their own orders only; admins see everything.
func GetOrderStatsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.CurrentUser(c)

		query := db.Model(&models.Order{})
		if principal.Role == models.RoleMom {
			query = query.Where("mom_id = ?", principal.ID)
		}

		var buckets []statusBucket
		if err := query.
			Select("status, COUNT(*) AS count, SUM(total_amount) AS total_amount").
			Group("status").
			Scan(&buckets).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
			return
		}

		var totalOrders int64
		var totalRevenue float64
		for _, b := range buckets {
			totalOrders += b.Count
			if b.Status == models.OrderStatusDelivered {
				totalRevenue += b.TotalAmount
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data": gin.H{
				"stats":        buckets,
				"totalOrders":  totalOrders,
				"totalRevenue": totalRevenue,
			},
		})
	}
}
