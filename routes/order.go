package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	orderControllers "github.com/Tarunnagpal7/Mom-Kitchen-Backend/controllers/order"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/middleware"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/models"
)

func SetupOrderRoutes(r *gin.Engine, db *gorm.DB, deps Dependencies) {
	orders := r.Group("/orders")
	orders.Use(middleware.Authenticate)
	{
		// Batch checkout, returns the client payment secret
		orders.POST("",
			middleware.RequireRoles(models.RoleCustomer),
			orderControllers.CreateOrderHandler(db, deps.Gateway))

		// Role-scoped listing and lookup
		orders.GET("", orderControllers.GetOrdersHandler(db))
		orders.GET("/stats",
			middleware.RequireRoles(models.RoleMom, models.RoleAdmin),
			orderControllers.GetOrderStatsHandler(db))
		orders.GET("/:orderID", orderControllers.GetOrderByIDHandler(db))

		// websocket endpoint for real-time order updates
		orders.GET("/ws", orderControllers.OrderWebSocketHandler)

		// Lifecycle transitions
		orders.PUT("/:orderID/status",
			middleware.RequireRoles(models.RoleMom, models.RoleAdmin),
			orderControllers.UpdateOrderStatusHandler(db))
		orders.PUT("/:orderID/cancel",
			middleware.RequireRoles(models.RoleCustomer, models.RoleAdmin),
			orderControllers.CancelOrderHandler(db))

		// Delivery dispatch
		orders.POST("/:orderID/assign-delivery",
			middleware.RequireRoles(models.RoleMom, models.RoleAdmin),
			orderControllers.AssignDeliveryHandler(db, deps.Tracker, deps.Notifier))
	}
}
