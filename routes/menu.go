package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	menuControllers "github.com/Tarunnagpal7/Mom-Kitchen-Backend/controllers/menu"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/middleware"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/models"
)

func SetupMenuRoutes(r *gin.Engine, db *gorm.DB) {
	menus := r.Group("/menus")
	menus.Use(middleware.Authenticate)
	{
		menus.GET("", menuControllers.ListMenusHandler(db))
		menus.GET("/:menuID", menuControllers.GetMenuHandler(db))

		menus.POST("",
			middleware.RequireRoles(models.RoleMom),
			menuControllers.CreateMenuHandler(db))
		menus.PUT("/:menuID/deactivate",
			middleware.RequireRoles(models.RoleMom, models.RoleAdmin),
			menuControllers.DeactivateMenuHandler(db))
	}
}
