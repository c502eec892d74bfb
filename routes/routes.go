package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/services/payments"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/services/sms"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/services/tracking"
)

// Dependencies carries the external service clients handed to the handlers.
type Dependencies struct {
	Gateway  payments.Gateway
	Webhooks payments.WebhookVerifier
	Tracker  tracking.Provider
	Notifier sms.Notifier
}

// SetupRoutes is the single entry-point that wires up all route groups.
func SetupRoutes(r *gin.Engine, db *gorm.DB, deps Dependencies) {
	SetupMenuRoutes(r, db)
	SetupOrderRoutes(r, db, deps)
	SetupPaymentRoutes(r, db, deps)
}
