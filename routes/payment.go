package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	paymentControllers "github.com/Tarunnagpal7/Mom-Kitchen-Backend/controllers/payment"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/middleware"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/models"
)

func SetupPaymentRoutes(r *gin.Engine, db *gorm.DB, deps Dependencies) {
	payment := r.Group("/payments")
	{
		// Webhook endpoint: signature verification needs the raw body, so no
		// auth middleware and no body-parsing middleware in front of it.
		payment.POST("/webhook", paymentControllers.StripeWebhookHandler(db, deps.Webhooks))

		authed := payment.Group("")
		authed.Use(middleware.Authenticate)
		{
			authed.POST("/verify-payment",
				middleware.RequireRoles(models.RoleCustomer, models.RoleAdmin),
				paymentControllers.VerifyPaymentHandler(db, deps.Gateway))
			authed.POST("/fail-payment",
				middleware.RequireRoles(models.RoleCustomer, models.RoleAdmin),
				paymentControllers.FailPaymentHandler(db))
		}
	}
}
