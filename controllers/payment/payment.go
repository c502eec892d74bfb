package paymentControllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/middleware"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/models"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/services/payments"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/utils"
)

type intentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// -------- Reconciliation Core --------

// ReconcileSuccess marks every still-pending order on the intent
// paid/confirmed and appends exactly one Payment audit row. Both the webhook
// and the client-driven verify call land here; the audit row's unique
// provider reference makes redelivery a no-op. Orders that already left
// pending (cancelled by the customer or reclaimed by the expiry sweep) are
// never resurrected: their capacity went back to the menu, so flipping them
// to confirmed would sell the same portions twice. A success event whose
// orders have all been cancelled still gets its audit row, flagged for
// refund.
func ReconcileSuccess(db *gorm.DB, intent *payments.Intent) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing models.Payment
		err := tx.First(&existing, "provider_payment_id = ?", intent.ID).Error
		if err == nil {
			// already processed, webhooks may be redelivered
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		res := tx.Model(&models.Order{}).
			Where("payment_intent_id = ? AND status = ?", intent.ID, models.OrderStatusPending).
			Updates(map[string]interface{}{
				"status":         models.OrderStatusConfirmed,
				"payment_status": models.PaymentStatusPaid,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var total int64
			if err := tx.Model(&models.Order{}).
				Where("payment_intent_id = ?", intent.ID).
				Count(&total).Error; err != nil {
				return err
			}
			if total == 0 {
				return models.ErrNotFound
			}
			// Every order on this intent was already cancelled and its
			// capacity restored. Keep the audit row so redelivery stays a
			// no-op and the charge can be refunded manually.
			logrus.WithField("payment_intent_id", intent.ID).
				Warn("payment succeeded for orders no longer pending, recording for refund")
		}

		customerID := intent.UserID
		if customerID == "" {
			var order models.Order
			if err := tx.First(&order, "payment_intent_id = ?", intent.ID).Error; err == nil {
				customerID = order.CustomerID
			}
		}

		method := intent.Method
		if method == "" {
			method = "card"
		}

		return tx.Create(&models.Payment{
			ID:                uuid.NewString(),
			CustomerID:        customerID,
			Amount:            float64(intent.Amount) / 100,
			Method:            method,
			Status:            models.PaymentRecordSuccess,
			ProviderPaymentID: intent.ID,
			PaymentDate:       time.Now(),
		}).Error
	})
	if err != nil {
		return err
	}

	utils.DeleteCachePattern("orders:*")
	return nil
}

// ReconcileFailure is the compensating path: every still-pending order on the
// intent gives its reserved quantity back to the menu and moves to
// cancelled/failed. Safe to call repeatedly; the status guard on each order
// update prevents double restores, and orders that already progressed past
// pending are left alone.
func ReconcileFailure(db *gorm.DB, intentID string) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var orders []models.Order
		if err := tx.Find(&orders, "payment_intent_id = ?", intentID).Error; err != nil {
			return err
		}
		if len(orders) == 0 {
			return models.ErrNotFound
		}

		for _, order := range orders {
			res := tx.Model(&models.Order{}).
				Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
				Updates(map[string]interface{}{
					"status":         models.OrderStatusCancelled,
					"payment_status": models.PaymentStatusFailed,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue // already compensated
			}
			if err := tx.Model(&models.Menu{}).
				Where("id = ?", order.MenuID).
				Update("max_orders", gorm.Expr("max_orders + ?", order.Quantity)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	utils.DeleteCachePattern("orders:*")
	return nil
}

// ExpireStaleOrders reclaims capacity from payment-pending orders older than
// olderThan. Covers both unpaid intents the client abandoned and orders left
// without an intent because the gateway call failed mid-checkout.
func ExpireStaleOrders(db *gorm.DB, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	var orders []models.Order
	if err := db.Find(&orders,
		"status = ? AND payment_status = ? AND created_at < ?",
		models.OrderStatusPending, models.PaymentStatusPending, cutoff,
	).Error; err != nil {
		return 0, err
	}

	expired := 0
	for _, order := range orders {
		order := order
		reclaimed := false
		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Order{}).
				Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
				Updates(map[string]interface{}{
					"status":         models.OrderStatusCancelled,
					"payment_status": models.PaymentStatusFailed,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil // reconciled by another path in the meantime
			}
			reclaimed = true
			return tx.Model(&models.Menu{}).
				Where("id = ?", order.MenuID).
				Update("max_orders", gorm.Expr("max_orders + ?", order.Quantity)).Error
		})
		if err != nil {
			return expired, err
		}
		// count only after the transaction commits
		if reclaimed {
			expired++
		}
	}

	if expired > 0 {
		utils.DeleteCachePattern("orders:*")
	}
	return expired, nil
}

// -------- Handlers --------

// VerifyPaymentHandler lets the client drive reconciliation by polling the
// gateway for the intent's current status.
func VerifyPaymentHandler(db *gorm.DB, gw payments.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req intentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing payment_intent_id"})
			return
		}

		intent, err := gw.RetrieveIntent(req.PaymentIntentID)
		if err != nil {
			logrus.WithError(err).WithField("payment_intent_id", req.PaymentIntentID).Error("intent retrieval failed")
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Verification failed"})
			return
		}

		if intent.Status != payments.StatusSucceeded {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Payment not successful yet"})
			return
		}

		if intent.UserID == "" {
			if principal, ok := middleware.CurrentUser(c); ok {
				intent.UserID = principal.ID
			}
		}

		if err := ReconcileSuccess(db, intent); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No orders found for this payment"})
				return
			}
			logrus.WithError(err).Error("payment reconciliation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Verification failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified and order confirmed"})
	}
}

// FailPaymentHandler cancels the intent's orders and restores menu capacity.
func FailPaymentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req intentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing payment_intent_id"})
			return
		}

		if err := ReconcileFailure(db, req.PaymentIntentID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No orders found for this payment"})
				return
			}
			logrus.WithError(err).Error("payment failure compensation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
			return
		}

		logrus.WithField("payment_intent_id", req.PaymentIntentID).Info("orders cancelled and menu capacity restored")
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Orders cancelled & menu capacity restored"})
	}
}
