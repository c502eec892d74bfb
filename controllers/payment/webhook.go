package paymentControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/models"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/services/payments"
)

// StripeWebhookHandler receives asynchronous payment events. The signature
// check runs over the raw body and fails closed: nothing is mutated unless
// the event is authentic.
//
// Failed-payment events are logged only; compensation happens solely through
// the explicit fail-payment call so capacity is never restored twice.
func StripeWebhookHandler(db *gorm.DB, verifier payments.WebhookVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "failed to read request body"})
			return
		}

		event, err := verifier.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			logrus.WithError(err).Warn("webhook signature verification failed")
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid webhook signature"})
			return
		}

		switch event.Type {
		case payments.EventPaymentSucceeded:
			if err := ReconcileSuccess(db, &event.Intent); err != nil {
				if errors.Is(err, models.ErrNotFound) {
					// intent not ours; acknowledge so the provider stops retrying
					logrus.WithField("payment_intent_id", event.Intent.ID).Warn("webhook for unknown payment intent")
					break
				}
				logrus.WithError(err).WithField("payment_intent_id", event.Intent.ID).Error("webhook reconciliation failed")
				c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "reconciliation failed"})
				return
			}
			logrus.WithField("payment_intent_id", event.Intent.ID).Info("✅ payment verified via webhook")

		case payments.EventPaymentFailed:
			logrus.WithField("payment_intent_id", event.Intent.ID).Info("❌ payment failed")

		default:
			logrus.WithField("type", event.Type).Debug("unhandled webhook event type")
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
