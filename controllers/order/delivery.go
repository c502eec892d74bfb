package orderControllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/middleware"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/models"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/services/sms"
	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/services/tracking"
)

const deliveryVehicleType = "motorcycle"

// AssignDelivery creates a tracking trip for a confirmed order, records the
// Delivery row and notifies the customer. Provider or SMS failures never
// touch the order's own state.
func AssignDelivery(db *gorm.DB, provider tracking.Provider, notifier sms.Notifier, principal middleware.Principal, orderID string) (*models.Delivery, error) {
	query := db.Where("id = ?", orderID)
	if principal.Role == models.RoleMom {
		query = query.Where("mom_id = ?", principal.ID)
	}

	var order models.Order
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	if order.PaymentStatus != models.PaymentStatusPaid || order.Status == models.OrderStatusCancelled {
		return nil, models.ErrInvalidTransition
	}

	var existing models.Delivery
	err := db.First(&existing, "order_id = ?", order.ID).Error
	if err == nil {
		return nil, models.ErrAlreadyAssigned
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	destination := fmt.Sprintf("%s, %s, %s %s",
		order.DeliveryAddress.AddressLine,
		order.DeliveryAddress.City,
		order.DeliveryAddress.State,
		order.DeliveryAddress.Pincode,
	)

	trip, err := provider.CreateTrip("mk-"+order.ID, destination, deliveryVehicleType)
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("tracking trip creation failed")
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamFailure, err)
	}

	partner := os.Getenv("DELIVERY_PARTNER")
	if partner == "" {
		partner = "shadowfax"
	}

	delivery := models.Delivery{
		ID:              uuid.NewString(),
		OrderID:         order.ID,
		DeliveryPartner: partner,
		TrackingID:      trip.TripID,
		TrackingURL:     trip.ShareURL,
		Status:          models.DeliveryStatusAssigned,
		DeliveryFee:     DeliveryFee,
		EstimatedTime:   order.EstimatedDeliveryTime,
	}
	if err := db.Create(&delivery).Error; err != nil {
		return nil, err
	}

	notifyCustomer(db, order, trip.ShareURL, notifier)
	return &delivery, nil
}

// notifyCustomer sends the tracking SMS. Fire-and-forget: failures are
// logged, never propagated.
func notifyCustomer(db *gorm.DB, order models.Order, trackingURL string, notifier sms.Notifier) {
	var customer models.User
	if err := db.First(&customer, "id = ?", order.CustomerID).Error; err != nil || customer.PhoneNumber == "" {
		logrus.WithField("order_id", order.ID).Warn("customer phone unavailable, skipping delivery SMS")
		return
	}

	var menu models.Menu
	menuName := "your meal"
	if err := db.First(&menu, "id = ?", order.MenuID).Error; err == nil {
		menuName = menu.Name
	}

	body := fmt.Sprintf(
		"Namaste %s! Your Mom's Kitchen order is on the way.\nOrder ID: %s\nItem: %s\nAmount: ₹%.2f\nTrack your delivery live: %s",
		customer.Name, order.ID, menuName, order.TotalAmount, trackingURL,
	)

	if err := notifier.Send(customer.PhoneNumber, body); err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("delivery SMS failed")
	}
}

// AssignDeliveryHandler dispatches a delivery for an order (mom/admin).
func AssignDeliveryHandler(db *gorm.DB, provider tracking.Provider, notifier sms.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.CurrentUser(c)

		delivery, err := AssignDelivery(db, provider, notifier, principal, c.Param("orderID"))
		switch {
		case err == nil:
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Order not found or unauthorized"})
			return
		case errors.Is(err, models.ErrInvalidTransition):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Order is not ready for delivery"})
			return
		case errors.Is(err, models.ErrAlreadyAssigned):
			c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "Delivery already assigned for this order"})
			return
		case errors.Is(err, models.ErrUpstreamFailure):
			c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "Could not create tracking session, please retry"})
			return
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"status":  "success",
			"message": "Delivery assigned successfully",
			"data":    gin.H{"delivery": delivery},
		})
	}
}
