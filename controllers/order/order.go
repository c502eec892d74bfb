package orderControllers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
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

const (
	// DeliveryFee is a flat per-checkout charge.
	DeliveryFee = 30.0
	// TaxRate applies to the order subtotal.
	TaxRate = 0.15

	estimatedDeliveryDelay = time.Hour
)

// -------- Request / Response Structs --------

type OrderLineRequest struct {
	MenuID string `json:"menu_id" binding:"required"`
	Items  int    `json:"items" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	Orders              []OrderLineRequest `json:"orders" binding:"required,min=1,dive"`
	DeliveryAddressID   string             `json:"delivery_address_id" binding:"required"`
	SpecialInstructions string             `json:"special_instructions"`
}

// OrderLineResult reports the outcome of one line item. The batch is not
// atomic: earlier successful lines stay committed when a later line fails.
type OrderLineResult struct {
	MenuID  string `json:"menu_id"`
	OrderID string `json:"order_id,omitempty"`
	Created bool   `json:"created"`
	Error   string `json:"error,omitempty"`
}

type CheckoutSummary struct {
	Orders          []models.Order    `json:"orders"`
	Results         []OrderLineResult `json:"results"`
	Subtotal        float64           `json:"subtotal"`
	DeliveryFee     float64           `json:"delivery_fee"`
	Tax             float64           `json:"tax"`
	GrandTotal      float64           `json:"grand_total"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	ClientSecret    string            `json:"client_secret,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// -------- Helpers --------

// mapOrderStatus parses a client-supplied status string.
func mapOrderStatus(status string) (models.OrderStatus, error) {
	switch strings.ToLower(status) {
	case string(models.OrderStatusPending):
		return models.OrderStatusPending, nil
	case string(models.OrderStatusConfirmed):
		return models.OrderStatusConfirmed, nil
	case string(models.OrderStatusPreparing):
		return models.OrderStatusPreparing, nil
	case string(models.OrderStatusOutForDelivery):
		return models.OrderStatusOutForDelivery, nil
	case string(models.OrderStatusDelivered):
		return models.OrderStatusDelivered, nil
	case string(models.OrderStatusCancelled):
		return models.OrderStatusCancelled, nil
	default:
		return "", errors.New("invalid order status")
	}
}

func restoreCapacityOnCancel() bool {
	v, _ := strconv.ParseBool(os.Getenv("RESTORE_CAPACITY_ON_CANCEL"))
	return v
}

// -------- Core Logic --------

// reserveLine atomically reserves capacity for one line item and creates the
// matching order row. The conditional decrement (max_orders >= quantity) is
// what prevents two concurrent checkouts from overselling a menu; there is no
// separate read-check-write window.
func reserveLine(db *gorm.DB, customerID string, addr models.DeliveryAddress, instructions string, line OrderLineRequest) (*models.Order, error) {
	var menu models.Menu
	if err := db.First(&menu, "id = ? AND active = ?", line.MenuID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	if !menu.AvailableAt(time.Now()) {
		return nil, models.ErrMenuUnavailable
	}

	order := models.Order{
		ID:                    uuid.NewString(),
		CustomerID:            customerID,
		MenuID:                menu.ID,
		MomID:                 menu.MomID,
		Quantity:              line.Items,
		TotalAmount:           menu.TotalCost * float64(line.Items),
		Status:                models.OrderStatusPending,
		PaymentStatus:         models.PaymentStatusPending,
		DeliveryAddress:       addr,
		SpecialInstructions:   instructions,
		EstimatedDeliveryTime: time.Now().Add(estimatedDeliveryDelay),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Menu{}).
			Where("id = ? AND active = ? AND max_orders >= ?", menu.ID, true, line.Items).
			Update("max_orders", gorm.Expr("max_orders - ?", line.Items))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrCapacityExceeded
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOrders processes a checkout batch: per-line capacity reservation and
// order creation, then a single payment intent for the whole batch. Line
// items are independent; a failed line does not roll back earlier ones.
func CreateOrders(db *gorm.DB, gw payments.Gateway, customerID string, req CreateOrderRequest) (*CheckoutSummary, error) {
	var address models.Address
	if err := db.First(&address, "id = ? AND user_id = ?", req.DeliveryAddressID, customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	addr := address.Snapshot()

	summary := &CheckoutSummary{DeliveryFee: DeliveryFee}
	var orderIDs []string

	for _, line := range req.Orders {
		order, err := reserveLine(db, customerID, addr, req.SpecialInstructions, line)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrMenuUnavailable) || errors.Is(err, models.ErrCapacityExceeded) {
				summary.Results = append(summary.Results, OrderLineResult{MenuID: line.MenuID, Error: err.Error()})
				continue
			}
			return summary, err
		}
		summary.Orders = append(summary.Orders, *order)
		summary.Results = append(summary.Results, OrderLineResult{MenuID: line.MenuID, OrderID: order.ID, Created: true})
		summary.Subtotal += order.TotalAmount
		orderIDs = append(orderIDs, order.ID)
	}

	if len(summary.Orders) == 0 {
		return summary, models.ErrCapacityExceeded
	}

	summary.Tax = summary.Subtotal * TaxRate
	summary.GrandTotal = summary.Subtotal + summary.DeliveryFee + summary.Tax

	amountPaise := int64(math.Round(summary.GrandTotal * 100))
	intent, err := gw.CreateIntent(amountPaise, payments.Metadata{UserID: customerID, OrderIDs: orderIDs})
	if err != nil {
		// Orders stay reserved in pending state; the expiry sweep reclaims
		// their capacity if the client never retries payment.
		logrus.WithError(err).WithField("customer_id", customerID).Error("payment intent creation failed")
		return summary, fmt.Errorf("%w: %v", models.ErrUpstreamFailure, err)
	}

	if err := db.Model(&models.Order{}).Where("id IN ?", orderIDs).
		Update("payment_intent_id", intent.ID).Error; err != nil {
		return summary, err
	}
	for i := range summary.Orders {
		summary.Orders[i].PaymentIntentID = intent.ID
	}

	summary.PaymentIntentID = intent.ID
	summary.ClientSecret = intent.ClientSecret

	utils.DeleteCachePattern("orders:*")
	return summary, nil
}

// -------- Handlers --------

// CreateOrderHandler places a batch of orders and returns the payment secret.
func CreateOrderHandler(db *gorm.DB, gw payments.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.CurrentUser(c)

		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}

		summary, err := CreateOrders(db, gw, principal.ID, req)
		switch {
		case err == nil:
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Delivery address not found"})
			return
		case errors.Is(err, models.ErrCapacityExceeded):
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "No orders could be placed",
				"data":    gin.H{"results": summary.Results},
			})
			return
		case errors.Is(err, models.ErrUpstreamFailure):
			c.JSON(http.StatusBadGateway, gin.H{
				"status":  "error",
				"message": "Payment could not be initiated, please retry",
				"data":    gin.H{"results": summary.Results},
			})
			return
		default:
			logrus.WithError(err).Error("create order failed")
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
			return
		}

		for _, order := range summary.Orders {
			broadcastNewOrder(order)
		}

		c.JSON(http.StatusCreated, gin.H{
			"status":  "success",
			"message": "Order placed successfully",
			"data":    summary,
		})
	}
}

// GetOrdersHandler lists orders scoped to the caller's role.
func GetOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.CurrentUser(c)

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if limit < 1 || limit > 100 {
			limit = 10
		}
		status := c.Query("status")

		cacheKey := fmt.Sprintf("orders:%s:%s:%s:%d:%d", principal.Role, principal.ID, status, page, limit)
		var cached []models.Order
		if utils.GetCache(cacheKey, &cached) {
			c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"orders": cached}})
			return
		}

		query := db.Model(&models.Order{})
		switch principal.Role {
		case models.RoleCustomer:
			query = query.Where("customer_id = ?", principal.ID)
		case models.RoleMom:
			query = query.Where("mom_id = ?", principal.ID)
		case models.RoleAdmin:
			if customerID := c.Query("customer_id"); customerID != "" {
				query = query.Where("customer_id = ?", customerID)
			}
			if momID := c.Query("mom_id"); momID != "" {
				query = query.Where("mom_id = ?", momID)
			}
		}
		if status != "" {
			if _, err := mapOrderStatus(status); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
				return
			}
			query = query.Where("status = ?", status)
		}

		var orders []models.Order
		if err := query.Order("created_at DESC").
			Offset((page - 1) * limit).Limit(limit).
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
			return
		}

		utils.SetCache(cacheKey, orders, 5*time.Minute)
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"orders": orders}})
	}
}

// GetOrderByIDHandler fetches one order, role-scoped.
func GetOrderByIDHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.CurrentUser(c)
		orderID := c.Param("orderID")

		query := db.Model(&models.Order{}).Where("id = ?", orderID)
		switch principal.Role {
		case models.RoleCustomer:
			query = query.Where("customer_id = ?", principal.ID)
		case models.RoleMom:
			query = query.Where("mom_id = ?", principal.ID)
		}

		var order models.Order
		if err := query.First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"order": order}})
	}
}

// TransitionOrderStatus applies one lifecycle step after checking the
// transition table. Terminal orders are immutable.
func TransitionOrderStatus(db *gorm.DB, principal middleware.Principal, orderID string, next models.OrderStatus) (*models.Order, error) {
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

	if !order.Status.CanTransitionTo(next) {
		return nil, models.ErrInvalidTransition
	}

	// Guard on the previous status so a concurrent transition loses cleanly.
	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Update("status", next)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, models.ErrInvalidTransition
	}

	order.Status = next
	utils.DeleteCachePattern("orders:*")
	return &order, nil
}

// UpdateOrderStatusHandler moves an order along the lifecycle (mom/admin).
func UpdateOrderStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.CurrentUser(c)

		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}
		next, err := mapOrderStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}

		order, err := TransitionOrderStatus(db, principal, c.Param("orderID"), next)
		switch {
		case err == nil:
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Order not found or unauthorized"})
			return
		case errors.Is(err, models.ErrInvalidTransition):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid order status transition"})
			return
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Order status updated successfully",
			"data":    gin.H{"order": order},
		})
	}
}

// CancelOrder cancels a non-terminal order. Capacity is restored only when
// RESTORE_CAPACITY_ON_CANCEL is enabled; the payment-failure compensation
// path is the canonical restore and must not double up with this one.
func CancelOrder(db *gorm.DB, principal middleware.Principal, orderID string) (*models.Order, error) {
	query := db.Where("id = ?", orderID)
	if principal.Role == models.RoleCustomer {
		query = query.Where("customer_id = ?", principal.ID)
	}

	var order models.Order
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	if order.Status.IsTerminal() {
		return nil, models.ErrInvalidTransition
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status NOT IN ?", order.ID, []models.OrderStatus{models.OrderStatusDelivered, models.OrderStatusCancelled}).
			Update("status", models.OrderStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrInvalidTransition
		}
		if restoreCapacityOnCancel() {
			return tx.Model(&models.Menu{}).
				Where("id = ?", order.MenuID).
				Update("max_orders", gorm.Expr("max_orders + ?", order.Quantity)).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusCancelled
	utils.DeleteCachePattern("orders:*")
	return &order, nil
}

// CancelOrderHandler cancels an order (customer/admin).
func CancelOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := middleware.CurrentUser(c)

		order, err := CancelOrder(db, principal, c.Param("orderID"))
		switch {
		case err == nil:
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Order not found"})
			return
		case errors.Is(err, models.ErrInvalidTransition):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Order cannot be cancelled"})
			return
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Order cancelled successfully",
			"data":    gin.H{"order": order},
		})
	}
}
