package models

import "time"

type OrderStatus string
type PaymentStatus string

const (
	// Order statuses (kitchen flow)
	OrderStatusPending        OrderStatus = "pending"          // Order placed, awaiting payment confirmation
	OrderStatusConfirmed      OrderStatus = "confirmed"        // Paid and accepted by the mom chef
	OrderStatusPreparing      OrderStatus = "preparing"        // Food being cooked
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery" // Handed to delivery partner
	OrderStatusDelivered      OrderStatus = "delivered"        // Customer received the food
	OrderStatusCancelled      OrderStatus = "cancelled"        // Cancelled before delivery

	// Payment statuses
	PaymentStatusPending  PaymentStatus = "pending"  // Payment not completed yet
	PaymentStatusPaid     PaymentStatus = "paid"     // Payment completed successfully
	PaymentStatusFailed   PaymentStatus = "failed"   // Payment attempt failed
	PaymentStatusRefunded PaymentStatus = "refunded" // Money returned to customer
)

// statusTransitions defines the forward-only kitchen flow. Any non-terminal
// status may also move to cancelled.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:      {OrderStatusOutForDelivery, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

// IsTerminal reports whether no further transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is a legal step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DeliveryAddress is a snapshot of the customer's address at order time.
// Later edits to the address book must not alter past orders.
type DeliveryAddress struct {
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
}

type Order struct {
	ID                    string          `gorm:"primaryKey" json:"id"`
	CustomerID            string          `gorm:"index;not null" json:"customer_id"`
	MenuID                string          `gorm:"index;not null" json:"menu_id"`
	MomID                 string          `gorm:"index;not null" json:"mom_id"`
	Quantity              int             `gorm:"not null" json:"quantity"`
	TotalAmount           float64         `gorm:"not null" json:"total_amount"`
	Status                OrderStatus     `gorm:"type:VARCHAR(20);default:'pending';index" json:"status"`
	PaymentStatus         PaymentStatus   `gorm:"type:VARCHAR(20);default:'pending';index" json:"payment_status"`
	PaymentIntentID       string          `gorm:"index" json:"payment_intent_id"`
	DeliveryAddress       DeliveryAddress `gorm:"embedded;embeddedPrefix:delivery_" json:"delivery_address"`
	SpecialInstructions   string          `json:"special_instructions"`
	EstimatedDeliveryTime time.Time       `json:"estimated_delivery_time"`
	CreatedAt             time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}
