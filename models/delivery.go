package models

import "time"

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusAssigned  DeliveryStatus = "assigned"
	DeliveryStatusPicked    DeliveryStatus = "picked"
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

type Delivery struct {
	ID              string         `gorm:"primaryKey" json:"id"`
	OrderID         string         `gorm:"uniqueIndex;not null" json:"order_id"`
	DeliveryPartner string         `gorm:"not null" json:"delivery_partner"` // e.g. Dunzo, Shadowfax
	TrackingID      string         `json:"tracking_id"`
	TrackingURL     string         `json:"tracking_url"`
	Status          DeliveryStatus `gorm:"type:VARCHAR(20);default:'pending';index" json:"status"`
	DeliveryFee     float64        `gorm:"not null" json:"delivery_fee"`
	AssignedTo      string         `gorm:"index" json:"assigned_to"` // internal delivery personnel, optional
	EstimatedTime   time.Time      `json:"estimated_time"`
	DeliveredAt     *time.Time     `json:"delivered_at"`
	Remarks         string         `json:"remarks"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
