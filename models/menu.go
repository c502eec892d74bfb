package models

import "time"

// MaxOrdersLimit caps how many portions a mom can offer on a single menu.
const MaxOrdersLimit = 15

type Menu struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	MomID          string     `gorm:"index;not null" json:"mom_id"`
	Name           string     `gorm:"not null" json:"name"`
	Description    string     `json:"description"`
	ImageURL       string     `json:"image_url"`
	Active         bool       `gorm:"default:true;index" json:"active"`
	TotalCost      float64    `gorm:"not null" json:"total_cost"`
	AvailableFrom  time.Time  `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	MaxOrders      int        `gorm:"not null" json:"max_orders"`
	Items          []MenuItem `gorm:"foreignKey:MenuID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type MenuItem struct {
	ID          string `gorm:"primaryKey" json:"id"`
	MenuID      string `gorm:"index" json:"menu_id"`
	ItemName    string `gorm:"not null" json:"item_name"`
	Description string `json:"description"`
	Veg         bool   `gorm:"default:true" json:"veg"`
	Category    string `json:"category"`
}

// AvailableAt reports whether the menu's availability window covers t.
// A nil AvailableUntil means the menu stays open-ended.
func (m *Menu) AvailableAt(t time.Time) bool {
	if m.AvailableFrom.After(t) {
		return false
	}
	if m.AvailableUntil != nil && m.AvailableUntil.Before(t) {
		return false
	}
	return true
}
