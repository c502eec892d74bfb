package models

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleMom      Role = "mom"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `json:"name"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Role        Role      `gorm:"type:VARCHAR(20);default:'customer'" json:"role"`
	Addresses   []Address `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"addresses"`
	Orders      []Order   `gorm:"foreignKey:CustomerID" json:"orders,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Address is an address-book row. Orders copy its fields at creation time
// instead of referencing it, so edits here never touch past orders.
type Address struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	AddressLine string    `gorm:"not null" json:"address_line"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Pincode     string    `json:"pincode"`
	CreatedAt   time.Time `json:"created_at"`
}

// Snapshot copies the address into the embedded form stored on orders.
func (a *Address) Snapshot() DeliveryAddress {
	return DeliveryAddress{
		AddressLine: a.AddressLine,
		City:        a.City,
		State:       a.State,
		Pincode:     a.Pincode,
	}
}
