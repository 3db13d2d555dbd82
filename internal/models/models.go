package models

import (
	"time"
)

const (
	RoleCustomer   = "customer"
	RoleWholesaler = "wholesaler"
	RoleAdmin      = "admin"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

var Categories = []string{"grains", "vegetables", "fruits", "legumes", "spices", "dairy", "meat", "other"}

var Units = []string{"kg", "quintal", "ton", "piece", "liter", "dozen"}

type User struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name            string    `gorm:"not null"                  json:"name"`
	Email           string    `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash    string    `gorm:"not null"                  json:"-"`
	Role            string    `gorm:"not null;default:customer" json:"role"`
	Phone           string    `json:"phone,omitempty"`
	BusinessName    string    `json:"businessName,omitempty"`
	BusinessAddress string    `json:"businessAddress,omitempty"`
	IsVerified      bool      `gorm:"default:false"             json:"isVerified"`
	IsActive        bool      `gorm:"default:true"              json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
}

// UserSummary is the lightweight projection joined into product and order
// responses in place of the full user record.
type UserSummary struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	BusinessName string `json:"businessName,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		BusinessName: u.BusinessName,
	}
}

type Product struct {
	ID                uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string     `gorm:"not null"                 json:"name"`
	Description       string     `gorm:"not null"                 json:"description"`
	Category          string     `gorm:"not null;index"           json:"category"`
	Price             float64    `gorm:"not null"                 json:"price"`
	Unit              string     `gorm:"not null"                 json:"unit"`
	MinimumOrder      uint       `gorm:"not null;default:1"       json:"minimumOrder"`
	AvailableQuantity uint       `gorm:"not null;default:0"       json:"availableQuantity"`
	Images            []string   `gorm:"serializer:json"          json:"images"`
	WholesalerID      uint       `gorm:"index;not null"           json:"wholesalerId"`
	Wholesaler        *User      `gorm:"foreignKey:WholesalerID"  json:"wholesaler,omitempty"`
	Location          string     `json:"location,omitempty"`
	HarvestDate       *time.Time `json:"harvestDate,omitempty"`
	ExpiryDate        *time.Time `json:"expiryDate,omitempty"`
	QualityGrade      string     `json:"qualityGrade,omitempty"`
	Certifications    []string   `gorm:"serializer:json"          json:"certifications,omitempty"`
	RatingAverage     float64    `gorm:"default:0"                json:"ratingAverage"`
	RatingCount       uint       `gorm:"default:0"                json:"ratingCount"`
	IsActive          bool       `gorm:"default:true"             json:"isActive"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type ShippingAddress struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Region string `json:"region"`
	Phone  string `json:"phone"`
}

type Order struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"       json:"id"`
	CustomerID      uint            `gorm:"index;not null"                 json:"customerId"`
	Customer        *User           `gorm:"foreignKey:CustomerID"          json:"customer,omitempty"`
	WholesalerID    uint            `gorm:"index;not null"                 json:"wholesalerId"`
	Wholesaler      *User           `gorm:"foreignKey:WholesalerID"        json:"wholesaler,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID"             json:"items"`
	TotalAmount     float64         `gorm:"not null"                       json:"totalAmount"`
	ShippingAddress ShippingAddress `gorm:"serializer:json"                json:"shippingAddress"`
	PaymentMethod   string          `gorm:"not null;default:cash"          json:"paymentMethod"`
	Status          string          `gorm:"not null;default:pending;index" json:"status"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OrderItem holds the unit price snapshotted at order creation, independent
// of later catalog price changes.
type OrderItem struct {
	ID        uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint     `gorm:"index;not null"           json:"orderId"`
	ProductID uint     `gorm:"not null"                 json:"productId"`
	Product   *Product `gorm:"foreignKey:ProductID"     json:"product,omitempty"`
	Quantity  uint     `gorm:"not null"                 json:"quantity"`
	UnitPrice float64  `gorm:"not null"                 json:"unitPrice"`
	LineTotal float64  `gorm:"not null"                 json:"lineTotal"`
}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

func ValidUnit(u string) bool {
	for _, v := range Units {
		if v == u {
			return true
		}
	}
	return false
}

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
