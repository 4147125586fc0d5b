package model

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus is the payment lifecycle of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
	OrderRefunded  OrderStatus = "refunded"
)

// Order represents a payment record for a course purchase or a subscription
// purchase. Exactly one of CourseID/SubscriptionID is set. The gateway calls
// themselves live outside this service; completing an order is an internal
// status transition that triggers enrollment or subscription activation.
type Order struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
	UserID            uint           `gorm:"not null;index" json:"user_id"`
	CourseID          *uint          `gorm:"index" json:"course_id,omitempty"`
	SubscriptionID    *uint          `gorm:"index" json:"subscription_id,omitempty"`
	RazorpayOrderID   string         `gorm:"type:varchar(100);uniqueIndex" json:"razorpay_order_id"`
	RazorpayPaymentID string         `gorm:"type:varchar(100)" json:"razorpay_payment_id"`
	Amount            float64        `gorm:"not null" json:"amount"`
	Currency          string         `gorm:"type:varchar(10);default:'INR'" json:"currency"`
	Status            OrderStatus    `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	// Relationships
	User         User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course       *Course       `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Subscription *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}
