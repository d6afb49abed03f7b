package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderCompleted OrderStatus = "Completed"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	return s == OrderPending || s == OrderCompleted
}

// LineItem is one product row of an order. Name and UnitPrice are a snapshot
// taken when the line was written.
type LineItem struct {
	ProductID primitive.ObjectID `json:"product_id" bson:"product_id"`
	Name      string             `json:"name" bson:"name"`
	UnitPrice float64            `json:"unit_price" bson:"unit_price"`
	Quantity  int                `json:"quantity" bson:"quantity"`
}

// Order defines the structure for a sale.
type Order struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Items           []LineItem         `json:"items" bson:"items"`
	TotalAmount     float64            `json:"total_amount" bson:"total_amount"`
	CustomerName    string             `json:"customer_name" bson:"customer_name"`
	CustomerContact string             `json:"customer_contact" bson:"customer_contact"`
	CreatedBy       primitive.ObjectID `json:"created_by,omitempty" bson:"created_by,omitempty"`
	Status          OrderStatus        `json:"status" bson:"status"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// LineItemRequest is a requested (product, quantity) pair.
type LineItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// OrderRequest is the body of an order create or a full edit.
type OrderRequest struct {
	Items           []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	TotalAmount     float64           `json:"total_amount" binding:"gte=0"`
	CustomerName    string            `json:"customer_name" binding:"required"`
	CustomerContact string            `json:"customer_contact" binding:"required"`
	Status          OrderStatus       `json:"status" binding:"omitempty,orderstatus"`
}

// OrderStatusRequest is the body of a lifecycle transition.
type OrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required,orderstatus"`
}
