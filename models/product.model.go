package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LowStockThreshold marks products the dashboard reports as running low.
const LowStockThreshold = 5

// Product defines the structure for an inventory item.
// Quantity is the stock ledger: it is only changed through deltas.
type Product struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Brand       string             `json:"brand" bson:"brand"`
	Category    string             `json:"category" bson:"category"`
	Price       float64            `json:"price" bson:"price"`
	Quantity    int                `json:"quantity" bson:"quantity"`
	Description string             `json:"description" bson:"description"`
	ImageURL    string             `json:"image_url" bson:"image_url"`
	CreatedBy   primitive.ObjectID `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// ProductRequest is the multipart or JSON body of a product create.
type ProductRequest struct {
	Name        string   `json:"name" form:"name" binding:"required"`
	Brand       string   `json:"brand" form:"brand"`
	Category    string   `json:"category" form:"category"`
	Price       *float64 `json:"price" form:"price" binding:"required,gte=0"`
	Quantity    int      `json:"quantity" form:"quantity" binding:"gte=0"`
	Description string   `json:"description" form:"description"`
}

// ProductUpdate holds the editable fields of a product. Nil fields are left
// untouched.
type ProductUpdate struct {
	Name        *string  `json:"name" form:"name" binding:"omitempty,min=1"`
	Brand       *string  `json:"brand" form:"brand"`
	Category    *string  `json:"category" form:"category"`
	Price       *float64 `json:"price" form:"price" binding:"omitempty,gte=0"`
	Quantity    *int     `json:"quantity" form:"quantity" binding:"omitempty,gte=0"`
	Description *string  `json:"description" form:"description"`
	ImageURL    *string  `json:"-" form:"-"`
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Category string
	Search   string
}
