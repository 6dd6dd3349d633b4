package model

import "time"

// Product is a catalog entry: a fruit box or a piece of merchandise.
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	Category    string    `json:"category" db:"category"`
	ImageURL    string    `json:"imageUrl,omitempty" db:"image_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`

	Variants []Variant `json:"variants,omitempty"`
}

// Variant is a purchasable size/price option of a product. The variant ID is
// what carts and order line items reference.
type Variant struct {
	ID         string `json:"id" db:"id"`
	ProductID  string `json:"productId" db:"product_id"`
	Size       string `json:"size,omitempty" db:"size"`
	PriceCents int64  `json:"priceCents" db:"price_cents"`
}

// CatalogVariant is a variant joined with its owning product. Checkout uses
// it to snapshot line items from catalog prices rather than trusting the
// prices carried in the client's cart.
type CatalogVariant struct {
	Variant
	ProductName string `json:"productName" db:"product_name"`
}
