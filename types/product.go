package types

import "time"

// Supported product stock types.
const (
	StockClothes = "clothes"
	StockShoes   = "shoes"
	StockJewelry = "jewelry"
)

// StockTypes lists every accepted Product.Type value.
var StockTypes = []string{StockClothes, StockShoes, StockJewelry}

// Product represents an item offered by a single brand.
type Product struct {
	// ID is the unique identifier of the product.
	ID string `json:"id" db:"id"`

	// OwnerID is the id of the brand user that created the product.
	// Ownership never changes after creation.
	OwnerID string `json:"ownerId" db:"owner_id"`

	// Name is the human-readable name of the product.
	Name string `json:"name" db:"name"`

	// Price is the positive unit price of the product.
	Price float64 `json:"price" db:"price"`

	// Description is a short free-form description.
	Description string `json:"description" db:"description"`

	// OutOfStock marks the product as currently unavailable.
	// Nil means the brand never set it.
	OutOfStock *bool `json:"outOfStock,omitempty" db:"out_of_stock"`

	// Type is the stock type, one of StockTypes, when set.
	Type string `json:"type,omitempty" db:"type"`

	// Sizes lists the available sizes as free text. It is required
	// whenever Type is set.
	Sizes string `json:"sizes,omitempty" db:"sizes"`

	// ImageKey is the object storage key of the product image.
	ImageKey string `json:"imageKey,omitempty" db:"image_key"`

	// ImageContentType is the MIME type of the stored image.
	ImageContentType string `json:"-" db:"image_content_type"`

	// CreatedAt is the timestamp at which the product was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ProductPatch carries the fields a brand may change after creation.
// Nil fields are left untouched.
type ProductPatch struct {
	Type       *string
	Sizes      *string
	OutOfStock *bool
}

// Apply returns a copy of p with the patch applied.
func (patch ProductPatch) Apply(p Product) Product {
	if patch.Type != nil {
		p.Type = *patch.Type
	}
	if patch.Sizes != nil {
		p.Sizes = *patch.Sizes
	}
	if patch.OutOfStock != nil {
		value := *patch.OutOfStock
		p.OutOfStock = &value
	}
	return p
}
