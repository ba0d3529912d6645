package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrInvalidProductName  = errors.New("product name is required")
	ErrInvalidProductPrice = errors.New("product price must be positive")
)

// Product represents a catalog item. The record store assigns the ID on
// creation; UserID is the creating user and is never changed afterwards.
type Product struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"index;not null" json:"userId"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Price       float64   `gorm:"not null" json:"price"`
	Sold        bool      `gorm:"not null;default:false" json:"sold"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProduct creates an unsold product owned by userID, validated but not
// yet persisted (the ID is zero until the repository stores it).
func NewProduct(name, description string, price float64, userID int64) (*Product, error) {
	product := &Product{
		UserID:      userID,
		Name:        name,
		Description: description,
		Price:       price,
		Sold:        false,
	}

	if err := product.Validate(); err != nil {
		return nil, err
	}

	return product, nil
}

// Validate performs business validation on the product
func (p *Product) Validate() error {
	if p.Name == "" {
		return ErrInvalidProductName
	}
	if p.Price <= 0 {
		return ErrInvalidProductPrice
	}
	return nil
}

// ProductView is a read-time composite: a product plus whether an image blob
// currently exists for it. It is recomputed on every read and never stored.
type ProductView struct {
	Product
	ImageExists bool `json:"imageExists"`
}

// ImageKey derives the blob-store key for a product's image. The extension
// is fixed regardless of the uploaded format.
func ImageKey(productID int64) string {
	return strconv.FormatInt(productID, 10) + ".png"
}

// ProductNotFoundError is the caller-visible not-found condition. It always
// carries the identifier that was requested.
type ProductNotFoundError struct {
	ID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found with ID %d", e.ID)
}
