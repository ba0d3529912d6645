package dto

import (
	"time"

	"github.com/shoppy-backend/products-api/internal/domain"
)

// CreateProductRequest represents the request to create a product
type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// UpdateProductRequest is a partial update; nil fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Sold        *bool    `json:"sold"`
}

// Fields converts the patch into the column map the repository applies.
func (r *UpdateProductRequest) Fields() map[string]any {
	fields := make(map[string]any)
	if r.Name != nil {
		fields["name"] = *r.Name
	}
	if r.Description != nil {
		fields["description"] = *r.Description
	}
	if r.Price != nil {
		fields["price"] = *r.Price
	}
	if r.Sold != nil {
		fields["sold"] = *r.Sold
	}
	return fields
}

// ProductResponse represents the product response
type ProductResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Sold        bool      `json:"sold"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductViewResponse is a ProductResponse plus the image existence probe.
type ProductViewResponse struct {
	ProductResponse
	ImageExists bool `json:"imageExists"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *domain.Product) *ProductResponse {
	return &ProductResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Sold:        p.Sold,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToProductViewResponse converts a domain ProductView to ProductViewResponse
func ToProductViewResponse(v *domain.ProductView) *ProductViewResponse {
	return &ProductViewResponse{
		ProductResponse: *ToProductResponse(&v.Product),
		ImageExists:     v.ImageExists,
	}
}

// ToProductViewResponseList converts a list of domain ProductViews
func ToProductViewResponseList(views []*domain.ProductView) []*ProductViewResponse {
	responses := make([]*ProductViewResponse, len(views))
	for i, v := range views {
		responses[i] = ToProductViewResponse(v)
	}
	return responses
}
