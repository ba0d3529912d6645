package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewProduct(t *testing.T) {
	tests := []struct {
		name        string
		productName string
		price       float64
		wantErr     error
	}{
		{
			name:        "Valid product",
			productName: "Lamp",
			price:       20,
			wantErr:     nil,
		},
		{
			name:        "Missing name",
			productName: "",
			price:       20,
			wantErr:     ErrInvalidProductName,
		},
		{
			name:        "Zero price",
			productName: "Lamp",
			price:       0,
			wantErr:     ErrInvalidProductPrice,
		},
		{
			name:        "Negative price",
			productName: "Lamp",
			price:       -5,
			wantErr:     ErrInvalidProductPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, err := NewProduct(tt.productName, "a description", tt.price, 7)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewProduct() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if product.UserID != 7 {
				t.Errorf("UserID = %d, want 7", product.UserID)
			}
			if product.Sold {
				t.Error("new product must not be sold")
			}
			if product.ID != 0 {
				t.Errorf("ID = %d, want 0 before persistence", product.ID)
			}
		})
	}
}

func TestImageKey(t *testing.T) {
	tests := []struct {
		id   int64
		want string
	}{
		{id: 1, want: "1.png"},
		{id: 42, want: "42.png"},
		{id: 9000000000, want: "9000000000.png"},
	}

	for _, tt := range tests {
		if got := ImageKey(tt.id); got != tt.want {
			t.Errorf("ImageKey(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestProductNotFoundErrorMessage(t *testing.T) {
	err := &ProductNotFoundError{ID: 42}
	if !strings.Contains(err.Error(), "42") {
		t.Errorf("error message %q does not contain the requested id", err.Error())
	}
}
