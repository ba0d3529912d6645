package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shoppy-backend/products-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var _ domain.ProductRepository = (*ProductRepository)(nil)

// ProductRepository is the Postgres-backed implementation of
// domain.ProductRepository.
type ProductRepository struct {
	db     *gorm.DB
	tracer trace.Tracer
	logger *slog.Logger
}

// Open connects to Postgres and migrates the products table.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := db.AutoMigrate(&domain.Product{}); err != nil {
		return nil, fmt.Errorf("failed to migrate products table: %w", err)
	}
	return db, nil
}

// NewProductRepository creates a new Postgres product repository
func NewProductRepository(db *gorm.DB, tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		tracer: tracer,
		logger: logger,
	}
}

// Create inserts a new product; the database assigns the identifier.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to insert product")
		r.logger.ErrorContext(ctx, "Failed to insert product",
			slog.String("error", err.Error()),
		)
		return err
	}

	span.SetAttributes(attribute.Int64("product.id", product.ID))
	span.SetStatus(codes.Ok, "Product created successfully")
	return nil
}

// FindByID retrieves a product by ID, reporting ErrProductNotFound for a
// missing row.
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", id))

	var product domain.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "Product not found")
			return nil, domain.ErrProductNotFound
		}
		span.SetStatus(codes.Error, "Failed to query product")
		r.logger.ErrorContext(ctx, "Failed to query product",
			slog.Int64("product_id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	span.SetStatus(codes.Ok, "Product found")
	return &product, nil
}

// FindAll retrieves products, optionally restricted to unsold ones. Result
// order is whatever the database yields.
func (r *ProductRepository) FindAll(ctx context.Context, onlyAvailable bool) ([]*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindAll")
	defer span.End()

	query := r.db.WithContext(ctx).Model(&domain.Product{})
	if onlyAvailable {
		query = query.Where("sold = ?", false)
	}

	var products []*domain.Product
	if err := query.Find(&products).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query products")
		r.logger.ErrorContext(ctx, "Failed to query products",
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}

// Update applies a partial column update. A patch that matches no row
// reports ErrProductNotFound.
func (r *ProductRepository) Update(ctx context.Context, id int64, fields map[string]any) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", id))

	// An empty patch would report zero rows affected and read as not-found.
	if len(fields) == 0 {
		span.SetStatus(codes.Ok, "Empty patch, nothing to update")
		return nil
	}

	tx := r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		span.RecordError(tx.Error)
		span.SetStatus(codes.Error, "Failed to update product")
		r.logger.ErrorContext(ctx, "Failed to update product",
			slog.Int64("product_id", id),
			slog.String("error", tx.Error.Error()),
		)
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		return domain.ErrProductNotFound
	}

	span.SetStatus(codes.Ok, "Product updated successfully")
	return nil
}
