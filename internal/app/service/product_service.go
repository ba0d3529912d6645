package service

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/shoppy-backend/products-api/internal/app/dto"
	"github.com/shoppy-backend/products-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// StatusAvailable is the only recognized list filter token; it restricts
// results to unsold products. Every other value means "no filter".
const StatusAvailable = "available"

// ProductCatalogService coordinates the record store, the image blob store
// and the change-notification broadcaster. It holds no mutable state of its
// own; each operation is a straight-line sequence of external calls.
type ProductCatalogService struct {
	repo        domain.ProductRepository
	images      domain.ImageStore
	broadcaster domain.ChangeBroadcaster
	tracer      trace.Tracer
	logger      *slog.Logger

	productCreatedCounter metric.Int64Counter
	productOperations     metric.Int64Counter
	imageUploadCounter    metric.Int64Counter
}

// NewProductCatalogService creates a new product catalog service
func NewProductCatalogService(
	repo domain.ProductRepository,
	images domain.ImageStore,
	broadcaster domain.ChangeBroadcaster,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *ProductCatalogService {
	// Initialize metrics
	productCreatedCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	imageUploadCounter, _ := meter.Int64Counter(
		"products.image_uploads.total",
		metric.WithDescription("Total number of product image upload attempts"),
	)

	return &ProductCatalogService{
		repo:                  repo,
		images:                images,
		broadcaster:           broadcaster,
		tracer:                tracer,
		logger:                logger,
		productCreatedCounter: productCreatedCounter,
		productOperations:     productOperations,
		imageUploadCounter:    imageUploadCounter,
	}
}

// CreateProduct inserts a new product owned by userID and notifies connected
// clients. Repository errors propagate to the caller unmodified.
func (s *ProductCatalogService) CreateProduct(ctx context.Context, req *dto.CreateProductRequest, userID int64) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductCatalogService.CreateProduct")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.name", req.Name),
		attribute.Float64("product.price", req.Price),
		attribute.Int64("user.id", userID),
	)

	product, err := domain.NewProduct(req.Name, req.Description, req.Price, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Validation failed")
		s.logger.WarnContext(ctx, "Invalid product payload",
			slog.String("error", err.Error()),
		)
		s.recordOperation(ctx, "create", "failure")
		return nil, err
	}

	if err := s.repo.Create(ctx, product); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store product")
		s.logger.ErrorContext(ctx, "Failed to store product",
			slog.String("error", err.Error()),
		)
		s.recordOperation(ctx, "create", "failure")
		return nil, err
	}

	span.SetAttributes(attribute.Int64("product.id", product.ID))

	// Fire-and-forget; a broadcast problem never fails the create.
	s.broadcaster.NotifyProductsChanged()

	s.productCreatedCounter.Add(ctx, 1)
	s.recordOperation(ctx, "create", "success")

	s.logger.InfoContext(ctx, "Product created",
		slog.Int64("product_id", product.ID),
		slog.Int64("user_id", userID),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return dto.ToProductResponse(product), nil
}

// ListProducts returns every product as a view with its image probe result.
// status == "available" restricts the query to unsold products; any other
// token is a permissive no-op, not a validation error.
func (s *ProductCatalogService) ListProducts(ctx context.Context, status string) ([]*dto.ProductViewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductCatalogService.ListProducts")
	defer span.End()

	onlyAvailable := status == StatusAvailable
	span.SetAttributes(attribute.Bool("filter.available", onlyAvailable))

	products, err := s.repo.FindAll(ctx, onlyAvailable)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to retrieve products")
		s.logger.ErrorContext(ctx, "Failed to list products",
			slog.String("error", err.Error()),
		)
		s.recordOperation(ctx, "list", "failure")
		return nil, err
	}

	// Probe image existence for each product concurrently. A failed probe
	// only downgrades that product's imageExists flag; it never removes the
	// product from the result.
	views := make([]*domain.ProductView, len(products))
	var wg sync.WaitGroup
	for i, product := range products {
		views[i] = &domain.ProductView{Product: *product}
		wg.Add(1)
		go func(v *domain.ProductView) {
			defer wg.Done()
			v.ImageExists = s.imageExists(ctx, v.ID)
		}(views[i])
	}
	wg.Wait()

	span.SetAttributes(attribute.Int("product.count", len(views)))
	s.recordOperation(ctx, "list", "success")

	s.logger.InfoContext(ctx, "Products listed",
		slog.Int("count", len(views)),
		slog.Bool("only_available", onlyAvailable),
	)

	span.SetStatus(codes.Ok, "Products listed successfully")
	return dto.ToProductViewResponseList(views), nil
}

// GetProduct returns a single product view. Any repository failure is
// reported to the caller as a not-found condition carrying the requested id.
func (s *ProductCatalogService) GetProduct(ctx context.Context, id int64) (*dto.ProductViewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductCatalogService.GetProduct")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", id))

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product not found")
		s.logger.WarnContext(ctx, "Product not found",
			slog.Int64("product_id", id),
			slog.String("error", err.Error()),
		)
		s.recordOperation(ctx, "read", "not_found")
		return nil, &domain.ProductNotFoundError{ID: id}
	}

	view := &domain.ProductView{
		Product:     *product,
		ImageExists: s.imageExists(ctx, id),
	}

	s.recordOperation(ctx, "read", "success")

	span.SetStatus(codes.Ok, "Product retrieved successfully")
	return dto.ToProductViewResponse(view), nil
}

// UploadProductImage writes the image bytes under the product's derived key,
// overwriting any previous blob. The contract is best-effort: a storage
// failure is logged and absorbed, and the caller still observes success.
func (s *ProductCatalogService) UploadProductImage(ctx context.Context, id int64, image []byte) error {
	ctx, span := s.tracer.Start(ctx, "ProductCatalogService.UploadProductImage")
	defer span.End()

	key := domain.ImageKey(id)
	span.SetAttributes(
		attribute.Int64("product.id", id),
		attribute.String("image.key", key),
		attribute.Int("image.size", len(image)),
	)

	if err := s.images.Put(ctx, key, bytes.NewReader(image)); err != nil {
		// Diagnostic metadata is logged by the store implementation; here
		// we only record that the best-effort write was lost.
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "Product image upload failed, discarding error",
			slog.Int64("product_id", id),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		s.imageUploadCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("result", "failure")),
		)
		span.SetStatus(codes.Ok, "Upload failure absorbed")
		return nil
	}

	s.imageUploadCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", "success")),
	)

	s.logger.InfoContext(ctx, "Product image uploaded",
		slog.Int64("product_id", id),
		slog.String("key", key),
	)

	span.SetStatus(codes.Ok, "Product image uploaded")
	return nil
}

// UpdateProduct applies a partial update and notifies connected clients.
// Unlike GetProduct, repository errors (including not-found) propagate
// unmodified, and no notification fires on failure.
func (s *ProductCatalogService) UpdateProduct(ctx context.Context, id int64, req *dto.UpdateProductRequest) error {
	ctx, span := s.tracer.Start(ctx, "ProductCatalogService.UpdateProduct")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", id))

	if err := s.repo.Update(ctx, id, req.Fields()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update product")
		s.logger.WarnContext(ctx, "Failed to update product",
			slog.Int64("product_id", id),
			slog.String("error", err.Error()),
		)
		s.recordOperation(ctx, "update", "failure")
		return err
	}

	s.broadcaster.NotifyProductsChanged()
	s.recordOperation(ctx, "update", "success")

	s.logger.InfoContext(ctx, "Product updated",
		slog.Int64("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product updated successfully")
	return nil
}

// imageExists probes the blob store for the product's image. True only when
// a body comes back; every failure, including genuine absence, reads as
// "no image". Probe failures are therefore indistinguishable from absence.
func (s *ProductCatalogService) imageExists(ctx context.Context, id int64) bool {
	body, err := s.images.Get(ctx, domain.ImageKey(id))
	if err != nil || body == nil {
		return false
	}
	body.Close()
	return true
}

func (s *ProductCatalogService) recordOperation(ctx context.Context, op, result string) {
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("result", result),
		),
	)
}
