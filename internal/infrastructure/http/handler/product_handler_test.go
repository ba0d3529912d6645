package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shoppy-backend/products-api/internal/app/dto"
	"github.com/shoppy-backend/products-api/internal/app/service"
	"github.com/shoppy-backend/products-api/internal/infrastructure/repository/memory"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type stubImageStore struct {
	objects map[string][]byte
	putErr  error
}

func (s *stubImageStore) Put(ctx context.Context, key string, body io.Reader) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, _ := io.ReadAll(body)
	s.objects[key] = data
	return nil
}

func (s *stubImageStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type stubBroadcaster struct{}

func (stubBroadcaster) NotifyProductsChanged() {}

func newTestRouter(images *stubImageStore) *chi.Mux {
	tracer := sdktrace.NewTracerProvider().Tracer("test")
	meter := sdkmetric.NewMeterProvider().Meter("test")
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	repo := memory.NewProductRepository(tracer, logger)
	svc := service.NewProductCatalogService(repo, images, stubBroadcaster{}, tracer, meter, logger)
	h := NewProductHandler(svc, logger)

	router := chi.NewRouter()
	router.Route("/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
		r.Patch("/{id}", h.UpdateProduct)
		r.Post("/{id}/image", h.UploadProductImage)
	})
	return router
}

func createProduct(t *testing.T, router http.Handler, name string, price float64) dto.ProductResponse {
	t.Helper()
	body, _ := json.Marshal(dto.CreateProductRequest{Name: name, Price: price})
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body))
	req.Header.Set(userIDHeader, "7")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created dto.ProductResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}
	return created
}

func TestCreateProduct(t *testing.T) {
	router := newTestRouter(&stubImageStore{objects: map[string][]byte{}})

	created := createProduct(t, router, "Lamp", 20)
	if created.UserID != 7 || created.Name != "Lamp" || created.Sold {
		t.Errorf("created = %+v", created)
	}
}

func TestCreateProductRequiresUserHeader(t *testing.T) {
	router := newTestRouter(&stubImageStore{objects: map[string][]byte{}})

	body, _ := json.Marshal(dto.CreateProductRequest{Name: "Lamp", Price: 20})
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateProductValidation(t *testing.T) {
	router := newTestRouter(&stubImageStore{objects: map[string][]byte{}})

	body, _ := json.Marshal(dto.CreateProductRequest{Name: "", Price: 20})
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body))
	req.Header.Set(userIDHeader, "7")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetProductNotFound(t *testing.T) {
	router := newTestRouter(&stubImageStore{objects: map[string][]byte{}})

	req := httptest.NewRequest(http.MethodGet, "/products/404", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "404") {
		t.Errorf("body %q does not carry the requested id", rec.Body.String())
	}
}

func TestGetProductInvalidID(t *testing.T) {
	router := newTestRouter(&stubImageStore{objects: map[string][]byte{}})

	req := httptest.NewRequest(http.MethodGet, "/products/lamp", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListProductsFilter(t *testing.T) {
	router := newTestRouter(&stubImageStore{objects: map[string][]byte{}})
	createProduct(t, router, "Lamp", 20)
	sold := createProduct(t, router, "Chair", 35)

	patch := `{"sold": true}`
	req := httptest.NewRequest(http.MethodPatch, "/products/"+itoa(sold.ID), strings.NewReader(patch))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body.String())
	}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "No filter", query: "", want: 2},
		{name: "Available only", query: "?status=available", want: 1},
		{name: "Unknown token", query: "?status=anything", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/products"+tt.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var views []dto.ProductViewResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
				t.Fatalf("decoding list: %v", err)
			}
			if len(views) != tt.want {
				t.Errorf("got %d products, want %d", len(views), tt.want)
			}
		})
	}
}

func TestUpdateProductNotFound(t *testing.T) {
	router := newTestRouter(&stubImageStore{objects: map[string][]byte{}})

	req := httptest.NewRequest(http.MethodPatch, "/products/404", strings.NewReader(`{"sold": true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func multipartImage(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "lamp.png")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	fw.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadProductImage(t *testing.T) {
	images := &stubImageStore{objects: map[string][]byte{}}
	router := newTestRouter(images)
	created := createProduct(t, router, "Lamp", 20)

	body, contentType := multipartImage(t, []byte("png bytes"))
	req := httptest.NewRequest(http.MethodPost, "/products/"+itoa(created.ID)+"/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	// View now reports the image.
	req = httptest.NewRequest(http.MethodGet, "/products/"+itoa(created.ID), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var view dto.ProductViewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decoding view: %v", err)
	}
	if !view.ImageExists {
		t.Error("imageExists = false after upload")
	}
}

func TestUploadProductImageBestEffort(t *testing.T) {
	images := &stubImageStore{objects: map[string][]byte{}, putErr: errors.New("access denied")}
	router := newTestRouter(images)
	created := createProduct(t, router, "Lamp", 20)

	body, contentType := multipartImage(t, []byte("png bytes"))
	req := httptest.NewRequest(http.MethodPost, "/products/"+itoa(created.ID)+"/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// The storage failure must not cross the HTTP boundary.
	if rec.Code != http.StatusCreated {
		t.Errorf("upload status = %d, want 201 despite store failure", rec.Code)
	}
}

func TestUploadProductImageMissingField(t *testing.T) {
	router := newTestRouter(&stubImageStore{objects: map[string][]byte{}})
	created := createProduct(t, router, "Lamp", 20)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no file here")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/products/"+itoa(created.ID)+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
