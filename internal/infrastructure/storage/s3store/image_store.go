package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/shoppy-backend/products-api/internal/domain"
	"github.com/shoppy-backend/products-api/internal/infrastructure/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ domain.ImageStore = (*ImageStore)(nil)

// ImageStore stores product images in a single S3 bucket fixed at
// construction time.
type ImageStore struct {
	client *s3.Client
	bucket string
	tracer trace.Tracer
	logger *slog.Logger
}

// NewImageStore builds an S3 client from the ambient AWS credential chain.
// A non-empty cfg.Endpoint switches to path-style addressing for
// S3-compatible local stacks.
func NewImageStore(ctx context.Context, cfg config.S3Config, tracer trace.Tracer, logger *slog.Logger) (*ImageStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ImageStore{
		client: client,
		bucket: cfg.Bucket,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Put writes the blob under key, overwriting any existing object. Failures
// are logged here with the S3 request metadata before being returned; the
// caller decides whether they surface.
func (s *ImageStore) Put(ctx context.Context, key string, body io.Reader) error {
	ctx, span := s.tracer.Start(ctx, "ImageStore.Put")
	defer span.End()

	span.SetAttributes(
		attribute.String("s3.bucket", s.bucket),
		attribute.String("s3.key", key),
	)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to put object")
		s.logger.ErrorContext(ctx, "S3 put failed",
			append([]any{
				slog.String("bucket", s.bucket),
				slog.String("key", key),
				slog.String("error", err.Error()),
			}, requestMetadata(err)...)...,
		)
		return err
	}

	span.SetStatus(codes.Ok, "Object stored")
	return nil
}

// Get returns a reader for the blob at key. Probe callers treat any error,
// including a missing key, as absence, so failures are only logged at debug.
func (s *ImageStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx, span := s.tracer.Start(ctx, "ImageStore.Get")
	defer span.End()

	span.SetAttributes(
		attribute.String("s3.bucket", s.bucket),
		attribute.String("s3.key", key),
	)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get object")
		s.logger.DebugContext(ctx, "S3 get failed",
			append([]any{
				slog.String("bucket", s.bucket),
				slog.String("key", key),
				slog.String("error", err.Error()),
			}, requestMetadata(err)...)...,
		)
		return nil, err
	}

	span.SetStatus(codes.Ok, "Object retrieved")
	return out.Body, nil
}

// requestMetadata pulls the diagnostic identifiers out of an S3 error so
// failed requests can be chased through AWS support tooling.
func requestMetadata(err error) []any {
	var attrs []any

	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		attrs = append(attrs,
			slog.String("s3.request_id", re.ServiceRequestID()),
			slog.Int("s3.status_code", re.HTTPStatusCode()),
		)
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		attrs = append(attrs, slog.String("s3.error_code", ae.ErrorCode()))
	}

	return attrs
}
