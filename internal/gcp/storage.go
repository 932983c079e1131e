package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

const pdfContentType = "application/pdf"

// Upload retry policy.
const (
	uploadMaxRetries = 4
	uploadBackoff    = 1 * time.Second
	uploadTimeout    = 50 * time.Second
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt reads a positive integer environment variable, returning fallback
// when it is unset or invalid.
func GetEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// It reports whether the object was written.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte, contentType string) (bool, error) {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping.", "gcsObject", objectName)
			return false, nil
		}
		return false, fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping.", "gcsObject", objectName)
			return false, nil
		}
		return false, fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return true, nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// isRetryable reports whether an upload error may succeed on a later attempt.
// Client errors other than timeouts and throttling are permanent.
func isRetryable(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return true
	}
	switch {
	case gerr.Code == http.StatusRequestTimeout, gerr.Code == http.StatusTooManyRequests:
		return true
	case gerr.Code >= 400 && gerr.Code < 500:
		return false
	}
	return true
}

// UploadWithRetry writes data to an object, overwriting it, retrying
// transient failures with exponential backoff.
func UploadWithRetry(ctx context.Context, bucket *storage.BucketHandle, object string, data []byte, contentType string) error {
	backoff := uploadBackoff
	var lastErr error

	for i := 0; i < uploadMaxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
			defer cancel()

			w := bucket.Object(object).NewWriter(writeCtx)
			w.ContentType = contentType
			if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
				_ = w.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
			}
			return nil
		}()

		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			slog.Error("Upload failed with a permanent error.", "gcsObject", object, "error", err)
			return fmt.Errorf("upload for %s failed: %w", object, err)
		}

		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", object,
			"attempt", i+1,
			"maxRetries", uploadMaxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", object, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", object, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", object, lastErr)
}

// ExportBucket stores rendered PDFs.
type ExportBucket struct {
	name   string
	bucket *storage.BucketHandle
}

// NewExportBucket returns the export bucket called name.
func NewExportBucket(client *storage.Client, name string) *ExportBucket {
	return &ExportBucket{name: name, bucket: client.Bucket(name)}
}

// Upload stores a PDF at object and returns its gs:// URI.
func (b *ExportBucket) Upload(ctx context.Context, object string, data []byte) (string, error) {
	if err := UploadWithRetry(ctx, b.bucket, object, data, pdfContentType); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", b.name, object), nil
}

// Archive stores a PDF at object unless a copy is already there. Archived
// copies are never overwritten.
func (b *ExportBucket) Archive(ctx context.Context, object string, data []byte) (bool, error) {
	return SaveToGCSAtomically(ctx, b.bucket, object, data, pdfContentType)
}

// ObjectAsset loads a branding asset such as the company logo from GCS.
type ObjectAsset struct {
	Bucket *storage.BucketHandle
	Object string
}

// Name implements pdfexport.AssetLoader.
func (a ObjectAsset) Name() string { return a.Object }

// Load implements pdfexport.AssetLoader.
func (a ObjectAsset) Load(ctx context.Context) ([]byte, error) {
	r, err := a.Bucket.Object(a.Object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("asset %s does not exist: %w", a.Object, err)
		}
		return nil, fmt.Errorf("failed to open asset %s: %w", a.Object, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset %s: %w", a.Object, err)
	}
	return data, nil
}
