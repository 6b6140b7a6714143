package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"

	"github.com/press141-netizen/reflex/dto"
	"github.com/press141-netizen/reflex/shared"
)

// BlobService relays uploaded images to object storage. Storage is an
// optional enhancement: when it is unconfigured or a put fails, the caller
// gets the original data URL back with the fallback flag set instead of an
// error.
type BlobService struct {
	appContext.DefaultService

	client     *minio.Client
	endpoint   string
	accessKey  string
	secretKey  string
	useSSL     bool
	bucketName string
	publicURL  string
}

const BLOB_SVC = "blob_svc"

var allowedImageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

func (svc BlobService) Id() string {
	return BLOB_SVC
}

func (svc *BlobService) Configure(ctx *appContext.Context) error {
	svc.endpoint = os.Getenv("MINIO_ENDPOINT")
	svc.accessKey = os.Getenv("MINIO_ACCESS_KEY")
	svc.secretKey = os.Getenv("MINIO_SECRET_KEY")
	svc.useSSL = os.Getenv("MINIO_USE_SSL") == "true"

	svc.bucketName = os.Getenv("MINIO_BUCKET_NAME")
	if svc.bucketName == "" {
		svc.bucketName = "reflex-uploads"
	}

	svc.publicURL = os.Getenv("MINIO_PUBLIC_URL")
	if svc.publicURL == "" && svc.endpoint != "" {
		scheme := "http"
		if svc.useSSL {
			scheme = "https"
		}
		svc.publicURL = fmt.Sprintf("%s://%s", scheme, svc.endpoint)
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *BlobService) Start() error {
	if svc.endpoint == "" || svc.accessKey == "" || svc.secretKey == "" {
		log.Warn("Blob storage not configured, uploads will fall back to inline data")
		return nil
	}

	client, err := minio.New(svc.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(svc.accessKey, svc.secretKey, ""),
		Secure: svc.useSSL,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to create blob storage client, uploads will fall back to inline data")
		return nil
	}

	svc.client = client

	if err := svc.ensureBucket(); err != nil {
		log.WithError(err).Warn("Blob storage bucket unavailable, uploads will fall back to inline data")
		svc.client = nil
		return nil
	}

	log.WithField("endpoint", svc.endpoint).Info("Blob storage started")
	return nil
}

func (svc *BlobService) ensureBucket() error {
	ctx := context.Background()

	exists, err := svc.client.BucketExists(ctx, svc.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := svc.client.MakeBucket(ctx, svc.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		log.WithField("bucket", svc.bucketName).Info("Created blob storage bucket")
	}

	return nil
}

var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// Store validates and decodes a base64 image, then relays it to object
// storage. Validation failures reject; relay failures fall open.
func (svc *BlobService) Store(ctx context.Context, image, contentType string) (*dto.UploadResult, error) {
	if contentType == "" {
		contentType = "image/png"
	}
	if _, ok := allowedImageTypes[contentType]; !ok {
		return nil, shared.NewBadRequestError(nil, "Unsupported content type: "+contentType)
	}

	encoded := dataURLPrefix.ReplaceAllString(image, "")

	// Reject oversized payloads from the base64 length before allocating
	// the decoded buffer.
	if estimatedSize(encoded) > shared.MaxUploadBytes {
		return nil, shared.NewBadRequestError(nil, "Image too large, maximum 10MB")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, shared.NewBadRequestError(err, "Invalid base64 image data")
	}

	if svc.client == nil {
		return &dto.UploadResult{URL: image, Fallback: true}, nil
	}

	objectName := svc.objectName(contentType)

	_, err = svc.client.PutObject(ctx, svc.bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		log.WithError(err).WithField("object", objectName).Error("Blob upload failed, falling back to inline data")
		RecordUploadFallback()
		return &dto.UploadResult{URL: image, Fallback: true}, nil
	}

	return &dto.UploadResult{
		URL: fmt.Sprintf("%s/%s/%s", svc.publicURL, svc.bucketName, objectName),
	}, nil
}

// objectName builds a collision-resistant name from a timestamp plus a
// random suffix, with the extension derived from the declared content type.
func (svc *BlobService) objectName(contentType string) string {
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		ext = "png"
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("reflex/%d-%s.%s", time.Now().UnixMilli(), suffix, ext)
}

// estimatedSize is the decoded byte count implied by a base64 string,
// computed without decoding.
func estimatedSize(encoded string) int {
	size := len(encoded) / 4 * 3
	if strings.HasSuffix(encoded, "==") {
		size -= 2
	} else if strings.HasSuffix(encoded, "=") {
		size--
	}
	return size
}
