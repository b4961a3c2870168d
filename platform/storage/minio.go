package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"fixit-be/apperrors"
	"fixit-be/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// sniffLen is how much of an upload is read to detect its type.
const sniffLen = 3072

// MinioStore keeps uploaded photos in a public-read bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinioStore(endpoint, accessKey, secretKey, bucket, publicURL string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + endpoint
	}
	return &MinioStore{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// EnsureBucket creates the bucket on first start.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload stores img under folder and returns its public URL. Anything that
// does not sniff as an image is rejected.
func (s *MinioStore) Upload(ctx context.Context, folder string, img *models.ImageUpload) (string, error) {
	reader, mime, err := DetectImage(img.Reader)
	if err != nil {
		return "", err
	}

	object := strings.Trim(folder, "/") + "/" + uuid.NewString() + mime.Extension()
	_, err = s.client.PutObject(ctx, s.bucket, object, reader, img.Size, minio.PutObjectOptions{
		ContentType: mime.String(),
	})
	if err != nil {
		return "", apperrors.Unavailable("Image upload failed", err)
	}
	return s.publicURL + "/" + s.bucket + "/" + object, nil
}

// DetectImage peeks at the head of r and checks it is an image. The returned
// reader still yields the full content.
func DetectImage(r io.Reader) (io.Reader, *mimetype.MIME, error) {
	buffered := bufio.NewReaderSize(r, sniffLen)
	head, err := buffered.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, nil, fmt.Errorf("reading upload: %w", err)
	}
	mime := mimetype.Detect(head)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, nil, apperrors.Validation("Uploaded file must be an image, got %s", mime.String())
	}
	return buffered, mime, nil
}
