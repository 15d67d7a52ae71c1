package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"campus-maintenance-system/pkg/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxPhotoSize is the largest photo accepted on reports and comments.
const MaxPhotoSize = 5 << 20

var (
	ErrTooLarge     = errors.New("file too large (max 5MB)")
	ErrNotAnImage   = errors.New("only image files are allowed")
	ErrEmptyUpload  = errors.New("uploaded file is empty")
	allowedImageExt = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
)

// PhotoStore keeps uploaded photos and hands back a public URL for them.
type PhotoStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Photo is an upload that passed ValidateImage.
type Photo struct {
	Body        []byte
	ContentType string
	Ext         string
}

// ValidateImage reads at most MaxPhotoSize+1 bytes and sniffs the content
// type from the data rather than trusting the client header.
func ValidateImage(r io.Reader) (*Photo, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyUpload
	}
	if len(body) > MaxPhotoSize {
		return nil, ErrTooLarge
	}

	mime := mimetype.Detect(body)
	for allowed, ext := range allowedImageExt {
		if mime.Is(allowed) {
			return &Photo{Body: body, ContentType: allowed, Ext: ext}, nil
		}
	}
	return nil, ErrNotAnImage
}

// ObjectKey builds a unique key under prefix, e.g. reports/2026/03/<uuid>.jpg.
func ObjectKey(prefix, ext string, now time.Time) string {
	return path.Join(prefix, now.Format("2006/01"), uuid.NewString()+ext)
}

// Stored names an uploaded object. Key is what Delete takes; URL is what
// clients see.
type Stored struct {
	Key string
	URL string
}

// Upload validates r and stores it under prefix.
func Upload(ctx context.Context, s PhotoStore, prefix string, r io.Reader) (Stored, error) {
	photo, err := ValidateImage(r)
	if err != nil {
		return Stored{}, err
	}
	key := ObjectKey(prefix, photo.Ext, time.Now().UTC())
	url, err := s.Put(ctx, key, photo.Body, photo.ContentType)
	if err != nil {
		return Stored{}, err
	}
	return Stored{Key: key, URL: url}, nil
}

// New picks the backend named by STORAGE_DRIVER.
func New(ctx context.Context, cfg config.Config) (PhotoStore, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case "minio", "":
		s, err := NewMinio(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "s3":
		s, err := NewS3(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemory(cfg.PublicBaseURL), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func publicURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + path.Join(bucket, key)
}

// Memory keeps objects in process; used for local runs and tests.
type Memory struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
}

func NewMemory(baseURL string) *Memory {
	return &Memory{baseURL: baseURL, objects: map[string][]byte{}}
}

func (m *Memory) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = bytes.Clone(body)
	return publicURL(m.baseURL, "memory", key), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
