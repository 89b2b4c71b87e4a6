// Package blobstore ek dosyaların saklandığı katmandır. Yerel dosya sistemi,
// S3 uyumlu depolama ve testler için bellek içi sürücü vardır.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Driver somut depolama sürücüsünü belirtir.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // yerel dosya sistemi (varsayılan)
	DriverS3         Driver = "s3"     // S3 / MinIO
	DriverMemory     Driver = "memory" // testler
)

// PutOptions Put için isteğe bağlı alanlar.
type PutOptions struct {
	ContentType string
	Size        int64 // biliniyorsa; S3 için Content-Length olarak gönderilir
	Metadata    map[string]string
}

// Info saklanan bir nesneyi tanımlar.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store ek dosya deposu.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) (bool, error)
	URL(key string) string
	Driver() Driver
}

var (
	ErrNotFound   = errors.New("blobstore: nesne bulunamadı")
	ErrExists     = errors.New("blobstore: nesne zaten var")
	ErrInvalidKey = errors.New("blobstore: geçersiz anahtar")
)

// CleanKey anahtarın kök dışına çıkmadığını doğrular ve normalize eder.
func CleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: boş", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return path.Clean(key), nil
}

// joinURL public taban adres ile anahtarı birleştirir.
func joinURL(base, key string) string {
	if base == "" {
		return "/" + key
	}
	return strings.TrimRight(base, "/") + "/" + key
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
