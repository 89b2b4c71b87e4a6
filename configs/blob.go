package configs

import (
	"context"
	"fmt"

	"destek.link/configs/configslog"
	"destek.link/pkg/blobstore"
)

var blobStore blobstore.Store

// InitBlobStore BLOB_DRIVER'a göre ek dosya deposunu kurar: fs (varsayılan),
// s3 veya memory.
func InitBlobStore(ctx context.Context) error {
	publicBase := GetEnv("BLOB_PUBLIC_BASE_URL", "/uploads")
	driver := blobstore.Driver(GetEnv("BLOB_DRIVER", string(blobstore.DriverFilesystem)))

	var (
		store blobstore.Store
		err   error
	)
	switch driver {
	case blobstore.DriverFilesystem:
		store, err = blobstore.NewFS(GetEnv("BLOB_FS_ROOT", "./storage/uploads"), publicBase)
	case blobstore.DriverS3:
		store, err = blobstore.NewS3(ctx, blobstore.S3Config{
			Bucket:          GetEnv("BLOB_S3_BUCKET", ""),
			Region:          GetEnv("BLOB_S3_REGION", ""),
			Endpoint:        GetEnv("BLOB_S3_ENDPOINT", ""),
			PathStyle:       GetEnvBool("BLOB_S3_PATH_STYLE", false),
			AccessKeyID:     GetEnv("BLOB_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: GetEnv("BLOB_S3_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   GetEnv("BLOB_PUBLIC_BASE_URL", ""),
		})
	case blobstore.DriverMemory:
		store = blobstore.NewMemory(publicBase)
	default:
		return fmt.Errorf("bilinmeyen BLOB_DRIVER: %q", driver)
	}
	if err != nil {
		return err
	}
	blobStore = store
	configslog.SLog.Infof("Ek dosya deposu hazır: %s", store.Driver())
	return nil
}

func GetBlobStore() blobstore.Store { return blobStore }

// SetBlobStore depoyu dışarıdan ayarlar (testler).
func SetBlobStore(s blobstore.Store) { blobStore = s }
