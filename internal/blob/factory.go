package blob

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Open selects a Store implementation using environment variables.
//
//	SENSORCORE_BLOB_DRIVER: s3|fs|memory (default s3)
//	SENSORCORE_BLOB_FS_ROOT: directory root when driver=fs
//	SENSORCORE_S3_BUCKET: bucket name (required for s3)
//	SENSORCORE_S3_REGION: region (default us-east-1)
//	SENSORCORE_S3_ENDPOINT: custom endpoint, e.g. a MinIO URL (optional)
//	SENSORCORE_S3_ACCESS_KEY / SENSORCORE_S3_SECRET_KEY: static credentials
//	SENSORCORE_S3_PATH_STYLE: true|false (default false)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("SENSORCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverS3)
	}
	switch Driver(driver) {
	case DriverS3:
		bucket := os.Getenv("SENSORCORE_S3_BUCKET")
		if bucket == "" {
			return nil, fmt.Errorf("SENSORCORE_S3_BUCKET required for s3 driver")
		}
		return NewS3(ctx, S3Config{
			Bucket:          bucket,
			Region:          os.Getenv("SENSORCORE_S3_REGION"),
			Endpoint:        os.Getenv("SENSORCORE_S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("SENSORCORE_S3_ACCESS_KEY"),
			SecretAccessKey: os.Getenv("SENSORCORE_S3_SECRET_KEY"),
			PathStyle:       strings.EqualFold(os.Getenv("SENSORCORE_S3_PATH_STYLE"), "true"),
		})
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("SENSORCORE_BLOB_FS_ROOT"))
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
