package config

import "os"

// StorageConfig describes the S3-compatible bucket that holds floor
// images.  Endpoint is only needed for non-AWS providers (MinIO, R2);
// PublicBaseURL is the prefix under which uploaded objects are served.
// Storage is disabled when Bucket is empty.
type StorageConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	PathStyle     bool
}

// Enabled reports whether a bucket is configured.
func (s StorageConfig) Enabled() bool { return s.Bucket != "" }

// LoadStorageConfig reads the S3_* variables.
func LoadStorageConfig() StorageConfig {
	return ParseStorageConfig(os.LookupEnv)
}

func ParseStorageConfig(lookup func(string) (string, bool)) StorageConfig {
	r := lenient{lookup}
	return StorageConfig{
		Bucket:        r.str("S3_BUCKET", ""),
		Region:        r.str("S3_REGION", "us-east-1"),
		Endpoint:      r.str("S3_ENDPOINT", ""),
		AccessKey:     r.str("S3_ACCESS_KEY", ""),
		SecretKey:     r.str("S3_SECRET_KEY", ""),
		PublicBaseURL: r.str("S3_PUBLIC_BASE_URL", ""),
		PathStyle:     r.bool("S3_PATH_STYLE", false),
	}
}
