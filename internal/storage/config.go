package storage

// MinIOConfig holds connection settings for any S3-compatible endpoint
// (MinIO, Cloudflare R2, AWS S3).
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	// PublicEndpoint is used to build ObjectURL; defaults to Endpoint.
	PublicEndpoint string
}

// GCSConfig selects the Google Cloud Storage bucket.
type GCSConfig struct {
	Bucket string
}
