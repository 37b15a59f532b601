package inventory

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kulmaganbetov/overbot123/models"
)

// S3Config locates the dealer export in an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Key       string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3Source reads the dealer export from object storage.
type S3Source struct {
	api    *minio.Client
	bucket string
	key    string
}

func NewS3Source(cfg S3Config) (*S3Source, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}
	return &S3Source{api: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

func (s *S3Source) Name() string { return fmt.Sprintf("s3://%s/%s", s.bucket, s.key) }

func (s *S3Source) Load(ctx context.Context) ([]models.Product, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.Name(), err)
	}
	defer obj.Close()

	products, err := DecodeDealerJSON(obj)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	return products, nil
}
