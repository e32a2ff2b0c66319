package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wayBiggger/way-bigger-sub000/errs"
	"github.com/wayBiggger/way-bigger-sub000/models"
)

// S3API is the subset of the S3 client the cache uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 caches each level as projects/<level>.json in an S3 bucket.
type S3 struct {
	client S3API
	bucket string
	logger zerolog.Logger
}

// NewS3FromEnv builds the client from the default AWS credential chain.
func NewS3FromEnv(ctx context.Context, bucket, region string) (*S3, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.NewStorageError("s3", "load aws config", err)
	}
	return NewS3(s3.NewFromConfig(awsCfg), bucket)
}

func NewS3(client S3API, bucket string) (*S3, error) {
	if bucket == "" {
		return nil, errs.NewConfigError("S3_BUCKET_NAME", nil)
	}
	return &S3{
		client: client,
		bucket: bucket,
		logger: log.With().Str("cache", "s3").Str("bucket", bucket).Logger(),
	}, nil
}

func (s *S3) Name() string { return "s3" }

func (s *S3) StoreProjects(ctx context.Context, level models.Level, projects []models.Project) error {
	data, err := encodeProjects(projects)
	if err != nil {
		return errs.NewStorageError("s3", "encode "+string(level), err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(objectKey(level)),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(documentContentType),
		CacheControl: aws.String(documentCacheControl),
	})
	if err != nil {
		return errs.NewStorageError("s3", "put "+objectKey(level), err)
	}

	s.logger.Info().Str("level", string(level)).Int("count", len(projects)).Msg("stored projects")
	return nil
}

func (s *S3) GetProjects(ctx context.Context, level models.Level) ([]models.Project, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(level)),
	})
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStorageError("s3", "get "+objectKey(level), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errs.NewStorageError("s3", "read "+objectKey(level), err)
	}
	projects, err := decodeProjects(data)
	if err != nil {
		return nil, errs.NewStorageError("s3", "decode "+objectKey(level), err)
	}
	return projects, nil
}

func (s *S3) DeleteProjects(ctx context.Context, level models.Level) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(level)),
	})
	if err != nil {
		return errs.NewStorageError("s3", "delete "+objectKey(level), err)
	}
	return nil
}

func (s *S3) GetAllProjects(ctx context.Context) (map[models.Level][]models.Project, error) {
	return allProjects(ctx, s)
}

func (s *S3) GetProjectStats(ctx context.Context) (models.ProjectStats, error) {
	return projectStats(ctx, s)
}
