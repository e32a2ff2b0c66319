package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wayBiggger/way-bigger-sub000/errs"
	"github.com/wayBiggger/way-bigger-sub000/models"
	"google.golang.org/api/option"
)

type GCSConfig struct {
	ProjectID       string
	BucketName      string
	CredentialsFile string
	Location        string
	StorageClass    string
}

// GCS caches each level as projects/<level>.json in a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	cfg    GCSConfig
	logger zerolog.Logger

	mu          sync.Mutex
	bucketReady bool
}

// ClientOptions picks credentials the same way the Google SDKs do: inline JSON
// or a key file path, else application default credentials.
func ClientOptions(credentials string) []option.ClientOption {
	credentials = strings.TrimSpace(credentials)
	if credentials == "" {
		return nil
	}
	if strings.HasPrefix(credentials, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credentials))}
	}
	return []option.ClientOption{option.WithCredentialsFile(credentials)}
}

func NewGCS(ctx context.Context, cfg GCSConfig, opts ...option.ClientOption) (*GCS, error) {
	if cfg.BucketName == "" {
		return nil, errs.NewConfigError("GCS_BUCKET_NAME", nil)
	}
	if cfg.Location == "" {
		cfg.Location = "US"
	}
	if cfg.StorageClass == "" {
		cfg.StorageClass = "STANDARD"
	}

	opts = append(ClientOptions(cfg.CredentialsFile), opts...)
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errs.NewStorageError("gcs", "create client", err)
	}
	return &GCS{
		client: client,
		cfg:    cfg,
		logger: log.With().Str("cache", "gcs").Str("bucket", cfg.BucketName).Logger(),
	}, nil
}

func (g *GCS) Name() string { return "gcs" }

func (g *GCS) Close() error { return g.client.Close() }

// ensureBucket creates the bucket on first write if it does not exist yet.
func (g *GCS) ensureBucket(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.bucketReady {
		return nil
	}

	bucket := g.client.Bucket(g.cfg.BucketName)
	_, err := bucket.Attrs(ctx)
	switch {
	case errors.Is(err, storage.ErrBucketNotExist):
		if err := bucket.Create(ctx, g.cfg.ProjectID, &storage.BucketAttrs{
			Location:     g.cfg.Location,
			StorageClass: g.cfg.StorageClass,
		}); err != nil {
			return errs.NewStorageError("gcs", "create bucket", err)
		}
		g.logger.Info().Msg("created bucket")
	case err != nil:
		return errs.NewStorageError("gcs", "check bucket", err)
	}

	g.bucketReady = true
	return nil
}

func (g *GCS) StoreProjects(ctx context.Context, level models.Level, projects []models.Project) error {
	if err := g.ensureBucket(ctx); err != nil {
		return err
	}
	data, err := encodeProjects(projects)
	if err != nil {
		return errs.NewStorageError("gcs", "encode "+string(level), err)
	}

	w := g.client.Bucket(g.cfg.BucketName).Object(objectKey(level)).NewWriter(ctx)
	w.ContentType = documentContentType
	w.CacheControl = documentCacheControl
	if _, err := w.Write(data); err != nil {
		w.Close()
		return errs.NewStorageError("gcs", "write "+objectKey(level), err)
	}
	if err := w.Close(); err != nil {
		return errs.NewStorageError("gcs", "write "+objectKey(level), err)
	}

	g.logger.Info().Str("level", string(level)).Int("count", len(projects)).Msg("stored projects")
	return nil
}

func (g *GCS) GetProjects(ctx context.Context, level models.Level) ([]models.Project, error) {
	r, err := g.client.Bucket(g.cfg.BucketName).Object(objectKey(level)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStorageError("gcs", "read "+objectKey(level), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.NewStorageError("gcs", "read "+objectKey(level), err)
	}
	projects, err := decodeProjects(data)
	if err != nil {
		return nil, errs.NewStorageError("gcs", "decode "+objectKey(level), err)
	}
	return projects, nil
}

func (g *GCS) DeleteProjects(ctx context.Context, level models.Level) error {
	err := g.client.Bucket(g.cfg.BucketName).Object(objectKey(level)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return errs.NewStorageError("gcs", "delete "+objectKey(level), err)
	}
	return nil
}

func (g *GCS) GetAllProjects(ctx context.Context) (map[models.Level][]models.Project, error) {
	return allProjects(ctx, g)
}

func (g *GCS) GetProjectStats(ctx context.Context) (models.ProjectStats, error) {
	return projectStats(ctx, g)
}
