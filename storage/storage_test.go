package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayBiggger/way-bigger-sub000/errs"
	"github.com/wayBiggger/way-bigger-sub000/models"
)

func sampleProjects(n int) []models.Project {
	out := make([]models.Project, n)
	for i := range out {
		out[i] = models.Project{
			ID:          uuid.New(),
			Title:       "Project",
			Description: "Build something",
			TechStack:   "Go, React",
			Difficulty:  "beginner",
			Outcome:     "A working app",
			Domain:      models.DomainWebDevelopment,
		}
	}
	return out
}

func TestLocalStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cache, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	projects := sampleProjects(3)
	require.NoError(t, cache.StoreProjects(ctx, models.LevelBeginner, projects))
	require.NoError(t, cache.StoreProjects(ctx, models.LevelBeginner, projects))

	got, err := cache.GetProjects(ctx, models.LevelBeginner)
	require.NoError(t, err)
	assert.Equal(t, projects, got)
}

func TestLocalGetAbsentReturnsNil(t *testing.T) {
	cache, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	got, err := cache.GetProjects(context.Background(), models.LevelAdvanced)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLocalStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewLocal(dir)
	require.NoError(t, err)

	require.NoError(t, cache.StoreProjects(context.Background(), models.LevelIntermediate, sampleProjects(2)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "intermediate.json", entries[0].Name())
}

func TestLocalConcurrentWritesNeverCorrupt(t *testing.T) {
	ctx := context.Background()
	cache, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	small, large := sampleProjects(1), sampleProjects(200)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := small
			if i%2 == 0 {
				batch = large
			}
			assert.NoError(t, cache.StoreProjects(ctx, models.LevelBeginner, batch))
		}()
	}
	wg.Wait()

	got, err := cache.GetProjects(ctx, models.LevelBeginner)
	require.NoError(t, err)
	assert.Contains(t, []int{1, 200}, len(got))
}

func TestLocalDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cache, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cache.StoreProjects(ctx, models.LevelAdvanced, sampleProjects(1)))
	require.NoError(t, cache.DeleteProjects(ctx, models.LevelAdvanced))
	require.NoError(t, cache.DeleteProjects(ctx, models.LevelAdvanced))

	got, err := cache.GetProjects(ctx, models.LevelAdvanced)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLocalCorruptFileIsStorageError(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewLocal(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "beginner.json"), []byte(`[{"title":`), 0o644))

	_, err = cache.GetProjects(context.Background(), models.LevelBeginner)
	require.Error(t, err)
	assert.True(t, errs.IsStorageError(err))
}

func TestLocalStatsAndAll(t *testing.T) {
	ctx := context.Background()
	cache, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cache.StoreProjects(ctx, models.LevelBeginner, sampleProjects(4)))
	require.NoError(t, cache.StoreProjects(ctx, models.LevelAdvanced, sampleProjects(2)))

	stats, err := cache.GetProjectStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStats{Beginner: 4, Intermediate: 0, Advanced: 2, Total: 6}, stats)

	all, err := cache.GetAllProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Len(t, all[models.LevelBeginner], 4)
	_, ok := all[models.LevelIntermediate]
	assert.False(t, ok)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, meta: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.meta[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3RoundTripUsesLevelKeys(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	cache, err := NewS3(client, "waybigger-projects")
	require.NoError(t, err)

	got, err := cache.GetProjects(ctx, models.LevelBeginner)
	require.NoError(t, err)
	assert.Nil(t, got)

	projects := sampleProjects(5)
	require.NoError(t, cache.StoreProjects(ctx, models.LevelBeginner, projects))
	assert.Contains(t, client.objects, "projects/beginner.json")
	assert.Equal(t, "application/json", client.meta["projects/beginner.json"])

	got, err = cache.GetProjects(ctx, models.LevelBeginner)
	require.NoError(t, err)
	assert.Equal(t, projects, got)

	stats, err := cache.GetProjectStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)

	require.NoError(t, cache.DeleteProjects(ctx, models.LevelBeginner))
	got, err = cache.GetProjects(ctx, models.LevelBeginner)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(newFakeS3(), "")
	require.Error(t, err)
	assert.True(t, errs.IsConfigError(err))
}

func TestClientOptions(t *testing.T) {
	assert.Nil(t, ClientOptions(""))
	assert.Len(t, ClientOptions(`{"type":"service_account"}`), 1)
	assert.Len(t, ClientOptions("/etc/gcp/key.json"), 1)
}
