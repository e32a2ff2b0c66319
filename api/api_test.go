package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayBiggger/way-bigger-sub000/errs"
	"github.com/wayBiggger/way-bigger-sub000/models"
	"github.com/wayBiggger/way-bigger-sub000/services"
	"github.com/wayBiggger/way-bigger-sub000/storage"
)

type fakeGenerator struct {
	projects []models.Project
	err      error
	calls    int
	ctxErr   error
}

func (f *fakeGenerator) GenerateAllDomainsForLevel(ctx context.Context, level models.Level) ([]models.Project, error) {
	f.calls++
	f.ctxErr = ctx.Err()
	return f.projects, f.err
}

type fakeReader struct {
	rows []models.GeneratedProject
	err  error
}

func (f fakeReader) GetActiveProjectsByLevel(models.Level) ([]models.GeneratedProject, error) {
	return f.rows, f.err
}

// brokenCache fails every call.
type brokenCache struct{}

func (brokenCache) Name() string { return "broken" }
func (brokenCache) StoreProjects(context.Context, models.Level, []models.Project) error {
	return errs.NewStorageError("broken", "store", errors.New("disk full"))
}
func (brokenCache) GetProjects(context.Context, models.Level) ([]models.Project, error) {
	return nil, errs.NewStorageError("broken", "read", errors.New("io"))
}
func (brokenCache) DeleteProjects(context.Context, models.Level) error {
	return errs.NewStorageError("broken", "delete", errors.New("io"))
}
func (brokenCache) GetAllProjects(context.Context) (map[models.Level][]models.Project, error) {
	return nil, errs.NewStorageError("broken", "read", errors.New("io"))
}
func (brokenCache) GetProjectStats(context.Context) (models.ProjectStats, error) {
	return models.ProjectStats{}, errs.NewStorageError("broken", "read", errors.New("io"))
}

func sampleProjects(n int, level models.Level) []models.Project {
	projects := make([]models.Project, n)
	for i := range projects {
		projects[i] = models.Project{
			ID:          uuid.New(),
			Title:       "Generated " + string(rune('A'+i)),
			Description: "desc",
			TechStack:   "Go",
			Difficulty:  string(level),
			Outcome:     "outcome",
			Domain:      models.DomainWebDevelopment,
		}
	}
	return projects
}

func newTestRouter(t *testing.T, deps Dependencies) (http.Handler, *storage.Local) {
	t.Helper()
	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	if deps.LocalCache == nil {
		deps.LocalCache = local
	}
	if deps.Generator == nil {
		deps.Generator = &fakeGenerator{}
	}
	return newRouter(deps), local
}

func do(t *testing.T, h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t, Dependencies{})

	rec := do(t, h, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
}

func TestGetProjectsColdStartSynthesizesAndCaches(t *testing.T) {
	h, local := newTestRouter(t, Dependencies{})

	first := do(t, h, http.MethodGet, "/projects/beginner", nil)
	require.Equal(t, http.StatusOK, first.Code)
	projects := decode[[]models.Project](t, first)
	assert.Len(t, projects, services.FallbackPerDomain*len(models.Domains))

	cached, err := local.GetProjects(context.Background(), models.LevelBeginner)
	require.NoError(t, err)
	assert.Len(t, cached, len(projects))

	second := do(t, h, http.MethodGet, "/projects/beginner", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestGetProjectsLevelIsCaseInsensitive(t *testing.T) {
	h, _ := newTestRouter(t, Dependencies{})

	rec := do(t, h, http.MethodGet, "/projects/ADVANCED", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	projects := decode[[]models.Project](t, rec)
	require.NotEmpty(t, projects)
	assert.Equal(t, "advanced", projects[0].Difficulty)
}

func TestUnknownLevelIsBadRequest(t *testing.T) {
	h, _ := newTestRouter(t, Dependencies{})

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/projects/expert"},
		{http.MethodDelete, "/projects/expert"},
		{http.MethodPost, "/projects/generate/expert"},
	} {
		rec := do(t, h, tc.method, tc.target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.method+" "+tc.target)
		assert.Equal(t, "level", decode[ErrorResponse](t, rec).Field)
	}
}

func TestGetProjectsPrefersLocalCache(t *testing.T) {
	h, local := newTestRouter(t, Dependencies{
		Store: fakeReader{rows: []models.GeneratedProject{{ID: uuid.New(), Title: "from db", Level: models.LevelIntermediate}}},
	})
	stored := sampleProjects(2, models.LevelIntermediate)
	require.NoError(t, local.StoreProjects(context.Background(), models.LevelIntermediate, stored))

	rec := do(t, h, http.MethodGet, "/projects/intermediate", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, stored, decode[[]models.Project](t, rec))
}

func TestGetProjectsFallsThroughToCloudThenStore(t *testing.T) {
	cloudDir, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	fromCloud := sampleProjects(3, models.LevelAdvanced)
	require.NoError(t, cloudDir.StoreProjects(context.Background(), models.LevelAdvanced, fromCloud))

	h, _ := newTestRouter(t, Dependencies{CloudCache: cloudDir})
	rec := do(t, h, http.MethodGet, "/projects/advanced", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fromCloud, decode[[]models.Project](t, rec))

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	row := models.NewGeneratedProject(uuid.New(), models.LevelAdvanced, models.Candidate{
		Title: "Durable", Description: "d", TechStack: "Go", Difficulty: "advanced", Outcome: "o", Domain: models.DomainMobile,
	}, now)
	h, _ = newTestRouter(t, Dependencies{CloudCache: brokenCache{}, Store: fakeReader{rows: []models.GeneratedProject{row}}})
	rec = do(t, h, http.MethodGet, "/projects/advanced", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.Project{row.ToProject()}, decode[[]models.Project](t, rec))
}

func TestGetProjectsSurvivesBrokenLocalCache(t *testing.T) {
	h, _ := newTestRouter(t, Dependencies{LocalCache: brokenCache{}})

	rec := do(t, h, http.MethodGet, "/projects/beginner", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]models.Project](t, rec))
}

func TestGenerateStoresAcceptedProjects(t *testing.T) {
	generated := sampleProjects(3, models.LevelBeginner)
	gen := &fakeGenerator{projects: generated}
	cloud, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	h, local := newTestRouter(t, Dependencies{Generator: gen, CloudCache: cloud})

	rec := do(t, h, http.MethodPost, "/projects/generate/beginner", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[GenerateResponse](t, rec)
	assert.Equal(t, "Generated 3 projects for beginner across all domains", resp.Message)
	assert.Equal(t, generated, resp.Projects)
	assert.Equal(t, 1, gen.calls)
	assert.NoError(t, gen.ctxErr)

	for _, c := range []storage.ProjectCache{local, cloud} {
		got, err := c.GetProjects(context.Background(), models.LevelBeginner)
		require.NoError(t, err)
		assert.Equal(t, generated, got, c.Name())
	}
}

func TestGenerateKeepsPartialResultsOnError(t *testing.T) {
	gen := &fakeGenerator{projects: sampleProjects(2, models.LevelBeginner), err: errs.NewRateLimitError("gemini", 0)}
	h, _ := newTestRouter(t, Dependencies{Generator: gen})

	rec := do(t, h, http.MethodPost, "/projects/generate/beginner", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[GenerateResponse](t, rec)
	assert.Len(t, resp.Projects, 2)
	assert.Equal(t, "Generated 2 projects for beginner across all domains", resp.Message)
}

func TestGenerateRateLimitedServesMockData(t *testing.T) {
	gen := &fakeGenerator{err: errs.NewRateLimitError("gemini", time.Minute)}
	h, local := newTestRouter(t, Dependencies{Generator: gen})

	rec := do(t, h, http.MethodPost, "/projects/generate/intermediate", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[GenerateResponse](t, rec)
	assert.Contains(t, resp.Message, "rate limited")
	assert.Len(t, resp.Projects, services.FallbackPerDomain*len(models.Domains))

	cached, err := local.GetProjects(context.Background(), models.LevelIntermediate)
	require.NoError(t, err)
	assert.Equal(t, resp.Projects, cached)
}

func TestGenerateFallbackReasons(t *testing.T) {
	cases := map[string]error{
		"content generator not configured": errs.NewConfigError("GOOGLE_API_KEY", nil),
		"API rate limited":                 errs.NewCircuitOpenError("gemini"),
		"generation failed":                errors.New("boom"),
		"no new projects accepted":         nil,
	}
	for reason, genErr := range cases {
		h, _ := newTestRouter(t, Dependencies{Generator: &fakeGenerator{err: genErr}})

		rec := do(t, h, http.MethodPost, "/projects/generate/advanced", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Generated 250 mock projects for advanced across all domains ("+reason+")", decode[GenerateResponse](t, rec).Message)
	}
}

func TestGenerateStorageFailureIsInternalError(t *testing.T) {
	gen := &fakeGenerator{projects: sampleProjects(1, models.LevelBeginner)}
	h, _ := newTestRouter(t, Dependencies{LocalCache: brokenCache{}, Generator: gen})

	rec := do(t, h, http.MethodPost, "/projects/generate/beginner", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", decode[ErrorResponse](t, rec).Status)
}

func TestGenerateCloudFailureIsNotFatal(t *testing.T) {
	gen := &fakeGenerator{projects: sampleProjects(1, models.LevelBeginner)}
	h, _ := newTestRouter(t, Dependencies{CloudCache: brokenCache{}, Generator: gen})

	rec := do(t, h, http.MethodPost, "/projects/generate/beginner", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteIsIdempotentAndReadStillServes(t *testing.T) {
	h, local := newTestRouter(t, Dependencies{})
	require.NoError(t, local.StoreProjects(context.Background(), models.LevelAdvanced, sampleProjects(2, models.LevelAdvanced)))

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodDelete, "/projects/advanced", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Deleted all advanced projects from local storage", decode[MessageResponse](t, rec).Message)
	}

	rec := do(t, h, http.MethodGet, "/projects/advanced", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]models.Project](t, rec))
}

func TestDeleteStorageFailure(t *testing.T) {
	h, _ := newTestRouter(t, Dependencies{LocalCache: brokenCache{}})

	rec := do(t, h, http.MethodDelete, "/projects/beginner", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatsAndAll(t *testing.T) {
	h, local := newTestRouter(t, Dependencies{})
	ctx := context.Background()
	require.NoError(t, local.StoreProjects(ctx, models.LevelBeginner, sampleProjects(3, models.LevelBeginner)))
	require.NoError(t, local.StoreProjects(ctx, models.LevelAdvanced, sampleProjects(1, models.LevelAdvanced)))

	rec := do(t, h, http.MethodGet, "/projects/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ProjectStats{Beginner: 3, Advanced: 1, Total: 4}, decode[models.ProjectStats](t, rec))

	rec = do(t, h, http.MethodGet, "/projects/all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[map[models.Level][]models.Project](t, rec)
	assert.Len(t, all[models.LevelBeginner], 3)
	assert.Len(t, all[models.LevelAdvanced], 1)
	assert.NotContains(t, all, models.LevelIntermediate)
}

func TestStatsAndAllStorageFailure(t *testing.T) {
	h, _ := newTestRouter(t, Dependencies{LocalCache: brokenCache{}})

	rec := do(t, h, http.MethodGet, "/projects/stats", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "Failed to get project statistics")

	rec = do(t, h, http.MethodGet, "/projects/all", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "Failed to get all projects")
}

func TestCORSReflectsOnlyLocalFrontends(t *testing.T) {
	h, _ := newTestRouter(t, Dependencies{})

	for _, origin := range []string{"http://localhost:3000", "http://localhost:3001", "http://localhost:3002"} {
		rec := do(t, h, http.MethodGet, "/health", map[string]string{"Origin": origin})
		assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
	}

	for _, origin := range []string{"http://localhost:4000", "https://evil.example.com"} {
		rec := do(t, h, http.MethodGet, "/health", map[string]string{"Origin": origin})
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t, Dependencies{})

	rec := do(t, h, http.MethodOptions, "/projects/generate/beginner", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": http.MethodPost,
	})

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRecoverWritesInternalError(t *testing.T) {
	h := LogInternalServerErrors(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := do(t, h, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(map[string]string{}, Dependencies{})
	assert.Error(t, err)

	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	srv, err := NewServer(map[string]string{"PORT": "5050", "WRITE_TIMEOUT_SECONDS": "9"}, Dependencies{LocalCache: local, Generator: &fakeGenerator{}})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:5050", srv.Addr)
	assert.Equal(t, 9*time.Second, srv.WriteTimeout)
	assert.Equal(t, 30*time.Second, srv.ReadTimeout)
}
