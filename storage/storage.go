// Package storage holds the read-through project caches. Every backend keeps
// one JSON document per level and overwrites it wholesale on store.
package storage

import (
	"context"
	"encoding/json"

	"github.com/wayBiggger/way-bigger-sub000/models"
	"golang.org/x/sync/errgroup"
)

type ProjectCache interface {
	// Name identifies the backend in logs.
	Name() string
	StoreProjects(ctx context.Context, level models.Level, projects []models.Project) error
	// GetProjects returns nil, nil when nothing is cached for level.
	GetProjects(ctx context.Context, level models.Level) ([]models.Project, error)
	// DeleteProjects succeeds when nothing is cached for level.
	DeleteProjects(ctx context.Context, level models.Level) error
	GetAllProjects(ctx context.Context) (map[models.Level][]models.Project, error)
	GetProjectStats(ctx context.Context) (models.ProjectStats, error)
}

const (
	documentContentType  = "application/json"
	documentCacheControl = "public, max-age=3600"
)

// objectKey is the cloud object name for a level.
func objectKey(level models.Level) string {
	return "projects/" + string(level) + ".json"
}

func encodeProjects(projects []models.Project) ([]byte, error) {
	if projects == nil {
		projects = []models.Project{}
	}
	return json.MarshalIndent(projects, "", "  ")
}

func decodeProjects(data []byte) ([]models.Project, error) {
	var projects []models.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

// fetchLevels reads every level concurrently.
func fetchLevels(ctx context.Context, c ProjectCache) ([][]models.Project, error) {
	results := make([][]models.Project, len(models.Levels))
	g, gctx := errgroup.WithContext(ctx)
	for i, level := range models.Levels {
		g.Go(func() error {
			projects, err := c.GetProjects(gctx, level)
			if err != nil {
				return err
			}
			results[i] = projects
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// allProjects returns only the levels that have a cached document.
func allProjects(ctx context.Context, c ProjectCache) (map[models.Level][]models.Project, error) {
	results, err := fetchLevels(ctx, c)
	if err != nil {
		return nil, err
	}
	all := make(map[models.Level][]models.Project, len(results))
	for i, projects := range results {
		if projects != nil {
			all[models.Levels[i]] = projects
		}
	}
	return all, nil
}

func projectStats(ctx context.Context, c ProjectCache) (models.ProjectStats, error) {
	results, err := fetchLevels(ctx, c)
	if err != nil {
		return models.ProjectStats{}, err
	}
	var stats models.ProjectStats
	for i, projects := range results {
		stats.Set(models.Levels[i], len(projects))
	}
	return stats, nil
}
