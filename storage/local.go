package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wayBiggger/way-bigger-sub000/errs"
	"github.com/wayBiggger/way-bigger-sub000/models"
)

// Local keeps one file per level under dir, e.g. data/beginner.json.
type Local struct {
	dir    string
	logger zerolog.Logger
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.NewStorageError("local", "create data directory", err)
	}
	return &Local{
		dir:    dir,
		logger: log.With().Str("cache", "local").Str("dir", dir).Logger(),
	}, nil
}

func (l *Local) Name() string { return "local" }

func (l *Local) path(level models.Level) string {
	return filepath.Join(l.dir, string(level)+".json")
}

// StoreProjects writes to a temp file in the same directory and renames it
// over the target, so readers see either the old or the new document.
func (l *Local) StoreProjects(_ context.Context, level models.Level, projects []models.Project) error {
	data, err := encodeProjects(projects)
	if err != nil {
		return errs.NewStorageError("local", "encode "+string(level), err)
	}

	tmp, err := os.CreateTemp(l.dir, string(level)+".json.tmp-*")
	if err != nil {
		return errs.NewStorageError("local", "create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.NewStorageError("local", "write "+string(level), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errs.NewStorageError("local", "sync "+string(level), err)
	}
	if err := tmp.Close(); err != nil {
		return errs.NewStorageError("local", "close "+string(level), err)
	}
	if err := os.Rename(tmpName, l.path(level)); err != nil {
		return errs.NewStorageError("local", "rename "+string(level), err)
	}

	l.logger.Info().Str("level", string(level)).Int("count", len(projects)).Msg("stored projects")
	return nil
}

func (l *Local) GetProjects(_ context.Context, level models.Level) ([]models.Project, error) {
	data, err := os.ReadFile(l.path(level))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStorageError("local", "read "+string(level), err)
	}

	projects, err := decodeProjects(data)
	if err != nil {
		return nil, errs.NewStorageError("local", fmt.Sprintf("decode %s", l.path(level)), err)
	}
	return projects, nil
}

func (l *Local) DeleteProjects(_ context.Context, level models.Level) error {
	err := os.Remove(l.path(level))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errs.NewStorageError("local", "delete "+string(level), err)
	}
	l.logger.Info().Str("level", string(level)).Msg("deleted projects")
	return nil
}

func (l *Local) GetAllProjects(ctx context.Context) (map[models.Level][]models.Project, error) {
	return allProjects(ctx, l)
}

func (l *Local) GetProjectStats(ctx context.Context) (models.ProjectStats, error) {
	return projectStats(ctx, l)
}
