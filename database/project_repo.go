package database

import (
	"time"

	"github.com/wayBiggger/way-bigger-sub000/models"
	"gorm.io/gorm"
)

type ProjectRepo struct {
	db  *gorm.DB
	now func() time.Time
}

// WithClock overrides the time source used for validity windows.
func WithClock(now func() time.Time) func(*ProjectRepo) {
	return func(r *ProjectRepo) {
		r.now = now
	}
}

func NewProjectRepo(db *gorm.DB, opts ...func(*ProjectRepo)) *ProjectRepo {
	repo := &ProjectRepo{db: db, now: time.Now}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// GetDB returns the underlying database connection for debugging purposes
func (r *ProjectRepo) GetDB() *gorm.DB {
	return r.db
}

// Now returns the repo's current time in UTC.
func (r *ProjectRepo) Now() time.Time {
	return r.now().UTC()
}

// InsertProject appends a generated project row.
// GeneratedOn and ValidTill are filled from the repo clock when unset.
func (r *ProjectRepo) InsertProject(project *models.GeneratedProject) error {
	if project.GeneratedOn.IsZero() {
		project.GeneratedOn = r.Now()
	}
	if project.ValidTill.IsZero() {
		project.ValidTill = project.GeneratedOn.Add(models.ValidityWindow)
	}
	return r.db.Create(project).Error
}

// GetActiveProjectsByLevel returns unexpired projects for level, newest first.
func (r *ProjectRepo) GetActiveProjectsByLevel(level models.Level) ([]models.GeneratedProject, error) {
	var projects []models.GeneratedProject
	err := r.db.
		Where("level = ? AND valid_till >= ?", level, r.Now()).
		Order("generated_on DESC").
		Find(&projects).Error
	return projects, err
}

// DeleteExpired hard-deletes rows whose validity window has passed.
func (r *ProjectRepo) DeleteExpired() (int64, error) {
	result := r.db.Where("valid_till < ?", r.Now()).Delete(&models.GeneratedProject{})
	return result.RowsAffected, result.Error
}

// DeleteByLevel wipes every stored row for level.
func (r *ProjectRepo) DeleteByLevel(level models.Level) (int64, error) {
	result := r.db.Where("level = ?", level).Delete(&models.GeneratedProject{})
	return result.RowsAffected, result.Error
}

// CountActiveByLevel counts unexpired rows for level.
func (r *ProjectRepo) CountActiveByLevel(level models.Level) (int64, error) {
	var count int64
	err := r.db.Model(&models.GeneratedProject{}).
		Where("level = ? AND valid_till >= ?", level, r.Now()).
		Count(&count).Error
	return count, err
}
