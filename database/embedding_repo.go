package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/wayBiggger/way-bigger-sub000/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmbeddingRepo is a pgvector similarity index over accepted projects.
type EmbeddingRepo struct {
	db *gorm.DB
}

func NewEmbeddingRepo(db *gorm.DB) *EmbeddingRepo {
	return &EmbeddingRepo{db}
}

// EmbeddingMatch is a nearest-neighbour hit with cosine similarity in [-1, 1].
type EmbeddingMatch struct {
	ProjectID uuid.UUID
	Title     string
	Score     float64
}

// Upsert writes or replaces the vector for a project.
func (r *EmbeddingRepo) Upsert(ctx context.Context, e *models.ProjectEmbedding) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"level", "domain", "title", "embedding"}),
		}).
		Create(e).Error
}

// Nearest returns up to topK entries in level ordered by cosine distance, closest first.
func (r *EmbeddingRepo) Nearest(ctx context.Context, level models.Level, vector []float32, topK int) ([]EmbeddingMatch, error) {
	q := pgvector.NewVector(vector)
	var matches []EmbeddingMatch
	err := r.db.WithContext(ctx).Raw(
		`SELECT project_id, title, 1 - (embedding <=> ?) AS score
		   FROM project_embeddings
		  WHERE level = ?
		  ORDER BY embedding <=> ?
		  LIMIT ?`,
		q, level, q, topK,
	).Scan(&matches).Error
	return matches, err
}
