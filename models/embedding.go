package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

const TableNameProjectEmbeddings = "project_embeddings"

// ProjectEmbedding is the pgvector-backed shadow index entry for an accepted project.
// It is keyed by the project's id but has no foreign key to generated_projects.
type ProjectEmbedding struct {
	ProjectID uuid.UUID       `gorm:"column:project_id;type:uuid;primaryKey" json:"project_id"`
	Level     Level           `gorm:"column:level;type:text;not null;index" json:"level"`
	Domain    Domain          `gorm:"column:domain;type:text" json:"domain"`
	Title     string          `gorm:"column:title;type:text" json:"title"`
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(1536)" json:"-"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (*ProjectEmbedding) TableName() string {
	return TableNameProjectEmbeddings
}
