package database

import (
	"github.com/wayBiggger/way-bigger-sub000/errs"
	"github.com/wayBiggger/way-bigger-sub000/models"
	"gorm.io/gorm"
)

type Database struct {
	db            *gorm.DB
	projectRepo   *ProjectRepo
	embeddingRepo *EmbeddingRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB, opts ...func(*ProjectRepo)) Database {
	return Database{
		db:            db,
		projectRepo:   NewProjectRepo(db, opts...),
		embeddingRepo: NewEmbeddingRepo(db),
	}
}

// Accessor methods for each repository

func (d Database) ProjectRepo() *ProjectRepo {
	return d.projectRepo
}

func (d Database) EmbeddingRepo() *EmbeddingRepo {
	return d.embeddingRepo
}

// Migrate creates or updates the generated_projects table, and the
// project_embeddings table when the pgvector index is in use.
func (d Database) Migrate(withEmbeddings bool) error {
	if err := d.db.AutoMigrate(&models.GeneratedProject{}); err != nil {
		return errs.NewDatabaseError("migrate", "generated_projects", err)
	}
	if withEmbeddings {
		if err := d.db.AutoMigrate(&models.ProjectEmbedding{}); err != nil {
			return errs.NewDatabaseError("migrate", models.TableNameProjectEmbeddings, err)
		}
	}
	return nil
}
