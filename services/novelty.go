package services

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"github.com/wayBiggger/way-bigger-sub000/database"
	"github.com/wayBiggger/way-bigger-sub000/models"
)

const (
	DefaultNoveltyThreshold = 0.85
	noveltyTopK             = 3
)

// VectorMatch is a neighbour returned by a VectorIndex, best first.
type VectorMatch struct {
	ID    string
	Score float64
}

// VectorIndex stores project embeddings and answers level-scoped nearest-neighbour queries.
type VectorIndex interface {
	Nearest(ctx context.Context, level models.Level, vector []float32, topK int) ([]VectorMatch, error)
	Upsert(ctx context.Context, level models.Level, project models.Project, vector []float32) error
}

// NoveltyChecker decides whether a candidate repeats something already accepted.
type NoveltyChecker interface {
	IsTooSimilar(ctx context.Context, text string, level models.Level) (bool, error)
	// Remember records an accepted project so later checks see it.
	Remember(ctx context.Context, level models.Level, project models.Project) error
}

// NewNoveltyChecker returns a SemanticChecker when both collaborators are
// configured and AlwaysAccept otherwise.
func NewNoveltyChecker(embedder Embedder, index VectorIndex, threshold float64) NoveltyChecker {
	if embedder == nil || index == nil {
		return AlwaysAccept{}
	}
	if threshold <= 0 {
		threshold = DefaultNoveltyThreshold
	}
	return &SemanticChecker{embedder: embedder, index: index, threshold: threshold}
}

// AlwaysAccept never rejects and remembers nothing.
type AlwaysAccept struct{}

func (AlwaysAccept) IsTooSimilar(context.Context, string, models.Level) (bool, error) {
	return false, nil
}

func (AlwaysAccept) Remember(context.Context, models.Level, models.Project) error {
	return nil
}

// SemanticChecker rejects a candidate whose closest same-level neighbour
// scores at or above the threshold.
type SemanticChecker struct {
	embedder  Embedder
	index     VectorIndex
	threshold float64
}

func (s *SemanticChecker) IsTooSimilar(ctx context.Context, text string, level models.Level) (bool, error) {
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return false, err
	}
	matches, err := s.index.Nearest(ctx, level, vector, noveltyTopK)
	if err != nil {
		return false, err
	}
	if len(matches) == 0 {
		return false, nil
	}
	return matches[0].Score >= s.threshold, nil
}

func (s *SemanticChecker) Remember(ctx context.Context, level models.Level, project models.Project) error {
	text := project.Title + " " + project.Description + " " + project.TechStack
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return err
	}
	return s.index.Upsert(ctx, level, project, vector)
}

// PineconeIndex adapts PineconeClient to VectorIndex.
type PineconeIndex struct {
	client *PineconeClient
}

func NewPineconeIndex(client *PineconeClient) *PineconeIndex {
	return &PineconeIndex{client: client}
}

func (p *PineconeIndex) Nearest(ctx context.Context, level models.Level, vector []float32, topK int) ([]VectorMatch, error) {
	matches, err := p.client.Query(ctx, vector, topK, map[string]any{"level": string(level)})
	if err != nil {
		return nil, err
	}
	out := make([]VectorMatch, len(matches))
	for i, m := range matches {
		out[i] = VectorMatch{ID: m.ID, Score: m.Score}
	}
	return out, nil
}

func (p *PineconeIndex) Upsert(ctx context.Context, level models.Level, project models.Project, vector []float32) error {
	return p.client.Upsert(ctx, PineconeVector{
		ID:     project.ID.String(),
		Values: vector,
		Metadata: map[string]any{
			"level":  string(level),
			"title":  project.Title,
			"domain": string(project.Domain),
		},
	})
}

// PgvectorIndex adapts the project_embeddings table to VectorIndex.
type PgvectorIndex struct {
	repo *database.EmbeddingRepo
}

func NewPgvectorIndex(repo *database.EmbeddingRepo) *PgvectorIndex {
	return &PgvectorIndex{repo: repo}
}

func (p *PgvectorIndex) Nearest(ctx context.Context, level models.Level, vector []float32, topK int) ([]VectorMatch, error) {
	matches, err := p.repo.Nearest(ctx, level, vector, topK)
	if err != nil {
		return nil, err
	}
	out := make([]VectorMatch, len(matches))
	for i, m := range matches {
		out[i] = VectorMatch{ID: m.ProjectID.String(), Score: m.Score}
	}
	return out, nil
}

func (p *PgvectorIndex) Upsert(ctx context.Context, level models.Level, project models.Project, vector []float32) error {
	return p.repo.Upsert(ctx, &models.ProjectEmbedding{
		ProjectID: project.ID,
		Level:     level,
		Domain:    project.Domain,
		Title:     project.Title,
		Embedding: pgvector.NewVector(vector),
	})
}
