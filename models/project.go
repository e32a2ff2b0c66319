package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidityWindow bounds how long a generated project stays active in the durable store.
const ValidityWindow = 31 * 24 * time.Hour

// Candidate is a single generated project idea before acceptance.
type Candidate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TechStack   string `json:"tech_stack"`
	Difficulty  string `json:"difficulty"`
	Outcome     string `json:"outcome"`
	Domain      Domain `json:"domain"`
}

// Valid reports whether all five text fields are non-empty after trimming.
func (c Candidate) Valid() bool {
	for _, f := range []string{c.Title, c.Description, c.TechStack, c.Difficulty, c.Outcome} {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// SimilarityText is the text embedded for novelty checks.
func (c Candidate) SimilarityText() string {
	return c.Title + " " + c.Description + " " + c.TechStack
}

// Project is the shape served by the API and written to the caches.
type Project struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TechStack   string    `json:"tech_stack"`
	Difficulty  string    `json:"difficulty"`
	Outcome     string    `json:"outcome"`
	Domain      Domain    `json:"domain,omitempty"`
}

// GeneratedProject is a row of the generated_projects table.
type GeneratedProject struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;not null"`
	Level       Level     `json:"level" gorm:"type:text;not null;index:idx_generated_projects_level_valid,priority:1"`
	Domain      Domain    `json:"domain" gorm:"type:text;not null;default:''"`
	Title       string    `json:"title" gorm:"type:text;not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	TechStack   string    `json:"tech_stack" gorm:"type:text;not null"`
	Difficulty  string    `json:"difficulty" gorm:"type:text;not null"`
	Outcome     string    `json:"outcome" gorm:"type:text;not null"`
	GeneratedOn time.Time `json:"generated_on" gorm:"not null"`
	ValidTill   time.Time `json:"valid_till" gorm:"not null;index:idx_generated_projects_level_valid,priority:2"`
}

func (GeneratedProject) TableName() string { return "generated_projects" }

// NewGeneratedProject stamps an accepted candidate with an id and its validity window.
func NewGeneratedProject(id uuid.UUID, level Level, c Candidate, now time.Time) GeneratedProject {
	now = now.UTC()
	return GeneratedProject{
		ID:          id,
		Level:       level,
		Domain:      c.Domain,
		Title:       c.Title,
		Description: c.Description,
		TechStack:   c.TechStack,
		Difficulty:  c.Difficulty,
		Outcome:     c.Outcome,
		GeneratedOn: now,
		ValidTill:   now.Add(ValidityWindow),
	}
}

// ToProject maps a stored row into the cache shape.
func (p GeneratedProject) ToProject() Project {
	return Project{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		TechStack:   p.TechStack,
		Difficulty:  p.Difficulty,
		Outcome:     p.Outcome,
		Domain:      p.Domain,
	}
}

// ProjectStats holds per-level cache counts.
type ProjectStats struct {
	Beginner     int `json:"beginner"`
	Intermediate int `json:"intermediate"`
	Advanced     int `json:"advanced"`
	Total        int `json:"total"`
}

// Set records the count for level and recomputes the total.
func (s *ProjectStats) Set(level Level, count int) {
	switch level {
	case LevelBeginner:
		s.Beginner = count
	case LevelIntermediate:
		s.Intermediate = count
	case LevelAdvanced:
		s.Advanced = count
	}
	s.Total = s.Beginner + s.Intermediate + s.Advanced
}
