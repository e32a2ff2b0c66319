package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, in := range []string{"beginner", "Beginner", " ADVANCED ", "intermediate"} {
		l, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Contains(t, Levels, l)
	}

	_, err := ParseLevel("expert")
	assert.Error(t, err)
	_, err = ParseLevel("")
	assert.Error(t, err)
}

func TestCandidateValid(t *testing.T) {
	c := Candidate{Title: "Todo", Description: "Track tasks", TechStack: "Go", Difficulty: "beginner", Outcome: "An app"}
	assert.True(t, c.Valid())

	c.Outcome = "   "
	assert.False(t, c.Valid())
}

func TestNewGeneratedProjectValidityWindow(t *testing.T) {
	now := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	c := Candidate{Title: "Todo", Description: "d", TechStack: "Go", Difficulty: "beginner", Outcome: "o", Domain: DomainMobile}

	row := NewGeneratedProject(id, LevelBeginner, c, now)

	assert.Equal(t, id, row.ID)
	assert.Equal(t, now, row.GeneratedOn)
	assert.Equal(t, time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC), row.ValidTill)

	p := row.ToProject()
	assert.Equal(t, id, p.ID)
	assert.Equal(t, DomainMobile, p.Domain)
	assert.Equal(t, "Todo", p.Title)
}

func TestProjectStatsSet(t *testing.T) {
	var s ProjectStats
	s.Set(LevelBeginner, 250)
	s.Set(LevelAdvanced, 10)
	s.Set(LevelBeginner, 20)

	assert.Equal(t, ProjectStats{Beginner: 20, Advanced: 10, Total: 30}, s)
}
