package services

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/wayBiggger/way-bigger-sub000/models"
)

// FallbackPerDomain is how many template projects are synthesized per domain.
const FallbackPerDomain = 50

//go:embed templates/catalog.json
var catalogJSON []byte

type projectTemplate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TechStack   string `json:"tech_stack"`
	Outcome     string `json:"outcome"`
}

var templateNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("waybigger/project-templates"))

var loadCatalog = sync.OnceValue(func() map[models.Domain]map[models.Level][]projectTemplate {
	var catalog map[models.Domain]map[models.Level][]projectTemplate
	if err := json.Unmarshal(catalogJSON, &catalog); err != nil {
		panic(fmt.Sprintf("embedded template catalog: %v", err))
	}
	return catalog
})

func templatesFor(domain models.Domain, level models.Level) []projectTemplate {
	byLevel := loadCatalog()[domain]
	if t := byLevel[level]; len(t) > 0 {
		return t
	}
	return byLevel[models.LevelBeginner]
}

// Synthesize builds the canned fallback list for level: FallbackPerDomain
// projects for each domain, cycling through that domain's templates. The
// output, ids included, is the same on every call.
func Synthesize(level models.Level) []models.Project {
	projects := make([]models.Project, 0, FallbackPerDomain*len(models.Domains))
	for _, domain := range models.Domains {
		templates := templatesFor(domain, level)
		if len(templates) == 0 {
			continue
		}
		for i := 0; i < FallbackPerDomain; i++ {
			t := templates[i%len(templates)]
			projects = append(projects, models.Project{
				ID:          uuid.NewSHA1(templateNamespace, []byte(fmt.Sprintf("%s/%s/%d", level, domain, i))),
				Title:       fmt.Sprintf("%s %d", t.Title, i+1),
				Description: t.Description,
				TechStack:   t.TechStack,
				Difficulty:  string(level),
				Outcome:     t.Outcome,
				Domain:      domain,
			})
		}
	}
	return projects
}
