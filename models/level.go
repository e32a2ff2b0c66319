package models

import (
	"fmt"
	"strings"
)

// Level is a difficulty tier.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Levels lists every level in display order.
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// ParseLevel accepts any casing of a known level and returns its canonical form.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Levels {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown level %q", s)
}

func (l Level) String() string { return string(l) }

// Domain is a subject-matter category.
type Domain string

const (
	DomainWebDevelopment Domain = "web-development"
	DomainAIML           Domain = "ai-ml"
	DomainMobile         Domain = "mobile"
	DomainCybersecurity  Domain = "cybersecurity"
	DomainCreative       Domain = "creative"
)

// Domains lists every domain in generation order.
var Domains = []Domain{DomainWebDevelopment, DomainAIML, DomainMobile, DomainCybersecurity, DomainCreative}

func (d Domain) String() string { return string(d) }
