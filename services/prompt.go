package services

import (
	"fmt"
	"strings"

	"github.com/wayBiggger/way-bigger-sub000/models"
)

// ProjectsPerPrompt is how many ideas each prompt asks for.
const ProjectsPerPrompt = 10

var domainGuidance = map[models.Domain]string{
	models.DomainWebDevelopment: "Focus on web applications, websites, and web-based tools using HTML, CSS, JavaScript, React, Node.js, Python, PHP, etc.",
	models.DomainAIML:           "Focus on artificial intelligence, machine learning, data science, and AI-powered applications using Python, TensorFlow, PyTorch, scikit-learn, etc.",
	models.DomainMobile:         "Focus on mobile applications for iOS and Android using React Native, Flutter, Swift, Kotlin, etc.",
	models.DomainCybersecurity:  "Focus on security tools, penetration testing, encryption, network security, and ethical hacking using Python, C++, Go, etc.",
	models.DomainCreative:       "Focus on creative applications, games, multimedia, design tools, and artistic projects using Unity, Unreal Engine, Processing, etc.",
}

// BuildPrompt returns the generation instruction for a level and domain.
// Unknown domains get the web-development guidance.
func BuildPrompt(level models.Level, domain models.Domain) string {
	guidance, ok := domainGuidance[domain]
	if !ok {
		guidance = domainGuidance[models.DomainWebDevelopment]
	}

	return strings.Join([]string{
		"You are an expert curriculum designer generating student software project ideas.",
		"Rules:",
		"- Always suggest projects with real-world applications.",
		"- Include title, short description, tech stack (comma-separated), difficulty rating, expected outcome.",
		"- Beginner → simple CRUD apps or basic implementations.",
		"- Intermediate → integrations (APIs, ML models, teamwork).",
		"- Advanced → scalable systems, AI, cloud-native, cybersecurity.",
		"- Domain focus: " + guidance,
		fmt.Sprintf("Output must be strict JSON array of %d objects with keys:", ProjectsPerPrompt),
		`{"title","description","tech_stack","difficulty","outcome"}.`,
		fmt.Sprintf("Target level: %s, Domain: %s.", level, domain),
	}, "\n")
}
