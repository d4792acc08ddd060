package imports

import (
	"strings"

	"resume-sync/internal/document"
)

// WizardExperience is one work-history answer from the guided wizard.
type WizardExperience struct {
	Company    string   `json:"company"`
	Role       string   `json:"role"`
	Period     string   `json:"period"`
	Highlights []string `json:"highlights"`
}

// WizardEducation is one education answer from the guided wizard.
type WizardEducation struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Period string `json:"period"`
}

// WizardAnswers are the structured answers collected by the guided wizard.
type WizardAnswers struct {
	Name       string             `json:"name"`
	Title      string             `json:"title"`
	Email      string             `json:"email"`
	Phone      string             `json:"phone"`
	Location   string             `json:"location"`
	Summary    string             `json:"summary"`
	Template   string             `json:"template"`
	Skills     []string           `json:"skills"`
	Experience []WizardExperience `json:"experience"`
	Education  []WizardEducation  `json:"education"`
}

// BuildWizardDocument assembles an initial document and the selected template
// from wizard answers. Like every other producer, the result goes through the
// store's normalization before becoming canonical.
func BuildWizardDocument(answers WizardAnswers) (document.Document, string) {
	doc := document.Document{
		Identity: document.Identity{
			Name:     strings.TrimSpace(answers.Name),
			Title:    strings.TrimSpace(answers.Title),
			Email:    strings.TrimSpace(answers.Email),
			Phone:    strings.TrimSpace(answers.Phone),
			Location: strings.TrimSpace(answers.Location),
			Summary:  strings.TrimSpace(answers.Summary),
		},
	}

	if len(answers.Experience) > 0 {
		sec := document.Section{Title: "Experience"}
		for _, exp := range answers.Experience {
			header := strings.TrimSpace(exp.Role)
			if exp.Company != "" {
				header += " at " + exp.Company
			}
			if exp.Period != "" {
				header += " (" + exp.Period + ")"
			}
			sec.Bullets = append(sec.Bullets, document.Bullet{Text: strings.TrimSpace(header)})
			for _, h := range exp.Highlights {
				if trimmed := strings.TrimSpace(h); trimmed != "" {
					sec.Bullets = append(sec.Bullets, document.Bullet{Text: trimmed})
				}
			}
		}
		doc.Sections = append(doc.Sections, sec)
	}

	if len(answers.Skills) > 0 {
		sec := document.Section{Title: "Skills"}
		for _, s := range answers.Skills {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				sec.Bullets = append(sec.Bullets, document.Bullet{Text: trimmed})
			}
		}
		doc.Sections = append(doc.Sections, sec)
	}

	if len(answers.Education) > 0 {
		sec := document.Section{Title: "Education"}
		for _, edu := range answers.Education {
			line := strings.TrimSpace(edu.Degree)
			if edu.School != "" {
				if line != "" {
					line += ", "
				}
				line += edu.School
			}
			if edu.Period != "" {
				line += " (" + edu.Period + ")"
			}
			if line != "" {
				sec.Bullets = append(sec.Bullets, document.Bullet{Text: line})
			}
		}
		doc.Sections = append(doc.Sections, sec)
	}

	return doc, strings.TrimSpace(answers.Template)
}
