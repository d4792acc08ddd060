package imports

import (
	"regexp"
	"strings"

	"resume-sync/internal/document"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9()\-\s.]{6,}[0-9]`)
)

// sectionHeadings maps the heading text found in uploaded resumes to the
// canonical section title the document model uses.
var sectionHeadings = map[string]string{
	"summary":              "Summary",
	"profile":              "Summary",
	"about":                "Summary",
	"experience":           "Experience",
	"work experience":      "Experience",
	"employment":           "Experience",
	"employment history":   "Experience",
	"professional history": "Experience",
	"projects":             "Projects",
	"skills":               "Skills",
	"technical skills":     "Skills",
	"education":            "Education",
	"certifications":       "Certifications",
	"certificates":         "Certifications",
	"achievements":         "Achievements",
	"awards":               "Achievements",
	"languages":            "Languages",
	"interests":            "Interests",
}

// ParseResume turns extracted upload text into a structured document. The
// first non-empty line becomes the name; recognized headings open sections;
// every other line becomes a bullet of the open section. Text before the
// first heading is captured as the summary. The result is deliberately rough:
// it still passes through document.Normalize at the store boundary.
func ParseResume(text string) document.Document {
	var doc document.Document
	var current *document.Section
	var preamble []string

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.Trim(rawLine, "•-–*\t "))
		if line == "" {
			continue
		}

		if doc.Identity.Name == "" {
			doc.Identity.Name = line
			continue
		}

		if email := emailPattern.FindString(line); email != "" && doc.Identity.Email == "" {
			doc.Identity.Email = email
			rest := strings.TrimSpace(strings.Replace(line, email, "", 1))
			if phone := phonePattern.FindString(rest); phone != "" && doc.Identity.Phone == "" {
				doc.Identity.Phone = strings.TrimSpace(phone)
			}
			continue
		}

		if title, ok := matchHeading(line); ok {
			doc.Sections = append(doc.Sections, document.Section{Title: title})
			current = &doc.Sections[len(doc.Sections)-1]
			continue
		}

		if current == nil {
			preamble = append(preamble, line)
			continue
		}
		current.Bullets = append(current.Bullets, document.Bullet{Text: line})
	}

	if len(preamble) > 0 {
		// The first preamble line doubles as the headline when it is short.
		if len(preamble[0]) <= 60 && doc.Identity.Title == "" {
			doc.Identity.Title = preamble[0]
			preamble = preamble[1:]
		}
		doc.Identity.Summary = strings.Join(preamble, " ")
	}

	return doc
}

func matchHeading(line string) (string, bool) {
	normalized := strings.ToLower(strings.TrimRight(strings.TrimSpace(line), ":"))
	if title, ok := sectionHeadings[normalized]; ok {
		return title, true
	}
	return "", false
}
