package document

import "strings"

// PlainText flattens the document into the line-oriented text the scoring
// oracle consumes. Empty fields are skipped; a document with no content
// flattens to the empty string.
func (d Document) PlainText() string {
	var lines []string
	appendNonEmpty := func(vals ...string) {
		for _, v := range vals {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				lines = append(lines, trimmed)
			}
		}
	}

	appendNonEmpty(d.Identity.Name, d.Identity.Title, d.Identity.Email, d.Identity.Phone, d.Identity.Location, d.Identity.Summary)
	for _, sec := range d.Sections {
		appendNonEmpty(sec.Title)
		for _, b := range sec.Bullets {
			appendNonEmpty(b.Text)
		}
	}
	return strings.Join(lines, "\n")
}
