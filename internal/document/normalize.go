package document

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"resume-sync/internal/shared/telemetry"
)

// canonicalOrder is the fixed section category order. Unrecognized titles are
// appended after these in original input order.
var canonicalOrder = []string{
	"summary",
	"experience",
	"projects",
	"skills",
	"education",
	"certifications",
	"achievements",
	"languages",
	"interests",
}

var canonicalRank = func() map[string]int {
	m := make(map[string]int, len(canonicalOrder))
	for i, title := range canonicalOrder {
		m[title] = i
	}
	return m
}()

// Normalize coerces an inbound document of uncertain shape into canonical
// form: duplicate section titles are dropped (first occurrence wins), sections
// are reordered into the canonical category order, bullet params are coerced
// to the supported value types and missing ids are assigned. Inbound documents
// from every source pass through here exactly once before becoming canonical.
//
// Normalize is idempotent and never fails; the worst input yields the empty
// baseline document.
func Normalize(doc Document) Document {
	out := Document{Identity: doc.Identity}

	seen := make(map[string]struct{}, len(doc.Sections))
	sections := make([]Section, 0, len(doc.Sections))
	for _, sec := range doc.Sections {
		key := strings.ToLower(strings.TrimSpace(sec.Title))
		if _, dup := seen[key]; dup {
			telemetry.Info("document.normalize.duplicate_section_dropped", map[string]any{
				"title": sec.Title,
			})
			continue
		}
		seen[key] = struct{}{}
		sections = append(sections, normalizeSection(sec))
	}

	out.Sections = reorderSections(sections)
	return out
}

func normalizeSection(sec Section) Section {
	if sec.ID == "" {
		sec.ID = uuid.NewString()
	}
	bullets := make([]Bullet, 0, len(sec.Bullets))
	for _, b := range sec.Bullets {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		b.Params = normalizeParams(b.Params)
		bullets = append(bullets, b)
	}
	sec.Bullets = bullets
	return sec
}

// normalizeParams passes bool, number and []string values through unchanged
// and coerces every other scalar to its string form. JSON decoding hands us
// []any for arrays, so string arrays arriving off the wire are rebuilt.
func normalizeParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch val := v.(type) {
		case bool, float64, string:
			out[k] = val
		case int:
			out[k] = float64(val)
		case int64:
			out[k] = float64(val)
		case []string:
			cp := make([]string, len(val))
			copy(cp, val)
			out[k] = cp
		case []any:
			arr := make([]string, 0, len(val))
			for _, item := range val {
				if s, ok := item.(string); ok {
					arr = append(arr, s)
				} else {
					arr = append(arr, fmt.Sprint(item))
				}
			}
			out[k] = arr
		case nil:
			// Dropped: a null param carries no information.
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

// reorderSections sorts recognized titles into canonical category order while
// keeping unrecognized titles in their original relative order at the end.
// The sort must be stable so duplicate-free input order is preserved within
// each bucket.
func reorderSections(sections []Section) []Section {
	ranked := make([]Section, 0, len(sections))
	unranked := make([]Section, 0)
	for _, sec := range sections {
		if _, ok := canonicalRank[strings.ToLower(strings.TrimSpace(sec.Title))]; ok {
			ranked = append(ranked, sec)
		} else {
			unranked = append(unranked, sec)
		}
	}

	ordered := make([]Section, 0, len(sections))
	for _, title := range canonicalOrder {
		for _, sec := range ranked {
			if strings.ToLower(strings.TrimSpace(sec.Title)) == title {
				ordered = append(ordered, sec)
			}
		}
	}
	return append(ordered, unranked...)
}
