package document

// Identity captures the top-of-resume contact and headline fields.
type Identity struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Summary  string `json:"summary"`
}

// Bullet is a single line item inside a section. Params carries per-bullet
// flags such as visibility; values are restricted to bool, float64, string
// or []string after normalization.
type Bullet struct {
	ID     string         `json:"id"`
	Text   string         `json:"text"`
	Params map[string]any `json:"params"`
}

// Section is an ordered group of bullets with a unique id.
type Section struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Bullets []Bullet `json:"bullets"`
}

// Document is the canonical resume entity. It is mutated exclusively through
// Store.Apply and replaced wholesale on load, never destroyed mid-session.
type Document struct {
	Identity Identity  `json:"identity"`
	Sections []Section `json:"sections"`
}

// Empty returns the baseline document used when no other source wins.
func Empty() Document {
	return Document{Sections: []Section{}}
}

// IsEmpty reports whether the document has no name and no bullet text.
// Used by load precedence to decide whether a cached copy is worth restoring.
func (d Document) IsEmpty() bool {
	if d.Identity.Name != "" {
		return false
	}
	for _, s := range d.Sections {
		for _, b := range s.Bullets {
			if b.Text != "" {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy. History snapshots and broadcast payloads must
// never alias the stored document.
func (d Document) Clone() Document {
	out := d
	out.Sections = make([]Section, len(d.Sections))
	for i, s := range d.Sections {
		cs := s
		cs.Bullets = make([]Bullet, len(s.Bullets))
		for j, b := range s.Bullets {
			cb := b
			cb.Params = cloneParams(b.Params)
			cs.Bullets[j] = cb
		}
		out.Sections[i] = cs
	}
	return out
}

func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if arr, ok := v.([]string); ok {
			cp := make([]string, len(arr))
			copy(cp, arr)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// Equal reports structural equality between two documents.
func Equal(a, b Document) bool {
	if a.Identity != b.Identity || len(a.Sections) != len(b.Sections) {
		return false
	}
	for i := range a.Sections {
		if !sectionEqual(a.Sections[i], b.Sections[i]) {
			return false
		}
	}
	return true
}

func sectionEqual(a, b Section) bool {
	if a.ID != b.ID || a.Title != b.Title || len(a.Bullets) != len(b.Bullets) {
		return false
	}
	for i := range a.Bullets {
		if !bulletEqual(a.Bullets[i], b.Bullets[i]) {
			return false
		}
	}
	return true
}

func bulletEqual(a, b Bullet) bool {
	if a.ID != b.ID || a.Text != b.Text || len(a.Params) != len(b.Params) {
		return false
	}
	for k, v := range a.Params {
		if !paramEqual(v, b.Params[k]) {
			return false
		}
	}
	return true
}

func paramEqual(a, b any) bool {
	arrA, okA := a.([]string)
	arrB, okB := b.([]string)
	if okA || okB {
		if !okA || !okB || len(arrA) != len(arrB) {
			return false
		}
		for i := range arrA {
			if arrA[i] != arrB[i] {
				return false
			}
		}
		return true
	}
	return a == b
}
