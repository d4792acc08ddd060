package imports

import "testing"

func TestParseResumeHeadingAliases(t *testing.T) {
	doc := ParseResume("John Smith\nWork Experience:\nShipped things\nTechnical Skills\nGo\nAwards\nDean's list")
	if len(doc.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(doc.Sections))
	}
	wantTitles := []string{"Experience", "Skills", "Achievements"}
	for i, want := range wantTitles {
		if doc.Sections[i].Title != want {
			t.Errorf("section %d title = %q, want %q", i, doc.Sections[i].Title, want)
		}
	}
}

func TestParseResumeBulletMarkersStripped(t *testing.T) {
	doc := ParseResume("Ada\nExperience\n• Built compilers\n- Wrote notes\n* Published papers")
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(doc.Sections))
	}
	want := []string{"Built compilers", "Wrote notes", "Published papers"}
	bullets := doc.Sections[0].Bullets
	if len(bullets) != len(want) {
		t.Fatalf("expected %d bullets, got %d", len(want), len(bullets))
	}
	for i, w := range want {
		if bullets[i].Text != w {
			t.Errorf("bullet %d = %q, want %q", i, bullets[i].Text, w)
		}
	}
}

func TestParseResumeLongPreambleStaysSummary(t *testing.T) {
	long := "A very long opening paragraph that clearly is not a short professional headline at all"
	doc := ParseResume("Ada\n" + long + "\nExperience\nDid work")
	if doc.Identity.Title != "" {
		t.Errorf("title = %q, want empty", doc.Identity.Title)
	}
	if doc.Identity.Summary != long {
		t.Errorf("summary = %q", doc.Identity.Summary)
	}
}

func TestParseResumeEmptyText(t *testing.T) {
	doc := ParseResume("   \n\n  ")
	if doc.Identity.Name != "" || len(doc.Sections) != 0 {
		t.Errorf("expected empty document, got %+v", doc)
	}
}
