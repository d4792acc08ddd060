package remotedoc

import (
	"time"

	"resume-sync/internal/document"
)

// ResumeSummary is one entry of GET /resumes?user=<id>.
type ResumeSummary struct {
	ID              string `json:"id"`
	LatestVersionID string `json:"latest_version_id"`
	Template        string `json:"template"`
}

// VersionSummary is one entry of GET /resume/{id}/versions, newest first.
type VersionSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// PersonalInfo mirrors the remote service's identity block.
type PersonalInfo struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// ResumeData is the wire shape of a stored document version.
type ResumeData struct {
	PersonalInfo PersonalInfo       `json:"personalInfo"`
	Summary      string             `json:"summary"`
	Sections     []document.Section `json:"sections"`
}

// VersionPayload is the body of GET /resume/version/{versionId}.
type VersionPayload struct {
	ResumeData ResumeData `json:"resume_data"`
}

// SaveRequest is the body of POST /resume/save.
type SaveRequest struct {
	ResumeID   string     `json:"resume_id,omitempty"`
	User       string     `json:"user"`
	Template   string     `json:"template,omitempty"`
	ResumeData ResumeData `json:"resume_data"`
}

// SaveResult carries the identifiers assigned by the remote service.
type SaveResult struct {
	ResumeID  string `json:"resume_id"`
	VersionID string `json:"version_id"`
}

// ToDocument converts the wire shape into the canonical model. The result
// still passes through document.Normalize at the store boundary.
func (d ResumeData) ToDocument() document.Document {
	return document.Document{
		Identity: document.Identity{
			Name:     d.PersonalInfo.Name,
			Title:    d.PersonalInfo.Title,
			Email:    d.PersonalInfo.Email,
			Phone:    d.PersonalInfo.Phone,
			Location: d.PersonalInfo.Location,
			Summary:  d.Summary,
		},
		Sections: d.Sections,
	}
}

// FromDocument converts the canonical model into the wire shape.
func FromDocument(doc document.Document) ResumeData {
	return ResumeData{
		PersonalInfo: PersonalInfo{
			Name:     doc.Identity.Name,
			Title:    doc.Identity.Title,
			Email:    doc.Identity.Email,
			Phone:    doc.Identity.Phone,
			Location: doc.Identity.Location,
		},
		Summary:  doc.Identity.Summary,
		Sections: doc.Sections,
	}
}
