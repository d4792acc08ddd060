package versions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SaveInput is the validated body of a save call.
type SaveInput struct {
	ResumeID string
	UserID   string
	Template string
	Data     json.RawMessage
}

// SaveOutput carries the identifiers assigned to a saved version.
type SaveOutput struct {
	ResumeID  string
	VersionID string
}

// Service contains business logic for the version store.
type Service struct {
	Repo VersionsRepo
}

// Save records a new version of a resume, creating the resume on first save.
// Versions are immutable: every save appends, nothing is overwritten.
func (s *Service) Save(ctx context.Context, in SaveInput) (SaveOutput, error) {
	if in.UserID == "" || len(in.Data) == 0 {
		return SaveOutput{}, ErrInvalidInput
	}

	now := time.Now().UTC()
	resumeID := in.ResumeID
	if resumeID == "" {
		resumeID = uuid.NewString()
	}

	existing, err := s.Repo.GetResume(ctx, resumeID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return SaveOutput{}, err
	}

	resume := Resume{
		ID:        resumeID,
		UserID:    in.UserID,
		Template:  in.Template,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err == nil {
		resume.CreatedAt = existing.CreatedAt
		if in.Template == "" {
			resume.Template = existing.Template
		}
	}
	if err := s.Repo.UpsertResume(ctx, resume); err != nil {
		return SaveOutput{}, err
	}

	version := Version{
		ID:        uuid.NewString(),
		ResumeID:  resumeID,
		Data:      in.Data,
		CreatedAt: now,
	}
	if err := s.Repo.CreateVersion(ctx, version); err != nil {
		return SaveOutput{}, err
	}
	if err := s.Repo.SetLatestVersion(ctx, resumeID, version.ID); err != nil {
		return SaveOutput{}, err
	}

	return SaveOutput{ResumeID: resumeID, VersionID: version.ID}, nil
}

// ListResumes returns a user's resumes, most recently updated first.
func (s *Service) ListResumes(ctx context.Context, userId string) ([]Resume, error) {
	if userId == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListResumesByUser(ctx, userId)
}

// ListVersions returns a resume's versions, newest first.
func (s *Service) ListVersions(ctx context.Context, resumeId string) ([]Version, error) {
	if resumeId == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.Repo.GetResume(ctx, resumeId); err != nil {
		return nil, err
	}
	return s.Repo.ListVersions(ctx, resumeId)
}

// GetVersion returns one stored version.
func (s *Service) GetVersion(ctx context.Context, versionId string) (Version, error) {
	if versionId == "" {
		return Version{}, ErrInvalidInput
	}
	return s.Repo.GetVersion(ctx, versionId)
}
