package versions

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of VersionsRepo.
type MemoryRepo struct {
	mu       sync.RWMutex
	resumes  map[string]Resume
	versions map[string]Version
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		resumes:  make(map[string]Resume),
		versions: make(map[string]Version),
	}
}

// UpsertResume inserts a resume or refreshes its template and updated_at.
func (r *MemoryRepo) UpsertResume(ctx context.Context, resume Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.resumes[resume.ID]; ok {
		existing.Template = resume.Template
		existing.UpdatedAt = resume.UpdatedAt
		r.resumes[resume.ID] = existing
		return nil
	}
	r.resumes[resume.ID] = resume
	return nil
}

// GetResume returns one resume by id.
func (r *MemoryRepo) GetResume(ctx context.Context, id string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	resume, ok := r.resumes[id]
	if !ok {
		return Resume{}, ErrNotFound
	}
	return resume, nil
}

// ListResumesByUser returns a user's resumes, most recently updated first.
func (r *MemoryRepo) ListResumesByUser(ctx context.Context, userId string) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Resume
	for _, resume := range r.resumes {
		if resume.UserID == userId {
			out = append(out, resume)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// SetLatestVersion points a resume at its newest version.
func (r *MemoryRepo) SetLatestVersion(ctx context.Context, resumeId, versionId string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	resume, ok := r.resumes[resumeId]
	if !ok {
		return ErrNotFound
	}
	resume.LatestVersionID = versionId
	r.resumes[resumeId] = resume
	return nil
}

// CreateVersion inserts a new immutable version row.
func (r *MemoryRepo) CreateVersion(ctx context.Context, version Version) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[version.ID] = version
	return nil
}

// ListVersions returns a resume's versions, newest first.
func (r *MemoryRepo) ListVersions(ctx context.Context, resumeId string) ([]Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Version
	for _, version := range r.versions {
		if version.ResumeID == resumeId {
			out = append(out, version)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetVersion returns one version by id.
func (r *MemoryRepo) GetVersion(ctx context.Context, id string) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	version, ok := r.versions[id]
	if !ok {
		return Version{}, ErrNotFound
	}
	return version, nil
}
