package versions

import "context"

// VersionsRepo defines persistence operations for resumes and their versions.
type VersionsRepo interface {
	UpsertResume(ctx context.Context, resume Resume) error
	GetResume(ctx context.Context, id string) (Resume, error)
	ListResumesByUser(ctx context.Context, userId string) ([]Resume, error)
	SetLatestVersion(ctx context.Context, resumeId, versionId string) error
	CreateVersion(ctx context.Context, version Version) error
	ListVersions(ctx context.Context, resumeId string) ([]Version, error)
	GetVersion(ctx context.Context, id string) (Version, error)
}
