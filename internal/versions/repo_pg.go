package versions

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements VersionsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// UpsertResume inserts a resume or refreshes its template and updated_at.
func (r *PGRepo) UpsertResume(ctx context.Context, resume Resume) error {
	const query = `
INSERT INTO resumes (id, user_id, template, latest_version_id, created_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
ON CONFLICT (id) DO UPDATE SET
    template   = EXCLUDED.template,
    updated_at = EXCLUDED.updated_at`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		resume.ID,
		resume.UserID,
		resume.Template,
		resume.LatestVersionID,
		resume.CreatedAt,
		resume.UpdatedAt,
	)
	return err
}

// GetResume returns one resume by id.
func (r *PGRepo) GetResume(ctx context.Context, id string) (Resume, error) {
	const query = `
SELECT id, user_id, template, latest_version_id, created_at, updated_at
FROM resumes
WHERE id = $1`

	var resume Resume
	var latest sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&resume.ID,
		&resume.UserID,
		&resume.Template,
		&latest,
		&resume.CreatedAt,
		&resume.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Resume{}, ErrNotFound
	}
	if err != nil {
		return Resume{}, err
	}
	resume.LatestVersionID = latest.String
	return resume, nil
}

// ListResumesByUser returns a user's resumes, most recently updated first.
func (r *PGRepo) ListResumesByUser(ctx context.Context, userId string) ([]Resume, error) {
	const query = `
SELECT id, user_id, template, latest_version_id, created_at, updated_at
FROM resumes
WHERE user_id = $1
ORDER BY updated_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, userId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resume
	for rows.Next() {
		var resume Resume
		var latest sql.NullString
		if err := rows.Scan(
			&resume.ID,
			&resume.UserID,
			&resume.Template,
			&latest,
			&resume.CreatedAt,
			&resume.UpdatedAt,
		); err != nil {
			return nil, err
		}
		resume.LatestVersionID = latest.String
		out = append(out, resume)
	}
	return out, rows.Err()
}

// SetLatestVersion points a resume at its newest version.
func (r *PGRepo) SetLatestVersion(ctx context.Context, resumeId, versionId string) error {
	const query = `UPDATE resumes SET latest_version_id = $2 WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, resumeId, versionId)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateVersion inserts a new immutable version row.
func (r *PGRepo) CreateVersion(ctx context.Context, version Version) error {
	const query = `
INSERT INTO resume_versions (id, resume_id, resume_data, created_at)
VALUES ($1, $2, $3, $4)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		version.ID,
		version.ResumeID,
		[]byte(version.Data),
		version.CreatedAt,
	)
	return err
}

// ListVersions returns a resume's versions, newest first.
func (r *PGRepo) ListVersions(ctx context.Context, resumeId string) ([]Version, error) {
	const query = `
SELECT id, resume_id, resume_data, created_at
FROM resume_versions
WHERE resume_id = $1
ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, resumeId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var version Version
		var data []byte
		if err := rows.Scan(&version.ID, &version.ResumeID, &data, &version.CreatedAt); err != nil {
			return nil, err
		}
		version.Data = data
		out = append(out, version)
	}
	return out, rows.Err()
}

// GetVersion returns one version by id.
func (r *PGRepo) GetVersion(ctx context.Context, id string) (Version, error) {
	const query = `
SELECT id, resume_id, resume_data, created_at
FROM resume_versions
WHERE id = $1`

	var version Version
	var data []byte
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&version.ID,
		&version.ResumeID,
		&data,
		&version.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, ErrNotFound
	}
	if err != nil {
		return Version{}, err
	}
	version.Data = data
	return version, nil
}
