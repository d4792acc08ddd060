// Package imports holds the one-shot producers that seed the document store:
// file uploads, wizard completions and job-description deep links. None of
// them participate in ongoing synchronization.
package imports

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"resume-sync/internal/document"
	"resume-sync/internal/persistence"
	"resume-sync/internal/shared/metrics"
	"resume-sync/internal/shared/telemetry"
	"resume-sync/internal/shared/util"
)

const maxUploadBytes = 5 << 20

var allowedMimeTypes = map[string]struct{}{
	"application/pdf": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"text/plain": {},
}

// stagedPayload is the cache representation of a pending upload.
type stagedPayload struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Template string `json:"template,omitempty"`
	Data     []byte `json:"data"`
}

// UploadStage stages upload payloads in the shared cache under a one-time
// token. A payload is deleted on first consume, giving at-most-once delivery:
// a second read for the same token returns ErrNotFound.
type UploadStage struct {
	cache persistence.KeyValueStore
}

// NewUploadStage constructs a stage over the given cache.
func NewUploadStage(cache persistence.KeyValueStore) *UploadStage {
	return &UploadStage{cache: cache}
}

// Stage validates and stores a payload, returning the one-time token.
func (u *UploadStage) Stage(ctx context.Context, fileName, mimeType string, data []byte) (string, error) {
	fileName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", ErrInvalidInput
	}
	mimeType = normalizeMimeType(mimeType, fileName)
	if len(data) == 0 {
		return "", ErrInvalidInput
	}
	if len(data) > maxUploadBytes {
		return "", ErrInvalidInput
	}
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return "", ErrUnsupportedType
	}

	payload := stagedPayload{FileName: fileName, MimeType: mimeType, Data: data}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	token := uuid.NewString()
	if err := u.cache.Set(ctx, persistence.UploadKey(token), string(raw)); err != nil {
		return "", err
	}

	metrics.IncImportStaged()
	telemetry.Info("imports.upload.staged", map[string]any{
		"file_name": fileName,
		"mime_type": mimeType,
		"bytes":     len(data),
	})
	return token, nil
}

// Consume takes a staged payload exactly once, parses it into a document and
// returns it with the staged template id (empty for plain uploads). The
// payload is removed before parsing so even a parse failure burns the token.
func (u *UploadStage) Consume(ctx context.Context, token string) (document.Document, string, error) {
	// Take is atomic, so concurrent consumers of the same token see at most
	// one success.
	raw, err := u.cache.Take(ctx, persistence.UploadKey(token))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return document.Document{}, "", ErrNotFound
		}
		return document.Document{}, "", err
	}

	var payload stagedPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return document.Document{}, "", err
	}

	text, err := extractText(payload.Data, payload.MimeType)
	if err != nil {
		return document.Document{}, "", err
	}

	doc := ParseResume(text)
	metrics.IncImportConsumed()
	telemetry.Info("imports.upload.consumed", map[string]any{
		"file_name": payload.FileName,
		"sections":  len(doc.Sections),
	})
	return doc, payload.Template, nil
}

func normalizeMimeType(mimeType, fileName string) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean != "" && clean != "application/octet-stream" && clean != "application/zip" {
		return clean
	}
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(lower, ".txt"):
		return "text/plain"
	default:
		return clean
	}
}
