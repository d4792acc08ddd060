package versions

import (
	"encoding/json"
	"time"
)

// Resume is one stored resume owned by a user.
type Resume struct {
	ID              string
	UserID          string
	Template        string
	LatestVersionID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Version is one immutable snapshot of a resume's content. Data holds the
// resume_data document verbatim; the version store never interprets it.
type Version struct {
	ID        string
	ResumeID  string
	Data      json.RawMessage
	CreatedAt time.Time
}
