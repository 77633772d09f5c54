package document

import (
	"fmt"
	"regexp"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxTitleLength bounds the document title.
const MaxTitleLength = 512

// Status is the document lifecycle state.
type Status string

const (
	// StatusPending marks an uploaded document awaiting ingestion.
	StatusPending Status = "pending"
	// StatusProcessing marks a document with an in-flight ingestion.
	StatusProcessing Status = "processing"
	// StatusCompleted marks a document whose full chunk set is indexed.
	StatusCompleted Status = "completed"
	// StatusFailed marks a document whose ingestion was rolled back.
	StatusFailed Status = "failed"
)

// IsValid reports whether s is a known lifecycle status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Document is the document aggregate (immutable value object).
// ActiveVersion points at the chunk set currently visible to readers;
// flipping it is the atomic swap that makes a re-ingested set visible.
type Document struct {
	id            string
	title         string
	owner         string
	status        Status
	failureReason string
	activeVersion int
	chunkCount    int
	truncated     bool
	createdAt     int64 // unix millis
	updatedAt     int64
}

// New validates and creates a pending Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars.
func New(id, title, owner string, createdAt int64) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if len(title) > MaxTitleLength {
		return Document{}, fmt.Errorf("title too long (max %d chars)", MaxTitleLength)
	}

	return Document{
		id:        id,
		title:     title,
		owner:     owner,
		status:    StatusPending,
		createdAt: createdAt,
		updatedAt: createdAt,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, title, owner string, status Status, failureReason string,
	activeVersion, chunkCount int, truncated bool, createdAt, updatedAt int64,
) Document {
	return Document{
		id: id, title: title, owner: owner,
		status: status, failureReason: failureReason,
		activeVersion: activeVersion, chunkCount: chunkCount, truncated: truncated,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Owner returns the uploading owner.
func (d *Document) Owner() string { return d.owner }

// Status returns the lifecycle status.
func (d *Document) Status() Status { return d.status }

// FailureReason returns the recorded ingestion failure reason, if any.
func (d *Document) FailureReason() string { return d.failureReason }

// ActiveVersion returns the chunk set version visible to readers (0 = none).
func (d *Document) ActiveVersion() int { return d.activeVersion }

// ChunkCount returns the number of chunks in the active set.
func (d *Document) ChunkCount() int { return d.chunkCount }

// Truncated reports whether the chunk set was cut at the per-document cap.
func (d *Document) Truncated() bool { return d.truncated }

// CreatedAt returns the creation time in unix milliseconds.
func (d *Document) CreatedAt() int64 { return d.createdAt }

// UpdatedAt returns the last mutation time in unix milliseconds.
func (d *Document) UpdatedAt() int64 { return d.updatedAt }
