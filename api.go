// Package limpet attaches file-upload handling to the commit cycle of a host
// unit of work. Pending uploads registered against entities are validated,
// named, and moved into managed storage while the commit is open; bound
// metadata fields are written through capability interfaces and superseded
// files are cleaned up after the commit succeeds.
package limpet

import (
	"context"

	"github.com/zoobzio/limpet/internal/shared"
)

// Semantic errors for upload processing (re-exported from internal/shared).
var (
	ErrNoPath           = shared.ErrNoPath
	ErrInvalidPath      = shared.ErrInvalidPath
	ErrNotWritable      = shared.ErrNotWritable
	ErrSizeExceeded     = shared.ErrSizeExceeded
	ErrTypeUnknown      = shared.ErrTypeUnknown
	ErrTypeNotAllowed   = shared.ErrTypeNotAllowed
	ErrTypeDenied       = shared.ErrTypeDenied
	ErrServerLimit      = shared.ErrServerLimit
	ErrFormLimit        = shared.ErrFormLimit
	ErrPartialUpload    = shared.ErrPartialUpload
	ErrNoFile           = shared.ErrNoFile
	ErrNoTempDir        = shared.ErrNoTempDir
	ErrCantWrite        = shared.ErrCantWrite
	ErrExtensionBlocked = shared.ErrExtensionBlocked
	ErrUploadFailed     = shared.ErrUploadFailed
	ErrFileExists       = shared.ErrFileExists
	ErrMoveFailed       = shared.ErrMoveFailed
	ErrNoUpload         = shared.ErrNoUpload
	ErrInvalidFile      = shared.ErrInvalidFile
	ErrNotConfigured    = shared.ErrNotConfigured
)

// UnitOfWork is the host persistence contract the listener coordinates with.
// Entities are tracked by pointer identity on both sides. All methods are
// in-memory bookkeeping on the host; none perform I/O.
type UnitOfWork interface {
	// Tracked reports whether the entity is already known to the host's
	// identity tracking (an update candidate, not a fresh insert).
	Tracked(entity any) bool

	// ScheduledForInsert reports whether the entity is queued for insertion
	// in the current commit.
	ScheduledForInsert(entity any) bool

	// ScheduledForUpdate reports whether the entity is queued for update
	// in the current commit.
	ScheduledForUpdate(entity any) bool

	// ScheduledDeletions returns the entities queued for deletion in the
	// current commit.
	ScheduledDeletions() []any

	// ScheduleUpdate queues the entity for update in the current commit.
	// Scheduling an already-scheduled entity is a no-op.
	ScheduleUpdate(entity any)

	// PropertyChanged informs the host that a named field changed from
	// oldValue to newValue, bypassing its own dirty detection.
	PropertyChanged(entity any, field string, oldValue, newValue any)

	// RecomputeChangeSet makes the host rebuild the entity's change set so
	// writes performed after dirty detection join the outgoing commit.
	RecomputeChangeSet(entity any)
}

// Storage defines the filesystem operations the pipeline performs.
// Implementations (disk, minio, s3, gcs, azure) satisfy this interface.
//
// src arguments always name a file on the local filesystem (the upload
// temp file); dir, dst, and path values are storage-native.
type Storage interface {
	// Join composes a directory and a base name into a storage path.
	Join(dir, name string) string

	// EnsureDir creates dir, including missing parents, when absent.
	EnsureDir(ctx context.Context, dir string) error

	// Writable reports an error when dir does not accept new files.
	Writable(ctx context.Context, dir string) error

	// Exists checks whether a file exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Move relocates the local file at src to dst, resetting restrictive
	// upload temp permissions. src is consumed.
	Move(ctx context.Context, src, dst string) error

	// Copy places a copy of the local file at src at dst. src is untouched.
	Copy(ctx context.Context, src, dst string) error

	// Remove deletes the file at path. Removing a missing file is not an
	// error.
	Remove(ctx context.Context, path string) error
}

// Detector resolves a content type from a file's actual content.
// The declared, spoofable type on a descriptor is never trusted.
type Detector interface {
	// Detect returns the media type of the file at path, without parameters.
	Detect(path string) (string, error)
}
