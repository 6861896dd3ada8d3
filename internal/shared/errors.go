// Package shared contains canonical type definitions shared across limpet.
package shared //nolint:revive // internal shared package is intentional

import "errors"

// Configuration errors, resolved before any file is touched.
var (
	// ErrNoPath indicates no storage directory could be resolved for an entity.
	ErrNoPath = errors.New("limpet: no storage path defined")

	// ErrInvalidPath indicates the storage directory could not be created.
	ErrInvalidPath = errors.New("limpet: invalid storage path")

	// ErrNotWritable indicates the storage directory exists but rejects writes.
	ErrNotWritable = errors.New("limpet: storage path not writable")
)

// Validation errors.
var (
	// ErrSizeExceeded indicates the declared file size is over the configured limit.
	ErrSizeExceeded = errors.New("limpet: file size exceeds limit")

	// ErrTypeUnknown indicates the content type could not be determined from the file.
	ErrTypeUnknown = errors.New("limpet: content type could not be determined")

	// ErrTypeNotAllowed indicates the detected type is absent from the allow list.
	ErrTypeNotAllowed = errors.New("limpet: content type not allowed")

	// ErrTypeDenied indicates the detected type is present in the deny list.
	ErrTypeDenied = errors.New("limpet: content type denied")
)

// Transport errors, mapped from a descriptor's upload error code.
var (
	// ErrServerLimit indicates the upload exceeded the server-wide size limit.
	ErrServerLimit = errors.New("limpet: upload exceeds server size limit")

	// ErrFormLimit indicates the upload exceeded the form-declared size limit.
	ErrFormLimit = errors.New("limpet: upload exceeds form size limit")

	// ErrPartialUpload indicates the transfer ended before the file was complete.
	ErrPartialUpload = errors.New("limpet: upload transferred partially")

	// ErrNoFile indicates the request carried no file.
	ErrNoFile = errors.New("limpet: no file was uploaded")

	// ErrNoTempDir indicates the transport had no temporary directory to land the file.
	ErrNoTempDir = errors.New("limpet: missing temporary directory")

	// ErrCantWrite indicates the transport failed to write the temporary file.
	ErrCantWrite = errors.New("limpet: cannot write temporary file")

	// ErrExtensionBlocked indicates the transport rejected the file extension.
	ErrExtensionBlocked = errors.New("limpet: file extension blocked")

	// ErrUploadFailed indicates an upload failure with an unrecognized error code.
	ErrUploadFailed = errors.New("limpet: upload failed")
)

// Collision and move errors.
var (
	// ErrFileExists indicates the destination path is already occupied under the
	// reject overwrite policy.
	ErrFileExists = errors.New("limpet: destination file already exists")

	// ErrMoveFailed indicates the physical move or copy into storage failed.
	ErrMoveFailed = errors.New("limpet: file move failed")
)

// Usage errors.
var (
	// ErrNoUpload indicates no pending upload is registered for the entity.
	ErrNoUpload = errors.New("limpet: no upload registered for entity")

	// ErrInvalidFile indicates the file descriptor argument is unusable.
	ErrInvalidFile = errors.New("limpet: invalid file descriptor")

	// ErrNotConfigured indicates the entity type carries no upload configuration.
	ErrNotConfigured = errors.New("limpet: entity type not configured")
)
