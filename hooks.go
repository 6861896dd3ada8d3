package limpet

import "context"

// PathField binds the field holding the stored file path.
// Declared with the `upload:"path"` struct tag.
type PathField interface {
	UploadPath() string
	SetUploadPath(path string)
}

// NameField binds the field holding the stored file name.
// Declared with the `upload:"name"` struct tag.
type NameField interface {
	UploadName() string
	SetUploadName(name string)
}

// TypeField binds the field holding the detected content type.
// Declared with the `upload:"type"` struct tag.
type TypeField interface {
	UploadContentType() string
	SetUploadContentType(contentType string)
}

// SizeField binds the field holding the stored file size in bytes.
// Declared with the `upload:"size"` struct tag.
type SizeField interface {
	UploadSize() int64
	SetUploadSize(size int64)
}

// ResolveDir is implemented by entities that resolve their own storage
// directory. Receives the process-wide default directory; an empty return
// fails resolution rather than falling through.
type ResolveDir interface {
	ResolveDir(fallback string) string
}

// AfterUpload is called after all bound fields have been written for a
// processed upload. Return an error to abort the surrounding commit.
type AfterUpload interface {
	AfterUpload(ctx context.Context, r Result) error
}

// resolveEntityDir asks the entity for its directory if it implements ResolveDir.
func resolveEntityDir(entity any, fallback string) (string, bool) {
	if h, ok := entity.(ResolveDir); ok {
		return h.ResolveDir(fallback), true
	}
	return "", false
}

// callAfterUpload calls AfterUpload if the entity implements the interface.
func callAfterUpload(ctx context.Context, entity any, r Result) error {
	if h, ok := entity.(AfterUpload); ok {
		return h.AfterUpload(ctx, r)
	}
	return nil
}
