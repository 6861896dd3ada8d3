package limpet

import (
	"errors"
	"testing"

	"github.com/zoobzio/limpet/internal/shared"
)

func TestErrorsReexported(t *testing.T) {
	// Verify that public errors are correctly re-exported from internal/shared.
	tests := []struct {
		name   string
		public error
		shared error
	}{
		{"ErrNoPath", ErrNoPath, shared.ErrNoPath},
		{"ErrInvalidPath", ErrInvalidPath, shared.ErrInvalidPath},
		{"ErrNotWritable", ErrNotWritable, shared.ErrNotWritable},
		{"ErrSizeExceeded", ErrSizeExceeded, shared.ErrSizeExceeded},
		{"ErrTypeUnknown", ErrTypeUnknown, shared.ErrTypeUnknown},
		{"ErrTypeNotAllowed", ErrTypeNotAllowed, shared.ErrTypeNotAllowed},
		{"ErrTypeDenied", ErrTypeDenied, shared.ErrTypeDenied},
		{"ErrServerLimit", ErrServerLimit, shared.ErrServerLimit},
		{"ErrFormLimit", ErrFormLimit, shared.ErrFormLimit},
		{"ErrPartialUpload", ErrPartialUpload, shared.ErrPartialUpload},
		{"ErrNoFile", ErrNoFile, shared.ErrNoFile},
		{"ErrNoTempDir", ErrNoTempDir, shared.ErrNoTempDir},
		{"ErrCantWrite", ErrCantWrite, shared.ErrCantWrite},
		{"ErrExtensionBlocked", ErrExtensionBlocked, shared.ErrExtensionBlocked},
		{"ErrUploadFailed", ErrUploadFailed, shared.ErrUploadFailed},
		{"ErrFileExists", ErrFileExists, shared.ErrFileExists},
		{"ErrMoveFailed", ErrMoveFailed, shared.ErrMoveFailed},
		{"ErrNoUpload", ErrNoUpload, shared.ErrNoUpload},
		{"ErrInvalidFile", ErrInvalidFile, shared.ErrInvalidFile},
		{"ErrNotConfigured", ErrNotConfigured, shared.ErrNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Verify public and shared errors are the same instance.
			if !errors.Is(tt.public, tt.shared) {
				t.Errorf("%s: errors.Is(public, shared) failed", tt.name)
			}
			if !errors.Is(tt.shared, tt.public) {
				t.Errorf("%s: errors.Is(shared, public) failed", tt.name)
			}
		})
	}
}

func TestErrorsNotNil(t *testing.T) {
	// Ensure all errors are actually defined.
	errs := []error{
		ErrNoPath,
		ErrInvalidPath,
		ErrNotWritable,
		ErrSizeExceeded,
		ErrTypeUnknown,
		ErrTypeNotAllowed,
		ErrTypeDenied,
		ErrServerLimit,
		ErrFormLimit,
		ErrPartialUpload,
		ErrNoFile,
		ErrNoTempDir,
		ErrCantWrite,
		ErrExtensionBlocked,
		ErrUploadFailed,
		ErrFileExists,
		ErrMoveFailed,
		ErrNoUpload,
		ErrInvalidFile,
		ErrNotConfigured,
	}

	for _, err := range errs {
		if err == nil {
			t.Error("expected non-nil error")
		}
	}
}
