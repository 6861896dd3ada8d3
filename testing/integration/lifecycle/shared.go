// Package lifecycle provides shared test infrastructure for limpet
// commit-cycle integration tests.
package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zoobzio/limpet"
	limpettest "github.com/zoobzio/limpet/testing"
)

// Photo is the model used for lifecycle integration tests.
type Photo struct {
	ID   string
	Path string `upload:"path"`
	Name string `upload:"name"`
	Type string `upload:"type"`
	Size int64  `upload:"size"`
}

func (p *Photo) UploadPath() string             { return p.Path }
func (p *Photo) SetUploadPath(path string)      { p.Path = path }
func (p *Photo) UploadName() string             { return p.Name }
func (p *Photo) SetUploadName(name string)      { p.Name = name }
func (p *Photo) UploadContentType() string      { return p.Type }
func (p *Photo) SetUploadContentType(ct string) { p.Type = ct }
func (p *Photo) UploadSize() int64              { return p.Size }
func (p *Photo) SetUploadSize(size int64)       { p.Size = size }

// TestContext holds shared test resources for a storage backend.
// Dir is the backend-native directory test files land under.
type TestContext struct {
	Storage limpet.Storage
	Dir     string
	Cleanup func() // optional cleanup function
}

// setup builds a fresh listener bound to the backend with Photo configured.
func setup(t *testing.T, tc *TestContext, opts ...limpet.ConfigOption) (*limpet.Listener, *limpettest.Unit) {
	t.Helper()

	l := limpet.NewListener(
		limpet.WithStorage(tc.Storage),
		limpet.WithDefaultDir(tc.Dir),
	)
	if _, err := limpet.Configure[Photo](l, opts...); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	return l, limpettest.NewUnit()
}

// pngData returns a valid PNG header followed by n filler bytes, so the
// content detector sees a real image/png file.
func pngData(n int) []byte {
	header := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	return append(header, make([]byte, n)...)
}

// pendingFile writes an upload temp file and describes it.
func pendingFile(t *testing.T, name string, content []byte) *limpet.FileInfo {
	t.Helper()

	path := filepath.Join(t.TempDir(), "upload.tmp")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return &limpet.FileInfo{
		Name:        name,
		TempPath:    path,
		ContentType: "application/octet-stream",
		Size:        int64(len(content)),
		FromUpload:  true,
	}
}

// commit drives a full successful commit cycle.
func commit(t *testing.T, l *limpet.Listener, u *limpettest.Unit) {
	t.Helper()
	ctx := context.Background()

	if err := l.PreCommit(ctx, u); err != nil {
		t.Fatalf("PreCommit failed: %v", err)
	}
	if err := l.OnCommit(ctx, u); err != nil {
		t.Fatalf("OnCommit failed: %v", err)
	}
	if err := l.PostCommit(ctx); err != nil {
		t.Fatalf("PostCommit failed: %v", err)
	}
}

// seed places content at path in the backend directly.
func seed(t *testing.T, tc *TestContext, path string, content []byte) {
	t.Helper()

	local := filepath.Join(t.TempDir(), "seed.tmp")
	if err := os.WriteFile(local, content, 0o600); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}
	if err := tc.Storage.Copy(context.Background(), local, path); err != nil {
		t.Fatalf("failed to seed backend: %v", err)
	}
}

func mustExist(t *testing.T, tc *TestContext, path string) {
	t.Helper()

	exists, err := tc.Storage.Exists(context.Background(), path)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Errorf("expected %s to exist", path)
	}
}

func mustNotExist(t *testing.T, tc *TestContext, path string) {
	t.Helper()

	exists, err := tc.Storage.Exists(context.Background(), path)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Errorf("expected %s to not exist", path)
	}
}

// RunLifecycleTests runs the core commit-cycle suite against the backend.
func RunLifecycleTests(t *testing.T, tc *TestContext) {
	t.Run("InsertPlacesFile", func(t *testing.T) { testInsertPlacesFile(t, tc) })
	t.Run("UpdateSupersedesFile", func(t *testing.T) { testUpdateSupersedesFile(t, tc) })
	t.Run("DeletionRemovesFile", func(t *testing.T) { testDeletionRemovesFile(t, tc) })
	t.Run("CopyKeepsSource", func(t *testing.T) { testCopyKeepsSource(t, tc) })
	t.Run("AbortedCommitRetries", func(t *testing.T) { testAbortedCommitRetries(t, tc) })
}

// RunCollisionTests runs the collision policy suite against the backend.
func RunCollisionTests(t *testing.T, tc *TestContext) {
	t.Run("RejectExisting", func(t *testing.T) { testRejectExisting(t, tc) })
	t.Run("AppendCounter", func(t *testing.T) { testAppendCounter(t, tc) })
	t.Run("OverwriteExisting", func(t *testing.T) { testOverwriteExisting(t, tc) })
}

// RunValidationTests runs the validation suite against the backend.
func RunValidationTests(t *testing.T, tc *TestContext) {
	t.Run("SizeLimit", func(t *testing.T) { testSizeLimit(t, tc) })
	t.Run("AllowedTypes", func(t *testing.T) { testAllowedTypes(t, tc) })
	t.Run("DetectedTypeWins", func(t *testing.T) { testDetectedTypeWins(t, tc) })
	t.Run("CustomNamer", func(t *testing.T) { testCustomNamer(t, tc) })
}

// --- Lifecycle Tests ---

func testInsertPlacesFile(t *testing.T, tc *TestContext) {
	l, u := setup(t, tc)

	photo := &Photo{ID: "insert-1"}
	u.AddInsert(photo)

	content := pngData(64)
	if err := l.Register(photo, pendingFile(t, "insert-cat.png", content)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	commit(t, l, u)

	want := tc.Storage.Join(tc.Dir, "insert-cat.png")
	if photo.Path != want {
		t.Errorf("expected path %q, got %q", want, photo.Path)
	}
	if photo.Name != "insert-cat.png" {
		t.Errorf("expected name insert-cat.png, got %q", photo.Name)
	}
	if photo.Type != "image/png" {
		t.Errorf("expected type image/png, got %q", photo.Type)
	}
	if photo.Size != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), photo.Size)
	}
	mustExist(t, tc, photo.Path)
}

func testUpdateSupersedesFile(t *testing.T, tc *TestContext) {
	l, u := setup(t, tc)

	oldPath := tc.Storage.Join(tc.Dir, "update-old.png")
	seed(t, tc, oldPath, pngData(16))

	photo := &Photo{ID: "update-1", Path: oldPath}
	u.Track(photo)

	if err := l.Register(photo, pendingFile(t, "update-new.png", pngData(32))); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	commit(t, l, u)

	want := tc.Storage.Join(tc.Dir, "update-new.png")
	if photo.Path != want {
		t.Errorf("expected path %q, got %q", want, photo.Path)
	}
	if !u.ScheduledForUpdate(photo) {
		t.Error("expected entity scheduled for update")
	}
	mustExist(t, tc, want)
	mustNotExist(t, tc, oldPath)
}

func testDeletionRemovesFile(t *testing.T, tc *TestContext) {
	l, u := setup(t, tc)

	path := tc.Storage.Join(tc.Dir, "delete-me.png")
	seed(t, tc, path, pngData(16))

	photo := &Photo{ID: "delete-1", Path: path}
	u.AddDeletion(photo)

	commit(t, l, u)

	mustNotExist(t, tc, path)
}

func testCopyKeepsSource(t *testing.T, tc *TestContext) {
	l, u := setup(t, tc)

	photo := &Photo{ID: "copy-1"}
	u.AddInsert(photo)

	info := pendingFile(t, "copy-cat.png", pngData(16))
	info.FromUpload = false
	src := info.TempPath

	if err := l.Register(photo, info); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	commit(t, l, u)

	mustExist(t, tc, photo.Path)
	if _, err := os.Stat(src); err != nil {
		t.Errorf("expected source file to remain: %v", err)
	}
}

func testAbortedCommitRetries(t *testing.T, tc *TestContext) {
	l, u := setup(t, tc)
	ctx := context.Background()

	blocker := tc.Storage.Join(tc.Dir, "retry-photo.png")
	seed(t, tc, blocker, pngData(8))

	photo := &Photo{ID: "retry-1"}
	u.AddInsert(photo)

	if err := l.Register(photo, pendingFile(t, "retry-photo.png", pngData(32))); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// First cycle collides and aborts; the registration stays pending.
	if err := l.PreCommit(ctx, u); err != nil {
		t.Fatalf("PreCommit failed: %v", err)
	}
	err := l.OnCommit(ctx, u)
	if !errors.Is(err, limpet.ErrFileExists) {
		t.Fatalf("expected ErrFileExists, got %v", err)
	}
	if _, err := l.Upload(photo); err != nil {
		t.Fatalf("expected registration to survive the abort: %v", err)
	}
	mustExist(t, tc, blocker)

	// Clear the blocker and retry the commit.
	if err := tc.Storage.Remove(ctx, blocker); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	commit(t, l, u)

	if photo.Path != blocker {
		t.Errorf("expected path %q, got %q", blocker, photo.Path)
	}
	mustExist(t, tc, photo.Path)
}

// --- Collision Tests ---

func testRejectExisting(t *testing.T, tc *TestContext) {
	l, u := setup(t, tc)
	ctx := context.Background()

	taken := tc.Storage.Join(tc.Dir, "reject-photo.png")
	seed(t, tc, taken, pngData(8))

	photo := &Photo{ID: "reject-1"}
	u.AddInsert(photo)

	if err := l.Register(photo, pendingFile(t, "reject-photo.png", pngData(32))); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := l.PreCommit(ctx, u); err != nil {
		t.Fatalf("PreCommit failed: %v", err)
	}
	err := l.OnCommit(ctx, u)
	if !errors.Is(err, limpet.ErrFileExists) {
		t.Fatalf("expected ErrFileExists, got %v", err)
	}

	if photo.Path != "" {
		t.Errorf("expected no field write, got path %q", photo.Path)
	}
	mustExist(t, tc, taken)
}

func testAppendCounter(t *testing.T, tc *TestContext) {
	l, u := setup(t, tc, limpet.WithOverwrite(limpet.AppendCounter))

	taken := tc.Storage.Join(tc.Dir, "counter-photo.png")
	seed(t, tc, taken, pngData(8))

	photo := &Photo{ID: "counter-1"}
	u.AddInsert(photo)

	if err := l.Register(photo, pendingFile(t, "counter-photo.png", pngData(32))); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	commit(t, l, u)

	want := tc.Storage.Join(tc.Dir, "counter-photo-1.png")
	if photo.Path != want {
		t.Errorf("expected path %q, got %q", want, photo.Path)
	}
	if photo.Name != "counter-photo-1.png" {
		t.Errorf("expected name counter-photo-1.png, got %q", photo.Name)
	}
	mustExist(t, tc, taken)
	mustExist(t, tc, want)
}

func testOverwriteExisting(t *testing.T, tc *TestContext) {
	l, u := setup(t, tc, limpet.WithOverwrite(limpet.Overwrite))

	taken := tc.Storage.Join(tc.Dir, "overwrite-photo.png")
	seed(t, tc, taken, pngData(8))

	photo := &Photo{ID: "overwrite-1"}
	u.AddInsert(photo)

	if err := l.Register(photo, pendingFile(t, "overwrite-photo.png", pngData(32))); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	commit(t, l, u)

	if photo.Path != taken {
		t.Errorf("expected path %q, got %q", taken, photo.Path)
	}
	mustExist(t, tc, taken)
}

// --- Validation Tests ---

func testSizeLimit(t *testing.T, tc *TestContext) {
	l, u := setup(t, tc, limpet.WithMaxSize(16))
	ctx := context.Background()

	photo := &Photo{ID: "size-1"}
	u.AddInsert(photo)

	if err := l.Register(photo, pendingFile(t, "size-blob.png", pngData(64))); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := l.PreCommit(ctx, u); err != nil {
		t.Fatalf("PreCommit failed: %v", err)
	}
	err := l.OnCommit(ctx, u)
	if !errors.Is(err, limpet.ErrSizeExceeded) {
		t.Fatalf("expected ErrSizeExceeded, got %v", err)
	}

	mustNotExist(t, tc, tc.Storage.Join(tc.Dir, "size-blob.png"))
}

func testAllowedTypes(t *testing.T, tc *TestContext) {
	l, u := setup(t, tc, limpet.WithAllowed("image/png"))
	ctx := context.Background()

	photo := &Photo{ID: "allowed-1"}
	u.AddInsert(photo)

	if err := l.Register(photo, pendingFile(t, "allowed-note.txt", []byte("plain text body"))); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := l.PreCommit(ctx, u); err != nil {
		t.Fatalf("PreCommit failed: %v", err)
	}
	err := l.OnCommit(ctx, u)
	if !errors.Is(err, limpet.ErrTypeNotAllowed) {
		t.Fatalf("expected ErrTypeNotAllowed, got %v", err)
	}

	mustNotExist(t, tc, tc.Storage.Join(tc.Dir, "allowed-note.txt"))
}

func testDetectedTypeWins(t *testing.T, tc *TestContext) {
	l, u := setup(t, tc)

	photo := &Photo{ID: "detect-1"}
	u.AddInsert(photo)

	// Declared type is a lie; detection reads the PNG header.
	info := pendingFile(t, "detect-photo.png", pngData(16))
	info.ContentType = "text/plain"

	if err := l.Register(photo, info); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	commit(t, l, u)

	if photo.Type != "image/png" {
		t.Errorf("expected detected type image/png, got %q", photo.Type)
	}
}

func testCustomNamer(t *testing.T, tc *TestContext) {
	namer := limpet.NamerFunc(func(info *limpet.FileInfo, _ any) (string, error) {
		return "named-" + info.Name, nil
	})
	l, u := setup(t, tc, limpet.WithNamer(namer))

	photo := &Photo{ID: "namer-1"}
	u.AddInsert(photo)

	if err := l.Register(photo, pendingFile(t, "namer-src.png", pngData(16))); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	commit(t, l, u)

	want := tc.Storage.Join(tc.Dir, "named-namer-src.png")
	if photo.Path != want {
		t.Errorf("expected path %q, got %q", want, photo.Path)
	}
	mustExist(t, tc, want)
}
