// Package flush provides shared test infrastructure for SQL-backed commit
// cycle integration tests. Host is a minimal but real unit-of-work
// implementation, so the suite exercises the listener against live change
// tracking and live transactions instead of a recording fake.
package flush

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/astql"
	"github.com/zoobzio/edamame"
	"github.com/zoobzio/limpet"
	"github.com/zoobzio/sentinel"
	"github.com/zoobzio/soy"
)

func init() {
	sentinel.Tag("db")
}

// Photo is the record persisted by the flush host.
type Photo struct {
	ID   string `db:"id"`
	Path string `db:"path" upload:"path"`
	Name string `db:"name" upload:"name"`
	Type string `db:"type" upload:"type"`
	Size int64  `db:"size" upload:"size"`
}

func (p *Photo) UploadPath() string             { return p.Path }
func (p *Photo) SetUploadPath(path string)      { p.Path = path }
func (p *Photo) UploadName() string             { return p.Name }
func (p *Photo) SetUploadName(name string)      { p.Name = name }
func (p *Photo) UploadContentType() string      { return p.Type }
func (p *Photo) SetUploadContentType(ct string) { p.Type = ct }
func (p *Photo) UploadSize() int64              { return p.Size }
func (p *Photo) SetUploadSize(size int64)       { p.Size = size }

// Host is a unit-of-work host backed by a photos table. It tracks loaded
// records in an identity map, schedules inserts, updates, and deletions,
// and flushes them in a single transaction with the listener's three
// phases wrapped around the SQL.
type Host struct {
	db       *sqlx.DB
	renderer astql.Renderer
	listener *limpet.Listener
	executor *edamame.Executor[Photo]

	tracked   map[*Photo]bool
	dirty     map[*Photo]bool
	inserts   []*Photo
	updates   []*Photo
	deletions []*Photo
}

var _ limpet.UnitOfWork = (*Host)(nil)

// NewHost creates a Host flushing to the photos table through the given
// renderer.
func NewHost(db *sqlx.DB, renderer astql.Renderer, listener *limpet.Listener) (*Host, error) {
	exec, err := edamame.New[Photo](db, "photos", renderer)
	if err != nil {
		return nil, err
	}
	return &Host{
		db:       db,
		renderer: renderer,
		listener: listener,
		executor: exec,
		tracked:  make(map[*Photo]bool),
		dirty:    make(map[*Photo]bool),
	}, nil
}

// Tracked reports whether the entity was loaded or flushed by this host.
func (h *Host) Tracked(entity any) bool {
	p, ok := entity.(*Photo)
	return ok && h.tracked[p]
}

// ScheduledForInsert reports whether the entity awaits insertion.
func (h *Host) ScheduledForInsert(entity any) bool {
	for _, p := range h.inserts {
		if any(p) == entity {
			return true
		}
	}
	return false
}

// ScheduledForUpdate reports whether the entity awaits an update.
func (h *Host) ScheduledForUpdate(entity any) bool {
	for _, p := range h.updates {
		if any(p) == entity {
			return true
		}
	}
	return false
}

// ScheduledDeletions returns the entities awaiting deletion.
func (h *Host) ScheduledDeletions() []any {
	out := make([]any, len(h.deletions))
	for i, p := range h.deletions {
		out[i] = p
	}
	return out
}

// ScheduleUpdate marks a tracked entity for flushing.
func (h *Host) ScheduleUpdate(entity any) {
	p, ok := entity.(*Photo)
	if !ok || h.ScheduledForUpdate(p) {
		return
	}
	h.updates = append(h.updates, p)
}

// PropertyChanged marks the entity dirty. The field and values are not
// recorded: the flush reads current field values, so knowing that
// something changed is enough.
func (h *Host) PropertyChanged(entity any, _ string, _, _ any) {
	if p, ok := entity.(*Photo); ok {
		h.dirty[p] = true
	}
}

// RecomputeChangeSet is a no-op. The upsert reads current field values at
// flush time, so there is no snapshot to rebuild.
func (h *Host) RecomputeChangeSet(any) {}

// Persist schedules the record for insertion.
func (h *Host) Persist(p *Photo) {
	h.inserts = append(h.inserts, p)
}

// Remove schedules the record for deletion.
func (h *Host) Remove(p *Photo) {
	h.deletions = append(h.deletions, p)
}

// Find loads the record with the given id and tracks it.
func (h *Host) Find(ctx context.Context, id string) (*Photo, error) {
	p, err := h.executor.Soy().Select().
		Where("id", "=", "key").
		Exec(ctx, map[string]any{"key": id})
	if err != nil {
		return nil, err
	}
	h.tracked[p] = true
	return p, nil
}

// Commit flushes all scheduled work in one transaction, driving the
// listener's three phases around it. On error nothing is flushed and the
// scheduled work survives for a retry.
func (h *Host) Commit(ctx context.Context) error {
	if err := h.listener.PreCommit(ctx, h); err != nil {
		return err
	}

	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := h.listener.OnCommit(ctx, h); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := h.flush(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	h.promote()
	return h.listener.PostCommit(ctx)
}

// flush executes the scheduled SQL inside the transaction. Updates with no
// recorded change are skipped, which is exactly what the listener's
// pre-commit marking exists to prevent for file-only changes.
func (h *Host) flush(ctx context.Context, tx *sqlx.Tx) error {
	exec, err := edamame.New[Photo](tx, "photos", h.renderer)
	if err != nil {
		return err
	}

	for _, p := range h.inserts {
		if err := save(ctx, exec, p); err != nil {
			return err
		}
	}
	for _, p := range h.updates {
		if !h.dirty[p] {
			continue
		}
		if err := save(ctx, exec, p); err != nil {
			return err
		}
	}
	for _, p := range h.deletions {
		_, err := exec.Soy().Remove().
			Where("id", "=", "key").
			Exec(ctx, map[string]any{"key": p.ID})
		if err != nil {
			return err
		}
	}
	return nil
}

// save upserts the record, matching on the primary key.
func save(ctx context.Context, exec *edamame.Executor[Photo], p *Photo) error {
	s := exec.Soy()
	insert := s.InsertFull().OnConflict("id").DoUpdate()

	for _, field := range s.Metadata().Fields {
		col := field.Tags["db"]
		if col == "" || col == "-" || col == "id" {
			continue
		}
		insert = insert.Set(col, col)
	}

	_, err := insert.Build().Exec(ctx, p)
	return err
}

// promote moves flushed records into the identity map and clears the
// schedules.
func (h *Host) promote() {
	for _, p := range h.inserts {
		h.tracked[p] = true
	}
	for _, p := range h.deletions {
		delete(h.tracked, p)
	}
	h.inserts = nil
	h.updates = nil
	h.deletions = nil
	h.dirty = make(map[*Photo]bool)
}

// TestContext holds shared test resources for a dialect.
type TestContext struct {
	DB       *sqlx.DB
	Renderer astql.Renderer
	ResetSQL string // SQL to drop/recreate the photos table
}

// Reset drops and recreates the photos table.
func (tc *TestContext) Reset(t *testing.T) {
	t.Helper()
	if _, err := tc.DB.Exec(tc.ResetSQL); err != nil {
		t.Fatalf("failed to reset table: %v", err)
	}
}

// setup resets the table and builds a listener and host pair placing files
// under a per-test directory.
func setup(t *testing.T, tc *TestContext, opts ...limpet.ConfigOption) (*Host, *limpet.Listener, string) {
	t.Helper()
	tc.Reset(t)

	dir := filepath.Join(t.TempDir(), "uploads")
	l := limpet.NewListener(
		limpet.WithStorage(limpet.DiskStorage{}),
		limpet.WithDefaultDir(dir),
	)
	if _, err := limpet.Configure[Photo](l, opts...); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	h, err := NewHost(tc.DB, tc.Renderer, l)
	if err != nil {
		t.Fatalf("NewHost failed: %v", err)
	}
	return h, l, dir
}

// pngData returns a valid PNG header followed by n filler bytes.
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

// RunFlushTests runs full commit cycles against a real database.
func RunFlushTests(t *testing.T, tc *TestContext) {
	t.Run("InsertPersistsRowAndFile", func(t *testing.T) { testInsertPersistsRowAndFile(t, tc) })
	t.Run("UpdateSupersedesFile", func(t *testing.T) { testUpdateSupersedesFile(t, tc) })
	t.Run("DeleteCleansUpFile", func(t *testing.T) { testDeleteCleansUpFile(t, tc) })
	t.Run("RejectedUploadRollsBack", func(t *testing.T) { testRejectedUploadRollsBack(t, tc) })
}

// --- Flush Tests ---

func testInsertPersistsRowAndFile(t *testing.T, tc *TestContext) {
	h, l, dir := setup(t, tc)
	ctx := context.Background()

	photo := &Photo{ID: "p-1"}
	h.Persist(photo)

	content := pngData(48)
	if err := l.Register(photo, pendingFile(t, "insert.png", content)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := h.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	want := filepath.Join(dir, "insert.png")
	if photo.Path != want {
		t.Errorf("expected path %q, got %q", want, photo.Path)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected placed file: %v", err)
	}

	got, err := h.Find(ctx, "p-1")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got.Path != want {
		t.Errorf("expected stored path %q, got %q", want, got.Path)
	}
	if got.Name != "insert.png" {
		t.Errorf("expected stored name insert.png, got %q", got.Name)
	}
	if got.Type != "image/png" {
		t.Errorf("expected stored type image/png, got %q", got.Type)
	}
	if got.Size != int64(len(content)) {
		t.Errorf("expected stored size %d, got %d", len(content), got.Size)
	}
}

func testUpdateSupersedesFile(t *testing.T, tc *TestContext) {
	h, l, dir := setup(t, tc)
	ctx := context.Background()

	photo := &Photo{ID: "p-2"}
	h.Persist(photo)
	if err := l.Register(photo, pendingFile(t, "first.png", pngData(16))); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := h.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	oldPath := photo.Path

	// No column is touched directly; the new upload is the only change.
	if err := l.Register(photo, pendingFile(t, "second.png", pngData(32))); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := h.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	want := filepath.Join(dir, "second.png")
	got, err := h.Find(ctx, "p-2")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got.Path != want {
		t.Errorf("expected stored path %q, got %q", want, got.Path)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected placed file: %v", err)
	}
	if _, err := os.Stat(oldPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected superseded file removed, got %v", err)
	}
}

func testDeleteCleansUpFile(t *testing.T, tc *TestContext) {
	h, l, _ := setup(t, tc)
	ctx := context.Background()

	photo := &Photo{ID: "p-3"}
	h.Persist(photo)
	if err := l.Register(photo, pendingFile(t, "doomed.png", pngData(16))); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := h.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	path := photo.Path

	h.Remove(photo)
	if err := h.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, err := h.Find(ctx, "p-3"); !errors.Is(err, soy.ErrNotFound) {
		t.Errorf("expected record gone, got %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected stored file removed, got %v", err)
	}
}

func testRejectedUploadRollsBack(t *testing.T, tc *TestContext) {
	h, l, _ := setup(t, tc, limpet.WithMaxSize(8))
	ctx := context.Background()

	photo := &Photo{ID: "p-4"}
	h.Persist(photo)
	if err := l.Register(photo, pendingFile(t, "huge.png", pngData(64))); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	err := h.Commit(ctx)
	if !errors.Is(err, limpet.ErrSizeExceeded) {
		t.Fatalf("expected ErrSizeExceeded, got %v", err)
	}

	if _, err := h.Find(ctx, "p-4"); !errors.Is(err, soy.ErrNotFound) {
		t.Errorf("expected no row, got %v", err)
	}
	if _, err := l.Upload(photo); err != nil {
		t.Errorf("expected registration to survive the abort: %v", err)
	}
}
