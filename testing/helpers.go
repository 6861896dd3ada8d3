// Package testing provides test utilities for limpet.
package testing

import (
	"context"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/limpet"
)

// MemStorage is an in-memory implementation of limpet.Storage for testing.
// Move and Copy read the local source file, so placed content survives and
// can be inspected without a real backend.
type MemStorage struct {
	files map[string]string
	dirs  map[string]bool
	mu    sync.RWMutex
}

// NewMemStorage creates a new in-memory storage.
func NewMemStorage() *MemStorage {
	return &MemStorage{
		files: make(map[string]string),
		dirs:  make(map[string]bool),
	}
}

// Join composes storage paths with forward slashes.
func (m *MemStorage) Join(dir, name string) string {
	return path.Join(dir, name)
}

// EnsureDir records the directory as created.
func (m *MemStorage) EnsureDir(_ context.Context, dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dirs[dir] = true
	return nil
}

// Writable always succeeds.
func (m *MemStorage) Writable(_ context.Context, _ string) error {
	return nil
}

// Exists checks whether a file was placed at path.
func (m *MemStorage) Exists(_ context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.files[path]
	return ok, nil
}

// Move reads the local file at src, stores its content at dst, and deletes
// the local file.
func (m *MemStorage) Move(_ context.Context, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[dst] = string(data)
	return nil
}

// Copy reads the local file at src and stores its content at dst. src is
// untouched.
func (m *MemStorage) Copy(_ context.Context, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[dst] = string(data)
	return nil
}

// Remove deletes the file at path. Removing a missing file is not an error.
func (m *MemStorage) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.files, path)
	return nil
}

// Seed places content at path directly, bypassing Move and Copy.
func (m *MemStorage) Seed(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[path] = content
}

// Content returns the stored content at path.
func (m *MemStorage) Content(path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	content, ok := m.files[path]
	return content, ok
}

// Files returns all stored paths in sorted order.
func (m *MemStorage) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Reset clears all stored files and directories.
func (m *MemStorage) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files = make(map[string]string)
	m.dirs = make(map[string]bool)
}

// Ensure MemStorage implements limpet.Storage.
var _ limpet.Storage = (*MemStorage)(nil)

// StubDetector is a limpet.Detector that returns a fixed content type,
// or a fixed error when Err is set.
type StubDetector struct {
	ContentType string
	Err         error
}

// Detect returns the configured content type without reading the file.
func (d StubDetector) Detect(_ string) (string, error) {
	if d.Err != nil {
		return "", d.Err
	}
	return d.ContentType, nil
}

// Ensure StubDetector implements limpet.Detector.
var _ limpet.Detector = StubDetector{}

// PropertyChange records one PropertyChanged notification from the
// listener.
type PropertyChange struct {
	Entity   any
	Field    string
	OldValue any
	NewValue any
}

// Unit is an in-memory implementation of limpet.UnitOfWork for testing.
// Commit state is arranged with Track, AddInsert, AddUpdate, and
// AddDeletion; notifications from the listener are recorded for
// inspection.
type Unit struct {
	tracked    map[any]bool
	inserts    []any
	updates    []any
	deletions  []any
	changes    []PropertyChange
	recomputed []any
	mu         sync.Mutex
}

// NewUnit creates a new in-memory unit of work.
func NewUnit() *Unit {
	return &Unit{
		tracked: make(map[any]bool),
	}
}

// Track marks entities as known to identity tracking.
func (u *Unit) Track(entities ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, e := range entities {
		u.tracked[e] = true
	}
}

// AddInsert queues entities for insertion.
func (u *Unit) AddInsert(entities ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.inserts = append(u.inserts, entities...)
}

// AddUpdate queues entities for update.
func (u *Unit) AddUpdate(entities ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.updates = append(u.updates, entities...)
}

// AddDeletion queues entities for deletion.
func (u *Unit) AddDeletion(entities ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.deletions = append(u.deletions, entities...)
}

// Tracked reports whether the entity was registered with Track.
func (u *Unit) Tracked(entity any) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.tracked[entity]
}

// ScheduledForInsert reports whether the entity was queued with AddInsert.
func (u *Unit) ScheduledForInsert(entity any) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, e := range u.inserts {
		if e == entity {
			return true
		}
	}
	return false
}

// ScheduledForUpdate reports whether the entity was queued with AddUpdate
// or ScheduleUpdate.
func (u *Unit) ScheduledForUpdate(entity any) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, e := range u.updates {
		if e == entity {
			return true
		}
	}
	return false
}

// ScheduledDeletions returns a copy of the queued deletions.
func (u *Unit) ScheduledDeletions() []any {
	u.mu.Lock()
	defer u.mu.Unlock()

	result := make([]any, len(u.deletions))
	copy(result, u.deletions)
	return result
}

// ScheduleUpdate queues the entity for update when not already queued.
func (u *Unit) ScheduleUpdate(entity any) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, e := range u.updates {
		if e == entity {
			return
		}
	}
	u.updates = append(u.updates, entity)
}

// PropertyChanged records the notification.
func (u *Unit) PropertyChanged(entity any, field string, oldValue, newValue any) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.changes = append(u.changes, PropertyChange{
		Entity:   entity,
		Field:    field,
		OldValue: oldValue,
		NewValue: newValue,
	})
}

// RecomputeChangeSet records the entity.
func (u *Unit) RecomputeChangeSet(entity any) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.recomputed = append(u.recomputed, entity)
}

// Changes returns a copy of all recorded notifications.
func (u *Unit) Changes() []PropertyChange {
	u.mu.Lock()
	defer u.mu.Unlock()

	result := make([]PropertyChange, len(u.changes))
	copy(result, u.changes)
	return result
}

// ChangesFor returns recorded notifications for the given entity.
func (u *Unit) ChangesFor(entity any) []PropertyChange {
	u.mu.Lock()
	defer u.mu.Unlock()

	result := make([]PropertyChange, 0)
	for _, c := range u.changes {
		if c.Entity == entity {
			result = append(result, c)
		}
	}
	return result
}

// Recomputed returns a copy of the entities passed to RecomputeChangeSet.
func (u *Unit) Recomputed() []any {
	u.mu.Lock()
	defer u.mu.Unlock()

	result := make([]any, len(u.recomputed))
	copy(result, u.recomputed)
	return result
}

// Reset clears all arranged state and recorded notifications.
func (u *Unit) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.tracked = make(map[any]bool)
	u.inserts = nil
	u.updates = nil
	u.deletions = nil
	u.changes = nil
	u.recomputed = nil
}

// Ensure Unit implements limpet.UnitOfWork.
var _ limpet.UnitOfWork = (*Unit)(nil)

// CapturedEvent represents an event captured during testing.
type CapturedEvent struct {
	Signal    capitan.Signal
	Fields    []capitan.Field
	Timestamp time.Time
}

// EventCapture captures limpet events for verification in tests.
type EventCapture struct {
	events []CapturedEvent
	mu     sync.Mutex
}

// NewEventCapture creates a new event capture utility.
func NewEventCapture() *EventCapture {
	return &EventCapture{
		events: make([]CapturedEvent, 0),
	}
}

// Handler returns a capitan.EventCallback that captures events.
func (c *EventCapture) Handler() capitan.EventCallback {
	return func(_ context.Context, e *capitan.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.events = append(c.events, CapturedEvent{
			Signal:    e.Signal(),
			Fields:    e.Fields(),
			Timestamp: time.Now(),
		})
	}
}

// Events returns a copy of all captured events.
func (c *EventCapture) Events() []CapturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]CapturedEvent, len(c.events))
	copy(result, c.events)
	return result
}

// Count returns the number of captured events.
func (c *EventCapture) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.events)
}

// Reset clears all captured events.
func (c *EventCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = make([]CapturedEvent, 0)
}

// WaitForCount blocks until the specified number of events are captured or timeout.
func (c *EventCapture) WaitForCount(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.Count() >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return c.Count() >= n
}

// EventsBySignal returns events filtered by signal.
func (c *EventCapture) EventsBySignal(sig capitan.Signal) []CapturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]CapturedEvent, 0)
	for _, e := range c.events {
		if e.Signal == sig {
			result = append(result, e)
		}
	}
	return result
}

// EventCounter counts events without storing them.
type EventCounter struct {
	count int64
	mu    sync.Mutex
}

// NewEventCounter creates a new event counter.
func NewEventCounter() *EventCounter {
	return &EventCounter{}
}

// Handler returns a capitan.EventCallback that increments the counter.
func (c *EventCounter) Handler() capitan.EventCallback {
	return func(_ context.Context, _ *capitan.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.count++
	}
}

// Count returns the current count.
func (c *EventCounter) Count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Reset resets the counter to zero.
func (c *EventCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
}

// WaitForCount blocks until the specified count is reached or timeout.
func (c *EventCounter) WaitForCount(n int64, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.Count() >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return c.Count() >= n
}

// FieldExtractor provides typed field extraction from captured events.
type FieldExtractor struct{}

// NewFieldExtractor creates a new field extractor.
func NewFieldExtractor() *FieldExtractor {
	return &FieldExtractor{}
}

// GetString extracts a string field from captured event fields.
func (f *FieldExtractor) GetString(fields []capitan.Field, key capitan.StringKey) (string, bool) {
	return key.ExtractFromFields(fields), true
}

// GetInt extracts an int field from captured event fields.
func (f *FieldExtractor) GetInt(fields []capitan.Field, key capitan.IntKey) (int, bool) {
	return key.ExtractFromFields(fields), true
}

// GetInt64 extracts an int64 field from captured event fields.
func (f *FieldExtractor) GetInt64(fields []capitan.Field, key capitan.Int64Key) (int64, bool) {
	return key.ExtractFromFields(fields), true
}

// GetBool extracts a bool field from captured event fields.
func (f *FieldExtractor) GetBool(fields []capitan.Field, key capitan.BoolKey) (bool, bool) {
	return key.ExtractFromFields(fields), true
}

// GetDuration extracts a duration field from captured event fields.
func (f *FieldExtractor) GetDuration(fields []capitan.Field, key capitan.DurationKey) (time.Duration, bool) {
	return key.ExtractFromFields(fields), true
}
