package limpet

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
)

// Action classifies how an entity joins the current commit.
type Action int

const (
	// ActionInsert marks an entity scheduled for insertion.
	ActionInsert Action = iota

	// ActionUpdate marks an entity scheduled for update.
	ActionUpdate
)

// String returns the lowercase action name.
func (a Action) String() string {
	if a == ActionUpdate {
		return "update"
	}
	return "insert"
}

// Process carries one upload through the pre- and post-process hooks.
// Hooks may inspect it and veto by returning an error; they cannot alter
// the pipeline's internal state.
type Process struct {
	Entity any
	Info   *FileInfo
	Config *Config
	Action Action
}

// ProcessFunc observes the processing of one upload. Returning an error
// aborts the surrounding commit.
type ProcessFunc func(ctx context.Context, p *Process) error

// registration pairs an entity with its pending upload descriptor.
type registration struct {
	entity any
	info   *FileInfo
}

// Listener coordinates pending uploads with the host's commit cycle.
// Wire PreCommit, OnCommit, and PostCommit into the host's matching hooks;
// a file is only placed inside an open commit, and superseded files are
// deleted only after the commit succeeded.
type Listener struct {
	storage     Storage
	detector    Detector
	defaultDir  string
	preProcess  ProcessFunc
	postProcess ProcessFunc

	mu       sync.Mutex
	configs  map[reflect.Type]*Config
	pending  []registration
	index    map[any]int
	removals []string
}

// NewListener creates a Listener.
// Uses DiskStorage and ContentDetector by default; override with options.
func NewListener(opts ...Option) *Listener {
	l := &Listener{
		storage:  DiskStorage{},
		detector: ContentDetector{},
		configs:  make(map[reflect.Type]*Config),
		index:    make(map[any]int),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.storage == nil {
		l.storage = DiskStorage{}
	}
	if l.detector == nil {
		l.detector = ContentDetector{}
	}

	return l
}

// configure caches the upload policy for one entity pointer type.
func (l *Listener) configure(t reflect.Type, cfg *Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.configs[t] = cfg
}

// configFor returns the cached policy for the entity's type, or nil when
// the type is not upload-enabled. Caller holds l.mu.
func (l *Listener) configFor(entity any) *Config {
	return l.configs[reflect.TypeOf(entity)]
}

// snapshot copies the pending registrations and their policies so the
// pipeline can run without holding the listener lock.
func (l *Listener) snapshot() ([]registration, map[any]*Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	regs := append([]registration(nil), l.pending...)
	configs := make(map[any]*Config, len(regs))
	for _, reg := range regs {
		configs[reg.entity] = l.configFor(reg.entity)
	}
	return regs, configs
}

// Register attaches a pending upload to an entity. The descriptor may be a
// *FileInfo, a FileInfo, or a generic map (see FileInfoFrom). Registering
// again for the same entity replaces the earlier descriptor; an entity
// carries at most one pending upload per cycle.
func (l *Listener) Register(entity, file any) error {
	if entity == nil {
		return fmt.Errorf("%w: nil entity", ErrNotConfigured)
	}
	info, err := FileInfoFrom(file)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.configFor(entity) == nil {
		return fmt.Errorf("%w: %T", ErrNotConfigured, entity)
	}
	if i, ok := l.index[entity]; ok {
		l.pending[i].info = info
		return nil
	}
	l.index[entity] = len(l.pending)
	l.pending = append(l.pending, registration{entity: entity, info: info})
	return nil
}

// Upload returns the descriptor registered for the entity.
// Returns ErrNoUpload if none is registered.
func (l *Listener) Upload(entity any) (*FileInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNoUpload, entity)
	}
	return l.pending[i].info, nil
}

// PreCommit force-marks every pending entity the host already tracks, so
// dirty detection cannot miss a change that exists only as an attached
// file. The bound path field (or the name field when no path is bound) is
// reported changed with its current value as both old and new, and the
// entity is scheduled for update.
func (l *Listener) PreCommit(ctx context.Context, uow UnitOfWork) error {
	regs, configs := l.snapshot()

	for _, reg := range regs {
		cfg := configs[reg.entity]
		if cfg == nil || !uow.Tracked(reg.entity) {
			continue
		}
		markEntity(uow, reg.entity, cfg)
		uow.ScheduleUpdate(reg.entity)
		capitan.Emit(ctx, MarkCompleted,
			FieldEntity.Field(cfg.typeName),
			FieldFile.Field(reg.info.Name),
		)
	}
	return nil
}

// markEntity issues the synthetic change notification. The current field
// value is reported as both old and new; the point is to trip the host's
// dirty detection, not to record a real change.
func markEntity(uow UnitOfWork, entity any, cfg *Config) {
	switch {
	case cfg.pathField != "":
		if f, ok := entity.(PathField); ok {
			v := f.UploadPath()
			uow.PropertyChanged(entity, cfg.pathField, v, v)
		}
	case cfg.nameField != "":
		if f, ok := entity.(NameField); ok {
			v := f.UploadName()
			uow.PropertyChanged(entity, cfg.nameField, v, v)
		}
	}
}

// OnCommit runs the upload pipeline inside the host's open commit. Stored
// paths of entities scheduled for deletion are queued for post-commit
// removal first. Every pending upload is then planned and validated before
// any file moves, so a rejected upload never leaves earlier batch members
// half-placed. An error aborts the host commit: unprocessed registrations
// survive for a retry, and the removal queue is dropped.
func (l *Listener) OnCommit(ctx context.Context, uow UnitOfWork) error {
	regs, configs := l.snapshot()

	removals := l.scanDeletions(uow)

	plans, err := l.planAll(ctx, uow, regs, configs)
	if err != nil {
		l.dropRemovals()
		return err
	}

	for i := range plans {
		oldPath, err := l.execute(ctx, uow, &plans[i])
		if err != nil {
			l.dropRemovals()
			return err
		}
		if oldPath != "" && oldPath != plans[i].result.Path {
			removals = append(removals, oldPath)
		}
	}

	l.mu.Lock()
	l.consume(plans)
	l.removals = append(l.removals, removals...)
	l.mu.Unlock()
	return nil
}

// dropRemovals discards the removal queue. Called when the commit aborts:
// queued paths refer to a commit that never happened.
func (l *Listener) dropRemovals() {
	l.mu.Lock()
	l.removals = nil
	l.mu.Unlock()
}

// consume drops processed registrations from the arena. Stale entries and
// anything registered after the snapshot keep their relative order. Caller
// holds l.mu.
func (l *Listener) consume(plans []plan) {
	processed := make(map[any]bool, len(plans))
	for i := range plans {
		processed[plans[i].entity] = true
	}
	kept := make([]registration, 0, len(l.pending))
	index := make(map[any]int, len(l.pending))
	for _, reg := range l.pending {
		if processed[reg.entity] {
			continue
		}
		index[reg.entity] = len(kept)
		kept = append(kept, reg)
	}
	l.pending = kept
	l.index = index
}

// scanDeletions queues the stored file path of every upload-enabled entity
// the host is about to delete. No registration is required; the path comes
// from the entity's bound path field.
func (l *Listener) scanDeletions(uow UnitOfWork) []string {
	deletions := uow.ScheduledDeletions()

	l.mu.Lock()
	defer l.mu.Unlock()
	var removals []string
	for _, entity := range deletions {
		cfg := l.configFor(entity)
		if cfg == nil || cfg.pathField == "" {
			continue
		}
		f, ok := entity.(PathField)
		if !ok {
			continue
		}
		if path := f.UploadPath(); path != "" {
			removals = append(removals, path)
		}
	}
	return removals
}

// plan is one upload with its destination fixed, ready for execution.
type plan struct {
	entity    any
	info      *FileInfo
	cfg       *Config
	action    Action
	result    Result
	overwrite bool
}

// planAll classifies, validates, and assigns a destination to every pending
// upload without touching any file. Entities scheduled for neither insert
// nor update are skipped as stale. Destinations claimed by earlier plans
// count as occupied so uploads in the same batch collide deterministically.
func (l *Listener) planAll(ctx context.Context, uow UnitOfWork, regs []registration, configs map[any]*Config) ([]plan, error) {
	plans := make([]plan, 0, len(regs))
	claimed := make(map[string]bool, len(regs))

	for _, reg := range regs {
		var action Action
		switch {
		case uow.ScheduledForInsert(reg.entity):
			action = ActionInsert
		case uow.ScheduledForUpdate(reg.entity):
			action = ActionUpdate
		default:
			continue
		}

		cfg := configs[reg.entity]
		if cfg == nil {
			continue
		}

		if reg.info.Code != CodeOK {
			err := fmt.Errorf("%w: %s", reg.info.Code.Err(), reg.info.Name)
			l.emitRejected(ctx, cfg, reg.info, action, err)
			return nil, err
		}

		dir, err := l.resolveDir(ctx, reg.entity, cfg)
		if err != nil {
			l.emitRejected(ctx, cfg, reg.info, action, err)
			return nil, err
		}

		detected, err := l.validate(reg.info, cfg)
		if err != nil {
			l.emitRejected(ctx, cfg, reg.info, action, err)
			return nil, err
		}

		res, overwrite, err := l.planDestination(ctx, reg.entity, reg.info, cfg, dir, detected, claimed)
		if err != nil {
			l.emitRejected(ctx, cfg, reg.info, action, err)
			return nil, err
		}

		plans = append(plans, plan{
			entity:    reg.entity,
			info:      reg.info,
			cfg:       cfg,
			action:    action,
			result:    res,
			overwrite: overwrite,
		})
	}
	return plans, nil
}

// emitRejected reports an upload that failed before placement started.
func (l *Listener) emitRejected(ctx context.Context, cfg *Config, info *FileInfo, action Action, err error) {
	capitan.Emit(ctx, ProcessFailed,
		FieldEntity.Field(cfg.typeName),
		FieldAction.Field(action.String()),
		FieldFile.Field(info.Name),
		FieldError.Field(err),
	)
}

// execute places one planned upload and writes the result onto the entity.
// Returns the path field's previous value so a superseded file can be
// queued for removal.
func (l *Listener) execute(ctx context.Context, uow UnitOfWork, p *plan) (string, error) {
	start := time.Now()
	capitan.Emit(ctx, ProcessStarted,
		FieldEntity.Field(p.cfg.typeName),
		FieldAction.Field(p.action.String()),
		FieldFile.Field(p.info.Name),
	)

	proc := &Process{Entity: p.entity, Info: p.info, Config: p.cfg, Action: p.action}
	if l.preProcess != nil {
		if err := l.preProcess(ctx, proc); err != nil {
			capitan.Emit(ctx, ProcessFailed,
				FieldEntity.Field(p.cfg.typeName),
				FieldAction.Field(p.action.String()),
				FieldFile.Field(p.info.Name),
				FieldError.Field(err),
				FieldDuration.Field(time.Since(start)),
			)
			return "", err
		}
	}

	if err := l.place(ctx, p.info, p.result, p.overwrite); err != nil {
		capitan.Emit(ctx, ProcessFailed,
			FieldEntity.Field(p.cfg.typeName),
			FieldAction.Field(p.action.String()),
			FieldFile.Field(p.info.Name),
			FieldError.Field(err),
			FieldDuration.Field(time.Since(start)),
		)
		return "", err
	}

	oldPath := writeFields(uow, p.entity, p.cfg, p.result)

	if err := callAfterUpload(ctx, p.entity, p.result); err != nil {
		capitan.Emit(ctx, ProcessFailed,
			FieldEntity.Field(p.cfg.typeName),
			FieldAction.Field(p.action.String()),
			FieldFile.Field(p.info.Name),
			FieldError.Field(err),
			FieldDuration.Field(time.Since(start)),
		)
		return "", err
	}

	uow.RecomputeChangeSet(p.entity)

	if l.postProcess != nil {
		if err := l.postProcess(ctx, proc); err != nil {
			capitan.Emit(ctx, ProcessFailed,
				FieldEntity.Field(p.cfg.typeName),
				FieldAction.Field(p.action.String()),
				FieldFile.Field(p.info.Name),
				FieldError.Field(err),
				FieldDuration.Field(time.Since(start)),
			)
			return "", err
		}
	}

	capitan.Emit(ctx, ProcessCompleted,
		FieldEntity.Field(p.cfg.typeName),
		FieldAction.Field(p.action.String()),
		FieldFile.Field(p.result.Name),
		FieldPath.Field(p.result.Path),
		FieldContentType.Field(p.result.ContentType),
		FieldSize.Field(p.result.Size),
		FieldDuration.Field(time.Since(start)),
	)

	return oldPath, nil
}

// writeFields writes the placement result onto the entity's bound fields in
// path, name, type, size order, reporting each change to the host. Writes
// happen after the host's dirty detection already ran for this cycle, which
// is why every one is paired with an explicit PropertyChanged.
func writeFields(uow UnitOfWork, entity any, cfg *Config, res Result) (oldPath string) {
	if cfg.pathField != "" {
		if f, ok := entity.(PathField); ok {
			oldPath = f.UploadPath()
			f.SetUploadPath(res.Path)
			uow.PropertyChanged(entity, cfg.pathField, oldPath, res.Path)
		}
	}
	if cfg.nameField != "" {
		if f, ok := entity.(NameField); ok {
			old := f.UploadName()
			f.SetUploadName(res.Name)
			uow.PropertyChanged(entity, cfg.nameField, old, res.Name)
		}
	}
	if cfg.typeField != "" {
		if f, ok := entity.(TypeField); ok {
			old := f.UploadContentType()
			f.SetUploadContentType(res.ContentType)
			uow.PropertyChanged(entity, cfg.typeField, old, res.ContentType)
		}
	}
	if cfg.sizeField != "" {
		if f, ok := entity.(SizeField); ok {
			old := f.UploadSize()
			f.SetUploadSize(res.Size)
			uow.PropertyChanged(entity, cfg.sizeField, old, res.Size)
		}
	}
	return oldPath
}

// PostCommit deletes every queued obsolete file and resets all cycle state.
// Call only after the host commit succeeded. Removal failures are swallowed:
// the database change is already durable, and an orphaned file is preferable
// to an error after commit.
func (l *Listener) PostCommit(ctx context.Context) error {
	l.mu.Lock()
	removals := l.removals
	l.removals = nil
	l.pending = nil
	l.index = make(map[any]int)
	l.mu.Unlock()

	for _, path := range removals {
		if err := l.storage.Remove(ctx, path); err != nil {
			capitan.Emit(ctx, RemoveFailed,
				FieldPath.Field(path),
				FieldError.Field(err),
			)
			continue
		}
		capitan.Emit(ctx, RemoveCompleted, FieldPath.Field(path))
	}
	return nil
}
