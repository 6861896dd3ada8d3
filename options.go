package limpet

// Option configures a Listener.
type Option func(*Listener)

// WithStorage overrides the storage backend used to probe, place, and
// remove files. The default is DiskStorage.
func WithStorage(storage Storage) Option {
	return func(l *Listener) {
		l.storage = storage
	}
}

// WithDetector overrides the content type detector used during validation.
// The default is ContentDetector.
func WithDetector(detector Detector) Option {
	return func(l *Listener) {
		l.detector = detector
	}
}

// WithDefaultDir sets the process-wide fallback directory used when neither
// the entity configuration nor the entity itself resolves one.
func WithDefaultDir(dir string) Option {
	return func(l *Listener) {
		l.defaultDir = dir
	}
}

// WithPreProcess runs fn before each upload is placed. Returning an error
// aborts the commit cycle.
func WithPreProcess(fn ProcessFunc) Option {
	return func(l *Listener) {
		l.preProcess = fn
	}
}

// WithPostProcess runs fn after each upload has been placed and its entity
// fields written. Returning an error aborts the commit cycle.
func WithPostProcess(fn ProcessFunc) Option {
	return func(l *Listener) {
		l.postProcess = fn
	}
}

// ConfigOption configures a single entity type's upload policy.
type ConfigOption func(*Config)

// WithDir stores uploads for this type under dir instead of resolving a
// directory at commit time.
func WithDir(dir string) ConfigOption {
	return func(c *Config) {
		c.Dir = dir
	}
}

// WithMaxSize rejects uploads larger than limit bytes. Zero means no limit.
func WithMaxSize(limit int64) ConfigOption {
	return func(c *Config) {
		c.MaxSize = limit
	}
}

// WithAllowed restricts uploads to the given content types.
func WithAllowed(types ...string) ConfigOption {
	return func(c *Config) {
		c.Allowed = types
	}
}

// WithDenied rejects uploads with the given content types.
func WithDenied(types ...string) ConfigOption {
	return func(c *Config) {
		c.Denied = types
	}
}

// WithNamer renames uploads with the given strategy before placement.
func WithNamer(namer Namer) ConfigOption {
	return func(c *Config) {
		c.Namer = namer
	}
}

// WithOverwrite sets the collision policy for this type.
func WithOverwrite(policy OverwritePolicy) ConfigOption {
	return func(c *Config) {
		c.Overwrite = policy
	}
}
