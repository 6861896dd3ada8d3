package limpet

import (
	"context"
	"fmt"
)

// resolveDir determines the storage directory for one upload. Precedence:
// the type's configured Dir, then the entity's own ResolveDir answer, then
// the listener's process-wide default. The winning directory is created on
// demand and probed for writability before it is accepted.
func (l *Listener) resolveDir(ctx context.Context, entity any, cfg *Config) (string, error) {
	dir := cfg.Dir
	if dir == "" {
		if resolved, ok := resolveEntityDir(entity, l.defaultDir); ok {
			if resolved == "" {
				return "", fmt.Errorf("%w: %s resolved an empty directory", ErrNoPath, cfg.typeName)
			}
			dir = resolved
		} else {
			dir = l.defaultDir
		}
	}
	if dir == "" {
		return "", fmt.Errorf("%w: no storage directory for %s", ErrNoPath, cfg.typeName)
	}

	dir = trimTrailingSeparators(dir)

	if err := l.storage.EnsureDir(ctx, dir); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if err := l.storage.Writable(ctx, dir); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	return dir, nil
}

// trimTrailingSeparators drops trailing slashes so joined paths never carry
// doubled separators. A bare root path keeps its final separator.
func trimTrailingSeparators(dir string) string {
	for len(dir) > 1 && (dir[len(dir)-1] == '/' || dir[len(dir)-1] == '\\') {
		dir = dir[:len(dir)-1]
	}
	return dir
}
