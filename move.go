package limpet

import (
	"context"
	"fmt"
)

// Result describes one placed upload. Stem and Ext are derived from the
// final name, after naming and collision resolution have run.
type Result struct {
	Name        string // final base name, including extension
	Path        string // full storage path of the placed file
	Original    string // client-supplied name from the descriptor
	Stem        string // final name without extension
	Ext         string // extension including the leading dot, "" when none
	ContentType string // detected content type
	Size        int64  // size in bytes
}

// planDestination chooses the final name and path for one upload. The
// configured namer runs first; collisions against storage and against paths
// claimed earlier in the same cycle are then resolved by the overwrite
// policy. The returned flag tells the execute phase to clear the destination
// before placement.
func (l *Listener) planDestination(ctx context.Context, entity any, info *FileInfo, cfg *Config, dir, detected string, claimed map[string]bool) (Result, bool, error) {
	name := info.Name
	if cfg.Namer != nil {
		named, err := cfg.Namer.Name(info, entity)
		if err != nil {
			return Result{}, false, fmt.Errorf("%w: %w", ErrUploadFailed, err)
		}
		name = named
	}

	path := l.storage.Join(dir, name)
	taken, err := l.pathTaken(ctx, path, claimed)
	if err != nil {
		return Result{}, false, err
	}

	overwrite := false
	if taken {
		switch cfg.Overwrite {
		case Overwrite:
			overwrite = true
		case AppendCounter:
			stem, ext := splitName(name)
			for n := 1; ; n++ {
				name = fmt.Sprintf("%s-%d%s", stem, n, ext)
				path = l.storage.Join(dir, name)
				taken, err = l.pathTaken(ctx, path, claimed)
				if err != nil {
					return Result{}, false, err
				}
				if !taken {
					break
				}
			}
		default:
			return Result{}, false, fmt.Errorf("%w: %s", ErrFileExists, path)
		}
	}

	claimed[path] = true
	stem, ext := splitName(name)
	return Result{
		Name:        name,
		Path:        path,
		Original:    info.Name,
		Stem:        stem,
		Ext:         ext,
		ContentType: detected,
		Size:        info.Size,
	}, overwrite, nil
}

// pathTaken reports whether path is occupied, either by an existing file or
// by an earlier upload in the same cycle.
func (l *Listener) pathTaken(ctx context.Context, path string, claimed map[string]bool) (bool, error) {
	if claimed[path] {
		return true, nil
	}
	exists, err := l.storage.Exists(ctx, path)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrMoveFailed, err)
	}
	return exists, nil
}

// place puts the upload's temp file at its planned destination. Files that
// arrived through the upload mechanism are moved and lose their restrictive
// temp permissions; other sources are copied and left in place.
func (l *Listener) place(ctx context.Context, info *FileInfo, res Result, overwrite bool) error {
	if overwrite {
		if err := l.storage.Remove(ctx, res.Path); err != nil {
			return fmt.Errorf("%w: %w", ErrMoveFailed, err)
		}
	}
	if info.FromUpload {
		if err := l.storage.Move(ctx, info.TempPath, res.Path); err != nil {
			return fmt.Errorf("%w: %w", ErrMoveFailed, err)
		}
		return nil
	}
	if err := l.storage.Copy(ctx, info.TempPath, res.Path); err != nil {
		return fmt.Errorf("%w: %w", ErrMoveFailed, err)
	}
	return nil
}
