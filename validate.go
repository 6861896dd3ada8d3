package limpet

import "fmt"

// validate enforces the type's size and content type policy against one
// upload. The returned content type is detected from file content; the
// declared type on the descriptor is never trusted. A size exactly at the
// limit passes. The allow-list is consulted before the deny-list.
func (l *Listener) validate(info *FileInfo, cfg *Config) (string, error) {
	if cfg.MaxSize > 0 && info.Size > cfg.MaxSize {
		return "", fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrSizeExceeded, info.Name, info.Size, cfg.MaxSize)
	}

	detected, err := l.detector.Detect(info.TempPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTypeUnknown, err)
	}
	if detected == "" {
		return "", fmt.Errorf("%w: %s", ErrTypeUnknown, info.Name)
	}

	if len(cfg.Allowed) > 0 {
		ok := false
		for _, t := range cfg.Allowed {
			if detected == t {
				ok = true
				break
			}
		}
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrTypeNotAllowed, detected)
		}
	}
	for _, t := range cfg.Denied {
		if detected == t {
			return "", fmt.Errorf("%w: %s", ErrTypeDenied, detected)
		}
	}
	return detected, nil
}
