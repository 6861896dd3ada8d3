package limpet

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Namer computes the stored base name for an incoming file.
// A nil Namer on a Config keeps the original name.
type Namer interface {
	// Name returns the full stored base name, extension included.
	// The mover re-derives stem and extension from the result.
	Name(info *FileInfo, entity any) (string, error)
}

// NamerFunc adapts a function to the Namer interface.
type NamerFunc func(info *FileInfo, entity any) (string, error)

// Name calls the wrapped function.
func (f NamerFunc) Name(info *FileInfo, entity any) (string, error) {
	return f(info, entity)
}

// RandomNamer names files with a random alphanumeric identifier, keeping
// the original extension.
type RandomNamer struct{}

// Name returns a random hex name with the original extension.
func (RandomNamer) Name(info *FileInfo, _ any) (string, error) {
	_, ext := splitName(info.Name)
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ext, nil
}

// HashNamer names files by the sha256 of their content, keeping the
// original extension. Identical content resolves to an identical name.
type HashNamer struct{}

// Name hashes the temp file's content and returns the hex digest with the
// original extension.
func (HashNamer) Name(info *FileInfo, _ any) (string, error) {
	f, err := os.Open(info.TempPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	_, ext := splitName(info.Name)
	return hex.EncodeToString(h.Sum(nil)) + ext, nil
}

// splitName separates a base name into stem and extension. The extension
// keeps its leading dot and is empty when the name has none.
func splitName(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// Ensure the provided namers implement Namer.
var (
	_ Namer = NamerFunc(nil)
	_ Namer = RandomNamer{}
	_ Namer = HashNamer{}
)
