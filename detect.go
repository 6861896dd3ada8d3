package limpet

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ContentDetector resolves content types by sniffing file content.
// The zero value is ready to use.
type ContentDetector struct{}

var _ Detector = ContentDetector{}

// Detect returns the media type of the file at path. Parameters such as
// charset are stripped so the result compares cleanly against allow and
// deny lists.
func (ContentDetector) Detect(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	detected := mtype.String()
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}
	return detected, nil
}
