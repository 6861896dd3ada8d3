package limpet

import (
	"fmt"
	"mime/multipart"
)

// ErrorCode classifies transport-level upload failures reported by whatever
// mechanism produced the temp file. CodeOK means the transfer completed.
type ErrorCode int

// Transport error codes.
const (
	CodeOK          ErrorCode = iota // transfer completed cleanly
	CodeServerLimit                  // server-wide size limit exceeded
	CodeFormLimit                    // form-declared size limit exceeded
	CodePartial                      // transfer ended early
	CodeNoFile                       // no file present in the request
	CodeNoTempDir                    // transport had no temporary directory
	CodeCantWrite                    // writing the temp file failed
	CodeExtension                    // blocked by the transport's extension filter
)

// Err maps the code to its transport error. CodeOK maps to nil; codes
// outside the defined set map to ErrUploadFailed.
func (c ErrorCode) Err() error {
	switch c {
	case CodeOK:
		return nil
	case CodeServerLimit:
		return ErrServerLimit
	case CodeFormLimit:
		return ErrFormLimit
	case CodePartial:
		return ErrPartialUpload
	case CodeNoFile:
		return ErrNoFile
	case CodeNoTempDir:
		return ErrNoTempDir
	case CodeCantWrite:
		return ErrCantWrite
	case CodeExtension:
		return ErrExtensionBlocked
	default:
		return ErrUploadFailed
	}
}

// FileInfo describes an incoming file before it is stored.
// Values are immutable once constructed.
type FileInfo struct {
	Name        string    // original client-supplied base name
	TempPath    string    // current location on the local filesystem
	ContentType string    // declared type, advisory only
	Size        int64     // declared size in bytes
	Code        ErrorCode // transport error code, CodeOK when clean
	FromUpload  bool      // true when produced by the upload transport
}

// FileInfoFrom adapts a caller-supplied description into a FileInfo.
// Accepts *FileInfo, FileInfo, or map[string]any with the keys name, path,
// type, size, error, and upload. The map form defaults upload to true.
// Returns ErrInvalidFile for anything else.
func FileInfoFrom(v any) (*FileInfo, error) {
	switch f := v.(type) {
	case *FileInfo:
		if f == nil {
			return nil, ErrInvalidFile
		}
		clone := *f
		return &clone, nil
	case FileInfo:
		clone := f
		return &clone, nil
	case map[string]any:
		return fileInfoFromMap(f)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidFile, v)
	}
}

// FileInfoFromHeader adapts a multipart file header once its part has been
// saved at tempPath. The declared type comes from the part's Content-Type
// header and FromUpload is true.
func FileInfoFromHeader(h *multipart.FileHeader, tempPath string) *FileInfo {
	return &FileInfo{
		Name:        h.Filename,
		TempPath:    tempPath,
		ContentType: h.Header.Get("Content-Type"),
		Size:        h.Size,
		FromUpload:  true,
	}
}

func fileInfoFromMap(m map[string]any) (*FileInfo, error) {
	info := &FileInfo{FromUpload: true}
	for key, value := range m {
		switch key {
		case "name":
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: name must be a string", ErrInvalidFile)
			}
			info.Name = s
		case "path":
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: path must be a string", ErrInvalidFile)
			}
			info.TempPath = s
		case "type":
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: type must be a string", ErrInvalidFile)
			}
			info.ContentType = s
		case "size":
			n, ok := toInt64(value)
			if !ok {
				return nil, fmt.Errorf("%w: size must be numeric", ErrInvalidFile)
			}
			info.Size = n
		case "error":
			n, ok := toInt64(value)
			if !ok {
				return nil, fmt.Errorf("%w: error must be numeric", ErrInvalidFile)
			}
			info.Code = ErrorCode(n)
		case "upload":
			b, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: upload must be a bool", ErrInvalidFile)
			}
			info.FromUpload = b
		default:
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidFile, key)
		}
	}
	return info, nil
}

// toInt64 accepts the numeric representations a decoded map may carry.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
