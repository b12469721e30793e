// Package attachment persists attachment payloads into a download
// directory without ever overwriting an existing file.
package attachment

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	dirPrefix   = "EmailAttachments_"
	dirLayout   = "20060102_150405"
	maxAttempts = 1000
	unnamedStem = "attachment_"
	filePerm    = 0o644
	dirPerm     = 0o755
)

// WriteError reports an attachment that could not be stored.
type WriteError struct {
	Filename string
	Path     string
	Err      error
}

func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("write attachment %q: %v", e.Filename, e.Err)
	}
	return fmt.Sprintf("write attachment %q to %s: %v", e.Filename, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer stores attachments. It is safe for concurrent use: every file is
// created with O_EXCL, so the existence check and the create are one step.
type Writer struct {
	now    func() time.Time
	logger *zap.Logger
}

// NewWriter returns a Writer. A nil logger disables logging.
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{now: time.Now, logger: logger}
}

// Write stores content in dir and returns the final path.
//
// An empty filename becomes attachment_<unix millis>. When the name is
// taken, the millisecond token is inserted before the extension, and a
// counter is added if that name is taken as well.
func (w *Writer) Write(dir, filename string, content []byte) (string, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		name = fmt.Sprintf("%s%d", unnamedStem, w.now().UnixMilli())
	}

	f, target, err := w.create(dir, name)
	if err != nil {
		return "", &WriteError{Filename: filename, Path: target, Err: err}
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(target)
		return "", &WriteError{Filename: filename, Path: target, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return "", &WriteError{Filename: filename, Path: target, Err: err}
	}
	return target, nil
}

func (w *Writer) create(dir, name string) (*os.File, string, error) {
	target := filepath.Join(dir, name)
	f, err := createExclusive(target)
	if err == nil || !os.IsExist(err) {
		return f, target, err
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	stamp := w.now().UnixMilli()

	target = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, stamp, ext))
	w.logger.Debug("attachment name taken", zap.String("file", name), zap.String("renamed", filepath.Base(target)))
	f, err = createExclusive(target)
	for i := 1; err != nil && os.IsExist(err) && i < maxAttempts; i++ {
		target = filepath.Join(dir, fmt.Sprintf("%s_%d_%d%s", base, stamp, i, ext))
		f, err = createExclusive(target)
	}
	if err != nil && os.IsExist(err) {
		err = errors.Errorf("no free name for %q after %d attempts", name, maxAttempts)
	}
	return f, target, err
}

func createExclusive(target string) (*os.File, error) {
	return os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
}

// SanitizeFilename reduces a sender-supplied name to a plain base name.
// It returns "" when nothing usable is left.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\x00", "")
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(path.Base(name))
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}

// CreateDownloadDir creates root/EmailAttachments_YYYYMMDD_HHMMSS. If that
// directory already exists a _N suffix is added, so a directory is never
// reused.
func CreateDownloadDir(root string, now time.Time) (string, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return "", errors.Wrapf(err, "create download root %s", root)
	}

	name := dirPrefix + now.Format(dirLayout)
	dir := filepath.Join(root, name)
	err := os.Mkdir(dir, dirPerm)
	for i := 1; err != nil && os.IsExist(err) && i < maxAttempts; i++ {
		dir = filepath.Join(root, fmt.Sprintf("%s_%d", name, i))
		err = os.Mkdir(dir, dirPerm)
	}
	if err != nil {
		return "", errors.Wrapf(err, "create download directory %s", dir)
	}
	return dir, nil
}
