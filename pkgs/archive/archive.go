// Package archive keeps the raw source of processed messages in an mbox
// file next to their extracted attachments.
package archive

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/pkg/errors"
)

// FileName is the name of the mbox file inside a download directory.
const FileName = "messages.mbox"

const unknownSender = "MAILER-DAEMON"

// Archive appends messages to one mbox file. It is safe for concurrent use.
type Archive struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *mbox.Writer
}

// Open creates dir/messages.mbox. An existing file is appended to.
func Open(dir string) (*Archive, error) {
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}
	return &Archive{path: path, file: f, w: mbox.NewWriter(f)}, nil
}

// Path returns the location of the mbox file.
func (a *Archive) Path() string {
	return a.path
}

// Add appends one message. from and date fill the mbox separator line.
func (a *Archive) Add(from string, date time.Time, raw []byte) error {
	if from == "" {
		from = unknownSender
	}
	if date.IsZero() {
		date = time.Now()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.w == nil {
		return errors.New("archive is closed")
	}

	mw, err := a.w.CreateMessage(from, date)
	if err != nil {
		return errors.Wrap(err, "creating message")
	}
	if _, err := mw.Write(raw); err != nil {
		return errors.Wrap(err, "writing message")
	}
	return nil
}

// Close flushes the mbox and closes the file.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.w == nil {
		return nil
	}
	werr := a.w.Close()
	ferr := a.file.Close()
	a.w = nil
	if werr != nil {
		return errors.Wrap(werr, "closing mbox writer")
	}
	return errors.Wrap(ferr, "closing archive")
}

// ReadAll returns the raw source of every message in an mbox file.
func ReadAll(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}
	defer f.Close()

	var out [][]byte
	mr := mbox.NewReader(f)
	for {
		r, err := mr.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading mbox message")
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, "reading mbox message")
		}
		out = append(out, b)
	}
	return out, nil
}
