package download

import (
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/pkg/errors"
)

// Stage names the step at which a message or attachment failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageParse   Stage = "parse"
	StageWrite   Stage = "write"
	StageFlag    Stage = "flag"
	StageArchive Stage = "archive"
)

// ErrUnknownUID is recorded when a message was processed but the server
// never sent its UID, so it cannot be flagged.
var ErrUnknownUID = errors.New("message UID unknown, left unread")

// ErrNotReturned is recorded for searched UIDs the fetch never delivered.
var ErrNotReturned = errors.New("message not returned by server")

// Failure is one contained per-item error.
type Failure struct {
	SeqNum   uint32   `json:"seq,omitempty"`
	UID      imap.UID `json:"uid,omitempty"`
	Filename string   `json:"filename,omitempty"`
	Stage    Stage    `json:"stage"`
	Err      error    `json:"-"`
}

func (f Failure) Error() string {
	if f.Filename != "" {
		return fmt.Sprintf("%s %q (UID %d): %v", f.Stage, f.Filename, f.UID, f.Err)
	}
	return fmt.Sprintf("%s UID %d: %v", f.Stage, f.UID, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Result is the outcome of one DownloadUnread call.
type Result struct {
	Success          bool      `json:"success"`
	Message          string    `json:"message"`
	TotalEmails      int       `json:"totalEmails"`
	AttachmentsCount int       `json:"attachmentsCount"`
	DownloadedFiles  []string  `json:"downloadedFiles"`
	DownloadPath     string    `json:"downloadPath,omitempty"`
	Failures         []Failure `json:"-"`

	// Flagged lists the UIDs marked as read.
	Flagged []imap.UID `json:"-"`
}
