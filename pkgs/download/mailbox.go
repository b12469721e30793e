package download

import (
	"context"

	"github.com/emersion/go-imap/v2"

	"github.com/emx-mail/attachfetch/pkgs/email"
)

// Mailbox is the part of an IMAP session the orchestrator drives.
type Mailbox interface {
	Connected() bool
	OpenMailbox(name string, readOnly bool) (*imap.SelectData, error)
	SearchUnread() ([]imap.UID, error)
	Fetch(ctx context.Context, uids []imap.UID) (Stream, error)
	MarkRead(uid imap.UID) error
	Disconnect() error
}

// Stream is a running fetch.
type Stream interface {
	Messages() <-chan email.RawMessage
	// Err and Missing are valid once Messages is closed.
	Err() error
	Missing() []imap.UID
}

// FromSession adapts a live session. A nil session yields a Mailbox that
// reports itself disconnected.
func FromSession(s *email.Session) Mailbox {
	return sessionMailbox{s}
}

type sessionMailbox struct {
	*email.Session
}

func (m sessionMailbox) Fetch(ctx context.Context, uids []imap.UID) (Stream, error) {
	stream, err := m.Session.Fetch(ctx, uids)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
