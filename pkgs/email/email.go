package email

import (
	"time"

	"github.com/emersion/go-imap/v2"
)

// Credentials identifies the mailbox owner.
type Credentials struct {
	Email    string
	Password string
}

// Message is the parsed form of one fetched message.
type Message struct {
	SeqNum  uint32
	UID     imap.UID
	Subject string
	From    string
	Date    time.Time

	Attachments []Attachment
}

// Attachment is a file payload embedded in a message.
type Attachment struct {
	// Filename is empty when the sender did not name the part.
	Filename    string
	ContentType string
	Data        []byte
}

// RawMessage is one message as delivered by the fetch stream, before
// parsing. UID is zero when the server never sent the identifier.
type RawMessage struct {
	SeqNum uint32
	UID    imap.UID
	Body   []byte

	// Err is set when the message was announced but its body never
	// arrived before the stream ended.
	Err error
}

// HasUID reports whether the server-assigned identifier is known.
func (m RawMessage) HasUID() bool {
	return m.UID != 0
}
