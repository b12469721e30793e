package email

import (
	"context"
	"io"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Stream delivers the messages of one Fetch as they complete.
type Stream struct {
	messages chan RawMessage
	demux    *Demux
	logger   *zap.Logger

	err     error
	missing []imap.UID
}

func newStream(uids []imap.UID, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Buffered to the request size so the reader never waits on a
	// consumer that is itself issuing commands on the same connection.
	return &Stream{
		messages: make(chan RawMessage, len(uids)),
		demux:    NewDemux(uids),
		logger:   logger,
	}
}

// Messages returns the channel of completed messages. It is closed when
// the FETCH command finishes.
func (s *Stream) Messages() <-chan RawMessage {
	return s.messages
}

// Err returns the stream-level failure, if any. Only valid once the
// Messages channel is closed.
func (s *Stream) Err() error {
	return s.err
}

// Missing returns the requested UIDs the server never returned. Only
// valid once the Messages channel is closed.
func (s *Stream) Missing() []imap.UID {
	return s.missing
}

func (s *Stream) run(ctx context.Context, client *imapclient.Client, cmd *imapclient.FetchCommand) {
	defer close(s.messages)

	stop := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})
	defer stop()

	var readErr error
	for {
		msg := cmd.Next()
		if msg == nil {
			break
		}
		for {
			item := msg.Next()
			if item == nil {
				break
			}
			switch item := item.(type) {
			case imapclient.FetchItemDataUID:
				if raw, ok := s.demux.UID(msg.SeqNum, item.UID); ok {
					s.emit(raw)
				}
			case imapclient.FetchItemDataBodySection:
				var body []byte
				if item.Literal != nil {
					b, err := io.ReadAll(item.Literal)
					if err != nil {
						if readErr == nil {
							readErr = errors.Wrapf(err, "read body of message #%d", msg.SeqNum)
						}
						continue
					}
					body = b
				}
				if raw, ok := s.demux.Body(msg.SeqNum, body); ok {
					s.emit(raw)
				}
			}
		}
	}

	err := cmd.Close()
	switch {
	case ctx.Err() != nil:
		s.err = &ProtocolError{Op: "fetch", Err: ctx.Err()}
	case err != nil:
		s.err = &ProtocolError{Op: "fetch", Err: err}
	case readErr != nil:
		s.err = &ProtocolError{Op: "fetch", Err: readErr}
	}
	if s.err != nil {
		s.logger.Warn("fetch stream failed", zap.Error(s.err))
		return
	}

	for _, raw := range s.demux.Flush() {
		s.logger.Debug("incomplete fetch response", zap.Uint32("seq", raw.SeqNum), zap.Uint32("uid", uint32(raw.UID)))
		s.emit(raw)
	}
	s.missing = s.demux.Missing()
}

func (s *Stream) emit(raw RawMessage) {
	s.messages <- raw
}
