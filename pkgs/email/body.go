package email

import (
	"bytes"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/pkg/errors"
)

// Parse reads one RFC 5322 message and collects its attachments. Nested
// multiparts are walked by the mail reader; text bodies are discarded.
//
// A part is an attachment when its disposition says so, or when it is an
// inline part that is not a text body or that carries a filename.
func Parse(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && mr == nil {
		return nil, &ParseError{Err: err}
	}
	defer mr.Close()

	msg := &Message{}
	msg.Subject, _ = mr.Header.Subject()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].String()
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.Date = date
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: errors.Wrap(err, "next part")}
		}

		switch h := part.Header.(type) {
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			ct, _, _ := h.ContentType()
			if err := msg.addAttachment(filename, ct, part.Body); err != nil {
				return nil, &ParseError{Err: err}
			}

		case *mail.InlineHeader:
			ct, params, _ := h.ContentType()
			name := params["name"]
			if name == "" {
				if _, dispParams, err := h.ContentDisposition(); err == nil {
					name = dispParams["filename"]
				}
			}
			if name == "" && (ct == "" || strings.HasPrefix(ct, "text/")) {
				continue
			}
			if err := msg.addAttachment(name, ct, part.Body); err != nil {
				return nil, &ParseError{Err: err}
			}
		}
	}
	return msg, nil
}

// ParseRaw parses a fetched message and carries over its identifiers.
func ParseRaw(raw RawMessage) (*Message, error) {
	msg, err := Parse(bytes.NewReader(raw.Body))
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.SeqNum = raw.SeqNum
		}
		return nil, err
	}
	msg.SeqNum = raw.SeqNum
	msg.UID = raw.UID
	return msg, nil
}

func (m *Message) addAttachment(filename, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return errors.Wrapf(err, "read attachment %q", filename)
	}
	m.Attachments = append(m.Attachments, Attachment{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	})
	return nil
}
