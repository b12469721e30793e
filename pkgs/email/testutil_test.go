package email

import (
	"context"
	"testing"

	"github.com/emx-mail/attachfetch/pkgs/email/emailtest"
)

// connectTestSession opens a Session against srv and selects INBOX.
func connectTestSession(t *testing.T, srv *emailtest.Server) *Session {
	t.Helper()
	s, err := Connect(context.Background(), Credentials{
		Email:    emailtest.User,
		Password: emailtest.Password,
	}, SessionOptions{Host: srv.Host, Port: srv.Port})
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { s.Disconnect() })

	if _, err := s.OpenMailbox(Inbox, false); err != nil {
		t.Fatalf("OpenMailbox() error: %v", err)
	}
	return s
}

// drain collects every message of a stream.
func drain(t *testing.T, stream *Stream) []RawMessage {
	t.Helper()
	var out []RawMessage
	for raw := range stream.Messages() {
		out = append(out, raw)
	}
	return out
}

// testMailRFC822 is a minimal RFC 5322 message for testing.
const testMailRFC822 = "MIME-Version: 1.0\r\n" +
	"From: sender@example.com\r\n" +
	"To: rcpt@example.com\r\n" +
	"Subject: Test Subject\r\n" +
	"Date: Mon, 10 Feb 2026 08:00:00 +0000\r\n" +
	"Message-Id: <test-1@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello, World!"

// testMailMultipart is a multipart/mixed message with text + attachment.
const testMailMultipart = "MIME-Version: 1.0\r\n" +
	"From: sender@example.com\r\n" +
	"To: rcpt@example.com\r\n" +
	"Subject: Multipart Test\r\n" +
	"Date: Mon, 10 Feb 2026 08:00:00 +0000\r\n" +
	"Message-Id: <test-multi@example.com>\r\n" +
	"Content-Type: multipart/mixed; boundary=\"TESTBOUNDARY\"\r\n" +
	"\r\n" +
	"--TESTBOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Plain text body\r\n" +
	"--TESTBOUNDARY\r\n" +
	"Content-Type: application/octet-stream\r\n" +
	"Content-Disposition: attachment; filename=\"test.bin\"\r\n" +
	"\r\n" +
	"BINARYDATA\r\n" +
	"--TESTBOUNDARY--\r\n"

// testMailNested is a multipart/mixed containing a multipart/alternative
// and an image attachment.
const testMailNested = "MIME-Version: 1.0\r\n" +
	"From: sender@example.com\r\n" +
	"To: rcpt@example.com\r\n" +
	"Subject: Nested Multipart\r\n" +
	"Date: Mon, 10 Feb 2026 08:00:00 +0000\r\n" +
	"Message-Id: <test-nested@example.com>\r\n" +
	"Content-Type: multipart/mixed; boundary=\"OUTER\"\r\n" +
	"\r\n" +
	"--OUTER\r\n" +
	"Content-Type: multipart/alternative; boundary=\"INNER\"\r\n" +
	"\r\n" +
	"--INNER\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Plain version\r\n" +
	"--INNER\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>HTML version</p>\r\n" +
	"--INNER--\r\n" +
	"--OUTER\r\n" +
	"Content-Type: image/png\r\n" +
	"Content-Disposition: attachment; filename=\"image.png\"\r\n" +
	"\r\n" +
	"PNG-DATA\r\n" +
	"--OUTER--\r\n"

// testMailInlineImage carries a named inline image next to the HTML body.
const testMailInlineImage = "MIME-Version: 1.0\r\n" +
	"From: sender@example.com\r\n" +
	"Subject: Inline\r\n" +
	"Content-Type: multipart/related; boundary=\"REL\"\r\n" +
	"\r\n" +
	"--REL\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<img src=\"cid:logo\">\r\n" +
	"--REL\r\n" +
	"Content-Type: image/gif; name=\"logo.gif\"\r\n" +
	"Content-Disposition: inline\r\n" +
	"Content-Id: <logo>\r\n" +
	"\r\n" +
	"GIF89a\r\n" +
	"--REL--\r\n"

// testMailGBKFilename names its attachment with an RFC 2047 GBK word.
const testMailGBKFilename = "MIME-Version: 1.0\r\n" +
	"From: sender@example.com\r\n" +
	"Subject: =?GBK?B?uL28/g==?=\r\n" +
	"Content-Type: multipart/mixed; boundary=\"GBK\"\r\n" +
	"\r\n" +
	"--GBK\r\n" +
	"Content-Type: application/octet-stream\r\n" +
	"Content-Disposition: attachment; filename=\"=?GBK?B?uL28/i50eHQ=?=\"\r\n" +
	"\r\n" +
	"data\r\n" +
	"--GBK--\r\n"
