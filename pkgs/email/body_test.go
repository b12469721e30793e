package email

import (
	"errors"
	"strings"
	"testing"
)

func TestParse_PlainText(t *testing.T) {
	msg, err := Parse(strings.NewReader(testMailRFC822))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if msg.Subject != "Test Subject" {
		t.Errorf("unexpected subject: %q", msg.Subject)
	}
	if len(msg.Attachments) != 0 {
		t.Errorf("expected no attachments, got %d", len(msg.Attachments))
	}
	if msg.Date.IsZero() {
		t.Error("expected Date to be parsed")
	}
}

func TestParse_MultipartMixed(t *testing.T) {
	msg, err := Parse(strings.NewReader(testMailMultipart))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Filename != "test.bin" {
		t.Errorf("unexpected filename: %q", att.Filename)
	}
	if att.ContentType != "application/octet-stream" {
		t.Errorf("unexpected content-type: %q", att.ContentType)
	}
	if string(att.Data) != "BINARYDATA" {
		t.Errorf("unexpected data: %q", att.Data)
	}
	if !strings.Contains(msg.From, "sender@example.com") {
		t.Errorf("unexpected from: %q", msg.From)
	}
}

func TestParse_NestedMultipart(t *testing.T) {
	msg, err := Parse(strings.NewReader(testMailNested))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("text parts must not become attachments, got %d", len(msg.Attachments))
	}
	if msg.Attachments[0].Filename != "image.png" {
		t.Errorf("unexpected filename: %q", msg.Attachments[0].Filename)
	}
}

func TestParse_InlineImage(t *testing.T) {
	msg, err := Parse(strings.NewReader(testMailInlineImage))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected inline image as attachment, got %d", len(msg.Attachments))
	}
	if msg.Attachments[0].Filename != "logo.gif" {
		t.Errorf("unexpected filename: %q", msg.Attachments[0].Filename)
	}
}

func TestParse_Unnamed(t *testing.T) {
	raw := "MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"B1\"\r\n" +
		"\r\n" +
		"--B1\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment\r\n\r\n" +
		"PDF-BYTES\r\n" +
		"--B1--\r\n"

	msg, err := Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(msg.Attachments))
	}
	if msg.Attachments[0].Filename != "" {
		t.Errorf("expected empty filename, got %q", msg.Attachments[0].Filename)
	}
}

func TestParse_GBKFilename(t *testing.T) {
	msg, err := Parse(strings.NewReader(testMailGBKFilename))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if msg.Subject != "附件" {
		t.Errorf("unexpected subject: %q", msg.Subject)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(msg.Attachments))
	}
	if msg.Attachments[0].Filename != "附件.txt" {
		t.Errorf("unexpected filename: %q", msg.Attachments[0].Filename)
	}
}

func TestParseRaw_KeepsIdentifiers(t *testing.T) {
	msg, err := ParseRaw(RawMessage{SeqNum: 4, UID: 40, Body: []byte(testMailMultipart)})
	if err != nil {
		t.Fatalf("ParseRaw() error: %v", err)
	}
	if msg.SeqNum != 4 || msg.UID != 40 {
		t.Errorf("identifiers lost: seq=%d uid=%d", msg.SeqNum, msg.UID)
	}
}

func TestParseRaw_Broken(t *testing.T) {
	raw := "Content-Type: multipart/mixed; boundary=\"B1\"\r\n" +
		"\r\n" +
		"--B1\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"a.pdf\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n\r\n" +
		"!!!not base64!!!\r\n" +
		"--B1--\r\n"

	_, err := ParseRaw(RawMessage{SeqNum: 7, Body: []byte(raw)})
	if err == nil {
		t.Fatal("expected parse error")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) || parseErr.SeqNum != 7 {
		t.Errorf("expected *ParseError for #7, got %T: %v", err, err)
	}
}
