// Package emailtest runs an in-memory IMAP server behind a self-signed TLS
// listener for tests of packages that talk to a mailbox.
package emailtest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
)

const (
	User     = "testuser@example.com"
	Password = "testpass"
)

// Server is a running test server.
type Server struct {
	Addr string
	Host string
	Port int

	t *testing.T
}

// NewServer starts a server with one user owning an empty INBOX. It is
// shut down by t.Cleanup.
func NewServer(t *testing.T) *Server {
	t.Helper()

	memSrv := imapmemserver.New()
	user := imapmemserver.NewUser(User, Password)
	if err := user.Create("INBOX", nil); err != nil {
		t.Fatal(err)
	}
	memSrv.AddUser(user)

	srv := imapserver.New(&imapserver.Options{
		NewSession: func(_ *imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return memSrv.NewSession(), nil, nil
		},
		InsecureAuth: true,
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
		},
	})

	ln, err := tls.Listen("tcp", "127.0.0.1:0", TLSConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	addr := ln.Addr().String()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	return &Server{Addr: addr, Host: host, Port: port, t: t}
}

// Append stores raw messages in INBOX without any flags.
func (s *Server) Append(raws ...string) {
	s.t.Helper()
	c := s.dial()
	defer c.Close()

	for _, raw := range raws {
		cmd := c.Append("INBOX", int64(len(raw)), nil)
		if _, err := cmd.Write([]byte(raw)); err != nil {
			s.t.Fatal(err)
		}
		if err := cmd.Close(); err != nil {
			s.t.Fatal(err)
		}
		if _, err := cmd.Wait(); err != nil {
			s.t.Fatal(err)
		}
	}
}

// Seen returns the UIDs in INBOX that carry \Seen.
func (s *Server) Seen() []imap.UID {
	s.t.Helper()
	c := s.dial()
	defer c.Close()

	if _, err := c.Select("INBOX", &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		s.t.Fatal(err)
	}
	data, err := c.UIDSearch(&imap.SearchCriteria{Flag: []imap.Flag{imap.FlagSeen}}, nil).Wait()
	if err != nil {
		s.t.Fatal(err)
	}
	return data.AllUIDs()
}

func (s *Server) dial() *imapclient.Client {
	s.t.Helper()
	conn, err := tls.Dial("tcp", s.Addr, &tls.Config{InsecureSkipVerify: true})
	if err != nil {
		s.t.Fatal(err)
	}
	c := imapclient.New(conn, nil)
	if err := c.Login(User, Password).Wait(); err != nil {
		s.t.Fatal(err)
	}
	return c
}

// TLSConfig generates a self-signed server certificate.
func TLSConfig(t *testing.T) *tls.Config {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{certDER},
			PrivateKey:  key,
		}},
	}
}

// Message builds a multipart/mixed message with one attachment per entry
// of files (filename to content). An empty filename produces an unnamed
// attachment.
func Message(subject string, files ...File) string {
	const boundary = "ATTACHFETCHBOUNDARY"
	raw := "MIME-Version: 1.0\r\n" +
		"From: sender@example.com\r\n" +
		"To: " + User + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Date: Mon, 10 Feb 2026 08:00:00 +0000\r\n" +
		"Content-Type: multipart/mixed; boundary=\"" + boundary + "\"\r\n" +
		"\r\n" +
		"--" + boundary + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"See attached.\r\n"
	for _, f := range files {
		disp := "attachment"
		if f.Name != "" {
			disp += "; filename=\"" + f.Name + "\""
		}
		raw += "--" + boundary + "\r\n" +
			"Content-Type: application/octet-stream\r\n" +
			"Content-Disposition: " + disp + "\r\n" +
			"\r\n" +
			f.Content + "\r\n"
	}
	return raw + "--" + boundary + "--\r\n"
}

// File is one attachment of a generated message.
type File struct {
	Name    string
	Content string
}
