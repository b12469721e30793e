package email

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-sasl"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultHost and DefaultPort are the fixed product endpoint.
	DefaultHost = "imap.qq.com"
	DefaultPort = 993

	// Inbox is the only mailbox this client works with.
	Inbox = "INBOX"

	defaultDialTimeout = 30 * time.Second
)

// SessionOptions holds the connection parameters of a Session.
type SessionOptions struct {
	Host string
	Port int

	// Plaintext disables TLS. Only used against local test servers.
	Plaintext bool

	DialTimeout time.Duration
	Logger      *zap.Logger
}

func (o SessionOptions) address() string {
	host := o.Host
	if host == "" {
		host = DefaultHost
	}
	port := o.Port
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Session owns one authenticated IMAP connection.
type Session struct {
	mu     sync.Mutex
	client *imapclient.Client
	user   string
	addr   string
	logger *zap.Logger
}

// Connect dials the server over TLS, waits for its greeting and
// authenticates. Certificate verification is disabled on purpose: the
// client must accept self-signed and otherwise invalid server
// certificates.
func Connect(ctx context.Context, creds Credentials, opts SessionOptions) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := opts.address()
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}

	var (
		conn net.Conn
		err  error
	)
	if opts.Plaintext {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		host, _, _ := net.SplitHostPort(addr)
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config: &tls.Config{
				ServerName:         host,
				InsecureSkipVerify: true,
			},
		}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, &NetworkError{Addr: addr, Err: err}
	}

	client := imapclient.New(conn, nil)
	if err := client.WaitGreeting(); err != nil {
		_ = client.Close()
		return nil, &NetworkError{Addr: addr, Err: errors.Wrap(err, "greeting")}
	}

	if err := authenticate(client, creds); err != nil {
		_ = client.Close()
		return nil, &AuthError{User: creds.Email, Err: err}
	}

	logger.Info("imap connection established", zap.String("address", addr), zap.String("user", creds.Email))

	return &Session{
		client: client,
		user:   creds.Email,
		addr:   addr,
		logger: logger,
	}, nil
}

func authenticate(client *imapclient.Client, creds Credentials) error {
	if client.Caps().Has(imap.AuthCap(sasl.Plain)) {
		return client.Authenticate(sasl.NewPlainClient("", creds.Email, creds.Password))
	}
	return client.Login(creds.Email, creds.Password).Wait()
}

// Connected reports whether the session still holds a connection.
func (s *Session) Connected() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

func (s *Session) conn() (*imapclient.Client, error) {
	if s == nil {
		return nil, ErrNotConnected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client, nil
}

// OpenMailbox selects a mailbox. readOnly maps to EXAMINE.
func (s *Session) OpenMailbox(name string, readOnly bool) (*imap.SelectData, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = Inbox
	}
	data, err := client.Select(name, &imap.SelectOptions{ReadOnly: readOnly}).Wait()
	if err != nil {
		return nil, &ProtocolError{Op: "select " + name, Err: err}
	}
	s.logger.Debug("mailbox opened", zap.String("mailbox", name), zap.Uint32("messages", data.NumMessages), zap.Bool("readOnly", readOnly))
	return data, nil
}

// SearchUnread returns the UIDs of every message without \Seen in the
// selected mailbox, in server order.
func (s *Session) SearchUnread() ([]imap.UID, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	data, err := client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return nil, &ProtocolError{Op: "search", Err: err}
	}
	return data.AllUIDs(), nil
}

// Fetch starts streaming the full source of the given messages. Bodies
// are requested with BODY.PEEK so fetching never sets \Seen.
func (s *Session) Fetch(ctx context.Context, uids []imap.UID) (*Stream, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, &ProtocolError{Op: "fetch", Err: errors.New("empty message set")}
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	cmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})

	stream := newStream(uids, s.logger)
	go stream.run(ctx, client, cmd)
	return stream, nil
}

// MarkRead adds \Seen to one message.
func (s *Session) MarkRead(uid imap.UID) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	cmd := client.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return &ProtocolError{Op: "store", Err: errors.Wrapf(err, "mark UID %d as seen", uid)}
	}
	return nil
}

// Disconnect logs out and closes the connection. It is safe to call on a
// nil or already closed session.
func (s *Session) Disconnect() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Logout().Wait(); err != nil {
		s.logger.Debug("imap logout failed", zap.Error(err))
	}
	if err := client.Close(); err != nil {
		s.logger.Debug("imap connection closed", zap.Error(err))
	}
	s.logger.Info("imap connection closed", zap.String("address", s.addr))
	return nil
}
