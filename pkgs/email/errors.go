package email

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotConnected is returned by Session commands after Disconnect or
// before a successful Connect.
var ErrNotConnected = errors.New("not connected to mail server")

// AuthError reports a rejected login.
type AuthError struct {
	User string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.User, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError reports a failure to reach the server or complete the
// TLS handshake and greeting.
type NetworkError struct {
	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to connect to IMAP server %s: %v", e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError reports a failed IMAP command once the session is up.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("imap %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ParseError reports a message whose MIME structure could not be decoded.
type ParseError struct {
	SeqNum uint32
	Err    error
}

func (e *ParseError) Error() string {
	if e.SeqNum == 0 {
		return fmt.Sprintf("parse message: %v", e.Err)
	}
	return fmt.Sprintf("parse message #%d: %v", e.SeqNum, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsProtocolError reports whether err (or any error in its chain) is a
// ProtocolError.
func IsProtocolError(err error) bool {
	var protoErr *ProtocolError
	return errors.As(err, &protoErr)
}
