// Package credential keeps mailbox passwords in the system keyring so they
// need not be written to the config file.
package credential

import (
	"github.com/99designs/keyring"
	"github.com/pkg/errors"
)

const serviceName = "attachfetch"

// ErrNotFound is returned when no password is stored for an account.
var ErrNotFound = errors.New("no stored password")

// Store reads and writes account passwords.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the first available system keyring.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/attachfetch/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("attachfetch-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening keyring")
	}
	return NewStore(ring), nil
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Password returns the password stored for account.
func (s *Store) Password(account string) (string, error) {
	item, err := s.ring.Get(account)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", errors.Wrapf(ErrNotFound, "account %q", account)
	}
	if err != nil {
		return "", errors.Wrapf(err, "getting credential %q", account)
	}
	return string(item.Data), nil
}

// SetPassword stores password for account, replacing any previous value.
func (s *Store) SetPassword(account, password string) error {
	err := s.ring.Set(keyring.Item{
		Key:   account,
		Data:  []byte(password),
		Label: serviceName + ": " + account,
	})
	if err != nil {
		return errors.Wrapf(err, "setting credential %q", account)
	}
	return nil
}

// DeletePassword removes the stored password. Removing a missing entry is
// not an error.
func (s *Store) DeletePassword(account string) error {
	err := s.ring.Remove(account)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return errors.Wrapf(err, "deleting credential %q", account)
	}
	return nil
}
