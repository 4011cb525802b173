// Package credentials keeps REST tokens and database passwords in the OS keyring.
package credentials

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zalando/go-keyring"
)

const serviceName = "lazygrid"

// ErrNotFound is returned when no secret is stored under a key
var ErrNotFound = errors.New("credential not found")

// SecretError wraps a keyring failure other than a missing key
type SecretError struct {
	Op  string
	Key string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("failed to %s %s in keyring: %v", e.Op, e.Key, e.Err)
}

func (e *SecretError) Unwrap() error {
	return e.Err
}

// Store reads and writes secrets for one keyring service
type Store struct {
	service string
}

// NewStore returns a store for the lazygrid keyring service
func NewStore() *Store {
	return &Store{service: serviceName}
}

// SaveToken stores a bearer token for every URL sharing baseURL's origin
func (s *Store) SaveToken(baseURL, token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	key, err := tokenKey(baseURL)
	if err != nil {
		return err
	}
	return s.set(key, token)
}

// Token returns the bearer token stored for baseURL's origin
func (s *Store) Token(baseURL string) (string, error) {
	key, err := tokenKey(baseURL)
	if err != nil {
		return "", err
	}
	return s.get(key)
}

// DeleteToken removes the token for baseURL's origin. A missing token is not an error.
func (s *Store) DeleteToken(baseURL string) error {
	key, err := tokenKey(baseURL)
	if err != nil {
		return err
	}
	return s.delete(key)
}

// SavePassword stores a database password. Empty passwords are not saved.
func (s *Store) SavePassword(host string, port int, database, user, password string) error {
	if password == "" {
		return nil
	}
	return s.set(passwordKey(host, port, database, user), password)
}

// Password returns a stored database password
func (s *Store) Password(host string, port int, database, user string) (string, error) {
	return s.get(passwordKey(host, port, database, user))
}

// DeletePassword removes a database password. A missing password is not an error.
func (s *Store) DeletePassword(host string, port int, database, user string) error {
	return s.delete(passwordKey(host, port, database, user))
}

func (s *Store) set(key, secret string) error {
	if err := keyring.Set(s.service, key, secret); err != nil {
		return &SecretError{Op: "save", Key: key, Err: err}
	}
	return nil
}

func (s *Store) get(key string) (string, error) {
	secret, err := keyring.Get(s.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", &SecretError{Op: "read", Key: key, Err: err}
	}
	return secret, nil
}

func (s *Store) delete(key string) error {
	err := keyring.Delete(s.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return &SecretError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// tokenKey is "token:scheme://host[:port]"
func tokenKey(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("URL %q must be absolute", baseURL)
	}
	return "token:" + strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}

// passwordKey is "host:port:database:user"
func passwordKey(host string, port int, database, user string) string {
	return fmt.Sprintf("%s:%d:%s:%s", host, port, database, user)
}
