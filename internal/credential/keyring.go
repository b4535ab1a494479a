package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "studytrack"

// ErrNoSession is returned when no session has been stored for a user.
var ErrNoSession = errors.New("no stored session")

// Session holds the cookies that authenticate a user against the API.
type Session struct {
	SessionID string
	CSRFToken string
}

// Opener opens the keyring backing the package-level helpers. Tests
// replace it with an in-memory ring.
var Opener = openKeyring

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/studytrack/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("studytrack-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

func sessionKey(userID string) string { return "session:" + userID }
func csrfKey(userID string) string { return "csrf:" + userID }

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := Opener()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := Opener()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Label: serviceName + " " + key,
		Data:  []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring. A missing
// key is not an error.
func Delete(key string) error {
	ring, err := Opener()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// SaveSession stores userID's session cookies.
func SaveSession(userID string, s Session) error {
	if userID == "" {
		return errors.New("saving session: empty user id")
	}
	if err := Set(sessionKey(userID), s.SessionID); err != nil {
		return err
	}
	return Set(csrfKey(userID), s.CSRFToken)
}

// LoadSession returns userID's session cookies, or ErrNoSession when
// none are stored. A missing CSRF token is tolerated.
func LoadSession(userID string) (Session, error) {
	id, err := Get(sessionKey(userID))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}

	token, err := Get(csrfKey(userID))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return Session{}, err
	}

	return Session{SessionID: id, CSRFToken: token}, nil
}

// ClearSession removes userID's session cookies.
func ClearSession(userID string) error {
	return errors.Join(Delete(sessionKey(userID)), Delete(csrfKey(userID)))
}
