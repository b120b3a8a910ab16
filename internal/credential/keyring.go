package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "campusfind"

// Storage keys for the persisted session. The token and the identity
// blob are stored independently; there is no transactional guarantee
// across the two, so readers must treat partial state as absent.
const (
	// KeyToken holds the bearer token string.
	KeyToken = "auth_token"

	// KeyIdentity holds the JSON-serialized identity record.
	KeyIdentity = "user_data"
)

// Keyring is durable key-value storage for session credentials, backed
// by the system keyring.
type Keyring struct{}

// NewKeyring returns a keyring-backed credential store.
func NewKeyring() *Keyring {
	return &Keyring{}
}

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
		FileDir:                  "~/.config/campusfind/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("campusfind-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a stored value by key.
func (k *Keyring) Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a value by key.
func (k *Keyring) Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// TokenSource reads the current bearer token for outbound API
// requests. Absence is not an error to callers that treat an empty
// token as "send unauthenticated".
func (k *Keyring) TokenSource() (string, error) {
	return k.Get(KeyToken)
}

// Remove deletes the given keys. Keys that are already absent are
// skipped; the first hard failure aborts the sweep.
func (k *Keyring) Remove(keys ...string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := ring.Remove(key); err != nil {
			if err == keyring.ErrKeyNotFound {
				continue
			}
			return fmt.Errorf("deleting credential %q: %w", key, err)
		}
	}

	return nil
}
