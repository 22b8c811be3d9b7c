// Package credential keeps the remote sync token in the system keyring.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "inbox-triage"

// TokenEnv overrides the keyring when set.
const TokenEnv = "INBOX_SYNC_TOKEN"

// ErrNoToken is returned when neither the environment nor the keyring
// holds a sync token.
var ErrNoToken = errors.New("no sync token configured")

// Vault reads and writes secrets under the application's service name.
type Vault struct {
	ring   keyring.Keyring
	getenv func(string) string
}

// Open opens the system keyring, falling back to an encrypted file under
// configDir when no native backend is available.
func Open(configDir string) (*Vault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(configDir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("inbox-triage-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewVault(ring), nil
}

// NewVault wraps an already opened keyring.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring, getenv: os.Getenv}
}

// SyncToken returns the bearer token for the sync function. The
// environment variable wins over the keyring entry stored under key.
func (v *Vault) SyncToken(key string) (string, error) {
	if tok := strings.TrimSpace(v.getenv(TokenEnv)); tok != "" {
		return tok, nil
	}
	item, err := v.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	if len(item.Data) == 0 {
		return "", ErrNoToken
	}
	return string(item.Data), nil
}

// SetSyncToken stores the bearer token under key.
func (v *Vault) SetSyncToken(key, token string) error {
	err := v.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(token),
		Label: "inbox-triage sync token",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry stored under key.
func (v *Vault) Delete(key string) error {
	if err := v.ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
