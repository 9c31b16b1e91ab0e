package keybackend

import (
	"fmt"
)

// MapSecretStore resolves access keys from an in-memory map. The first
// configured pair doubles as the signing key.
type MapSecretStore struct {
	keys    map[string]string
	signing KeyPair
}

// NewMapSecretStore creates a store with the given access key to secret key
// mapping. Map iteration order is random, so a store built this way has no
// signing key; use NewSecretStore when one is needed.
func NewMapSecretStore(keys map[string]string) *MapSecretStore {
	return &MapSecretStore{keys: keys}
}

// Lookup retrieves the secret key for the given access key.
func (s *MapSecretStore) Lookup(accessKey string) (string, error) {
	secretKey, found := s.keys[accessKey]
	if !found {
		return "", fmt.Errorf("lookup %q: %w", accessKey, ErrKeyNotFound)
	}
	return secretKey, nil
}

// SigningKey returns the pair used to presign URLs.
func (s *MapSecretStore) SigningKey() (KeyPair, error) {
	if !s.signing.valid() {
		return KeyPair{}, ErrNoKeys
	}
	return s.signing, nil
}

// Len reports how many access keys the store holds.
func (s *MapSecretStore) Len() int {
	return len(s.keys)
}

// NewSecretStore builds a store from inline pairs and an optional keys
// file. File pairs override inline pairs with the same access key. The
// first inline pair, or the first file pair when there are none inline,
// becomes the signing key.
func NewSecretStore(cfg KeysConfig) (*MapSecretStore, error) {
	store := &MapSecretStore{keys: make(map[string]string)}

	add := func(p KeyPair) {
		if !p.valid() {
			return
		}
		if !store.signing.valid() {
			store.signing = p
		}
		store.keys[p.AccessKey] = p.SecretKey
	}

	for _, p := range cfg.Inline {
		add(p)
	}

	if cfg.File != "" {
		pairs, err := LoadKeysFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			add(p)
		}
	}

	// A file override of the signing key wins too.
	if store.signing.valid() {
		store.signing.SecretKey = store.keys[store.signing.AccessKey]
	}

	return store, nil
}
