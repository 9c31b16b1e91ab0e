package keybackend_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/imghost/keybackend"
)

func TestMapSecretStore_Lookup(t *testing.T) {
	tests := []struct {
		name      string
		keys      map[string]string
		accessKey string
		wantKey   string
		wantErr   error
	}{
		{
			name:      "returns secret key when access key exists",
			keys:      map[string]string{"access1": "secret1", "access2": "secret2"},
			accessKey: "access1",
			wantKey:   "secret1",
		},
		{
			name:      "returns ErrKeyNotFound when access key does not exist",
			keys:      map[string]string{"access1": "secret1"},
			accessKey: "nonexistent",
			wantErr:   keybackend.ErrKeyNotFound,
		},
		{
			name:      "returns ErrKeyNotFound for nil store",
			keys:      nil,
			accessKey: "anykey",
			wantErr:   keybackend.ErrKeyNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := keybackend.NewMapSecretStore(tt.keys)
			gotKey, err := store.Lookup(tt.accessKey)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, gotKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, gotKey)
		})
	}
}

func TestMapSecretStore_SigningKeyEmpty(t *testing.T) {
	_, err := keybackend.NewMapSecretStore(map[string]string{"a": "b"}).SigningKey()
	assert.ErrorIs(t, err, keybackend.ErrNoKeys)
}

func TestNewSecretStore(t *testing.T) {
	t.Parallel()

	jsonFile := writeKeysFile(t, "keys.json", `[
		{"access_key": "FILE_KEY", "secret_key": "file_secret"},
		{"access_key": "DUP", "secret_key": "file_wins"},
		{"access_key": "", "secret_key": "skipped"}
	]`)

	tests := []struct {
		name        string
		cfg         keybackend.KeysConfig
		want        map[string]string
		missing     []string
		wantSigning keybackend.KeyPair
	}{
		{
			name: "inline only",
			cfg: keybackend.KeysConfig{Inline: []keybackend.KeyPair{
				{AccessKey: "KEY1", SecretKey: "secret1"},
				{AccessKey: "KEY2", SecretKey: "secret2"},
			}},
			want:        map[string]string{"KEY1": "secret1", "KEY2": "secret2"},
			wantSigning: keybackend.KeyPair{AccessKey: "KEY1", SecretKey: "secret1"},
		},
		{
			name:        "file only",
			cfg:         keybackend.KeysConfig{File: jsonFile},
			want:        map[string]string{"FILE_KEY": "file_secret", "DUP": "file_wins"},
			missing:     []string{""},
			wantSigning: keybackend.KeyPair{AccessKey: "FILE_KEY", SecretKey: "file_secret"},
		},
		{
			name: "file overrides inline",
			cfg: keybackend.KeysConfig{
				Inline: []keybackend.KeyPair{{AccessKey: "DUP", SecretKey: "inline_loses"}},
				File:   jsonFile,
			},
			want:        map[string]string{"DUP": "file_wins", "FILE_KEY": "file_secret"},
			wantSigning: keybackend.KeyPair{AccessKey: "DUP", SecretKey: "file_wins"},
		},
		{
			name: "skips half-empty inline pairs",
			cfg: keybackend.KeysConfig{Inline: []keybackend.KeyPair{
				{AccessKey: "", SecretKey: "secret1"},
				{AccessKey: "KEY2", SecretKey: ""},
				{AccessKey: "VALID", SecretKey: "valid_secret"},
			}},
			want:        map[string]string{"VALID": "valid_secret"},
			missing:     []string{"", "KEY2"},
			wantSigning: keybackend.KeyPair{AccessKey: "VALID", SecretKey: "valid_secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, err := keybackend.NewSecretStore(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), store.Len())

			for k, v := range tt.want {
				got, err := store.Lookup(k)
				require.NoError(t, err, k)
				assert.Equal(t, v, got, k)
			}
			for _, k := range tt.missing {
				_, err := store.Lookup(k)
				assert.ErrorIs(t, err, keybackend.ErrKeyNotFound)
			}

			signing, err := store.SigningKey()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSigning, signing)
		})
	}
}

func TestNewSecretStore_FileErrors(t *testing.T) {
	t.Parallel()

	_, err := keybackend.NewSecretStore(keybackend.KeysConfig{File: "/nonexistent/path/keys.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read keys file")

	bad := writeKeysFile(t, "keys.json", `{"access_key": "key", "secret_key": "secret"}`)
	_, err = keybackend.NewSecretStore(keybackend.KeysConfig{File: bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse keys file")
}

func TestLoadKeysFile_YAML(t *testing.T) {
	t.Parallel()

	path := writeKeysFile(t, "keys.yaml", `
- access_key: YAML_KEY
  secret_key: yaml/secret+chars=
- access_key: OTHER
  secret_key: ""
`)

	pairs, err := keybackend.LoadKeysFile(path)
	require.NoError(t, err)
	assert.Equal(t, []keybackend.KeyPair{{AccessKey: "YAML_KEY", SecretKey: "yaml/secret+chars="}}, pairs)
}

func writeKeysFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
