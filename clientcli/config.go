package clientcli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the default server endpoint URL.
const DefaultEndpoint = "http://localhost:5708"

// Environment variables read by the client.
const (
	EnvEndpoint = "IMGHOST_ENDPOINT"
	EnvAPIKey   = "IMGHOST_API_KEY"
	EnvProfile  = "IMGHOST_PROFILE"
	EnvConfig   = "IMGHOST_CONFIG"
)

// Profile is a saved server plus the API key issued by it.
type Profile struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key,omitempty"`
	// UID is informational; the server derives the owner from the key.
	UID     string `yaml:"uid,omitempty"`
	Default bool   `yaml:"default,omitempty"`
}

// Config returns the connection settings stored in the profile.
func (p Profile) Config() *Config {
	return &Config{Endpoint: p.Endpoint, APIKey: p.APIKey}
}

// ConfigFile is the on-disk list of profiles.
type ConfigFile struct {
	Profiles []Profile `yaml:"profiles"`
}

func (c *ConfigFile) index(name string) int {
	return slices.IndexFunc(c.Profiles, func(p Profile) bool { return p.Name == name })
}

// Profile returns the named profile. An empty name selects the profile
// marked default, or the first one.
func (c *ConfigFile) Profile(name string) (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	i := slices.IndexFunc(c.Profiles, func(p Profile) bool { return p.Default })
	if name != "" {
		i = c.index(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
		}
	}
	if i < 0 {
		i = 0
	}
	return &c.Profiles[i], nil
}

// Put inserts p or replaces the profile with the same name, and reports
// whether it was new. A replaced profile keeps its default flag, and the
// first profile stored becomes the default.
func (c *ConfigFile) Put(p Profile) bool {
	if i := c.index(p.Name); i >= 0 {
		p.Default = p.Default || c.Profiles[i].Default
		c.Profiles[i] = p
		return false
	}

	if len(c.Profiles) == 0 {
		p.Default = true
	}
	c.Profiles = append(c.Profiles, p)
	return true
}

// Remove deletes the named profile.
func (c *ConfigFile) Remove(name string) error {
	i := c.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	c.Profiles = slices.Delete(c.Profiles, i, i+1)
	return nil
}

// SetDefault marks the named profile as the only default.
func (c *ConfigFile) SetDefault(name string) error {
	if c.index(name) < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	for i := range c.Profiles {
		c.Profiles[i].Default = c.Profiles[i].Name == name
	}
	return nil
}

// Save writes the file with owner-only permissions. The content goes to a
// temporary file first so a failed write never truncates saved keys.
func (c *ConfigFile) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}

// LoadConfigFile reads the profile file at path. A missing file is
// reported with an error wrapping os.ErrNotExist.
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(filepath.Clean(path)) //#nosec G304 -- path is user-provided config file
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

// ConfigPath returns explicit if set, then $IMGHOST_CONFIG, then
// ~/.imghost/config.yaml.
func ConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".imghost", "config.yaml")
}

// Config holds resolved client configuration for a single server.
type Config struct {
	Endpoint string
	APIKey   string
}

// WithDefaults returns a copy with DefaultEndpoint filled in.
func (c *Config) WithDefaults() *Config {
	cfg := *c
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &cfg
}

// ValidateWithAuth checks that an API key is set.
func (c *Config) ValidateWithAuth() error {
	if c.APIKey == "" {
		return ErrAPIKeyRequired
	}
	return nil
}

// Overrides are values chosen on the command line. Empty fields fall back
// to the environment and then to the profile.
type Overrides struct {
	Profile  string
	Endpoint string
	APIKey   string
}

// ProfileName returns the requested profile name, or $IMGHOST_PROFILE.
func (o Overrides) ProfileName() string {
	if o.Profile != "" {
		return o.Profile
	}
	return os.Getenv(EnvProfile)
}

// Resolve layers the selected profile, then IMGHOST_ENDPOINT and
// IMGHOST_API_KEY, then o. file may be nil when no profile file exists. An
// unknown profile is an error only when one was named.
func Resolve(file *ConfigFile, o Overrides) (*Config, error) {
	cfg := &Config{}

	name := o.ProfileName()
	if file != nil {
		p, err := file.Profile(name)
		switch {
		case err == nil:
			cfg = p.Config()
		case name != "":
			return nil, err
		}
	} else if name != "" {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}

	for _, layer := range []Config{
		{Endpoint: os.Getenv(EnvEndpoint), APIKey: os.Getenv(EnvAPIKey)},
		{Endpoint: o.Endpoint, APIKey: o.APIKey},
	} {
		if layer.Endpoint != "" {
			cfg.Endpoint = layer.Endpoint
		}
		if layer.APIKey != "" {
			cfg.APIKey = layer.APIKey
		}
	}
	return cfg, nil
}
