package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/imghost"
	"github.com/sagarc03/imghost/database"
	imghosthttp "github.com/sagarc03/imghost/http"
	"github.com/sagarc03/imghost/keybackend"
	"github.com/sagarc03/imghost/storage"
)

// DevTokenSecret is the default API key signing secret. It is fine for local
// development and must be replaced in production.
const DevTokenSecret = "imghost-dev-secret-change-me"

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for imghost.
type Config struct {
	Env      string                 `mapstructure:"env" validate:"required,oneof=dev prod"`
	Server   ServerConfig           `mapstructure:"server"`
	Service  ServiceConfig          `mapstructure:"service"`
	Database database.Config        `mapstructure:"database"`
	Storage  StorageConfig          `mapstructure:"storage"`
	Auth     AuthConfig             `mapstructure:"auth"`
	CORS     imghosthttp.CORSConfig `mapstructure:"cors"`
	Metrics  MetricsConfig          `mapstructure:"metrics"`
	Log      LogConfig              `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
	// BaseURL is the externally reachable address of this server. The
	// filesystem store builds its object URLs from it.
	BaseURL         string        `mapstructure:"base_url" validate:"omitempty,url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
	MaxBodySize     int64         `mapstructure:"max_body_size" validate:"min=0"`
	MaxUploadSize   int64         `mapstructure:"max_upload_size" validate:"min=0"`
}

// ServiceConfig holds upload broker configuration.
type ServiceConfig struct {
	CallTimeout    time.Duration `mapstructure:"call_timeout" validate:"min=0"`
	UploadTTL      time.Duration `mapstructure:"upload_ttl" validate:"min=0"`
	DownloadTTL    time.Duration `mapstructure:"download_ttl" validate:"min=0"`
	MaxNameLength  int           `mapstructure:"max_name_length" validate:"min=0"`
	GalleryLimit   int           `mapstructure:"gallery_default_limit" validate:"min=0"`
	GalleryMax     int           `mapstructure:"gallery_max_limit" validate:"min=0"`
	FinalizePolicy string        `mapstructure:"finalize_policy" validate:"required,oneof=overwrite reject"`
	Visibility     string        `mapstructure:"visibility" validate:"required,oneof=private public"`
	SignPrivate    bool          `mapstructure:"sign_private"`
}

// ServiceConfig converts the section into imghost.ServiceConfig. Tag
// validation has already checked the enum values.
func (c ServiceConfig) ServiceConfig() imghost.ServiceConfig {
	return imghost.ServiceConfig{
		UploadTTL:      c.UploadTTL,
		DownloadTTL:    c.DownloadTTL,
		CallTimeout:    c.CallTimeout,
		MaxNameLength:  c.MaxNameLength,
		GalleryLimit:   c.GalleryLimit,
		FinalizePolicy: imghost.FinalizePolicy(c.FinalizePolicy),
		Visibility:     imghost.Visibility(c.Visibility),
		SignPrivate:    c.SignPrivate,
	}
}

// StorageConfig holds object store configuration.
type StorageConfig struct {
	Type          string                `mapstructure:"type" validate:"required,oneof=s3 minio filesystem"`
	Bucket        string                `mapstructure:"bucket" validate:"required_unless=Type filesystem"`
	Region        string                `mapstructure:"region"`
	Endpoint      string                `mapstructure:"endpoint" validate:"required_if=Type minio"`
	AccessKey     string                `mapstructure:"access_key"`
	SecretKey     string                `mapstructure:"secret_key"`
	UseSSL        bool                  `mapstructure:"use_ssl"`
	UsePathStyle  bool                  `mapstructure:"use_path_style"`
	PublicBaseURL string                `mapstructure:"public_base_url" validate:"omitempty,url"`
	EnsureBucket  bool                  `mapstructure:"ensure_bucket"`
	PublicRead    bool                  `mapstructure:"public_read"`
	Path          string                `mapstructure:"path" validate:"required_if=Type filesystem"`
	Keys          keybackend.KeysConfig `mapstructure:"keys"`
}

// StorageConfig builds the storage.Config for this section. keys may be nil
// unless Type is filesystem.
func (c StorageConfig) StorageConfig(baseURL string, keys *keybackend.MapSecretStore) storage.Config {
	return storage.Config{
		Type:          c.Type,
		Bucket:        c.Bucket,
		Region:        c.Region,
		Endpoint:      c.Endpoint,
		AccessKey:     c.AccessKey,
		SecretKey:     c.SecretKey,
		UseSSL:        c.UseSSL,
		UsePathStyle:  c.UsePathStyle,
		PublicBaseURL: c.PublicBaseURL,
		EnsureBucket:  c.EnsureBucket,
		PublicRead:    c.PublicRead,
		Path:          c.Path,
		BaseURL:       baseURL,
		Keys:          keys,
	}
}

// AuthConfig holds API key configuration.
type AuthConfig struct {
	TokenSecret string        `mapstructure:"token_secret" validate:"required,min=16"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" validate:"min=0"`
	// DevKeys mounts the unauthenticated key issuing route.
	DevKeys bool `mapstructure:"dev_keys"`
}

// MetricsConfig toggles the /metrics route.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"storage-type": "storage.type",
	"storage-path": "storage.path",
	"bucket":       "storage.bucket",
	"port":         "server.port",
	"base-url":     "server.base_url",
	"log-level":    "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance. Every key
// gets a default so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 5708)
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_size", 1<<20)
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit

	v.SetDefault("service.call_timeout", 10*time.Second)
	v.SetDefault("service.upload_ttl", time.Hour)
	v.SetDefault("service.download_ttl", 15*time.Minute)
	v.SetDefault("service.max_name_length", imghost.DefaultMaxNameLength)
	v.SetDefault("service.gallery_default_limit", imghost.DefaultGalleryLimit)
	v.SetDefault("service.gallery_max_limit", 200)
	v.SetDefault("service.finalize_policy", string(imghost.FinalizeOverwrite))
	v.SetDefault("service.visibility", string(imghost.VisibilityPrivate))
	v.SetDefault("service.sign_private", true)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "imghost.db")
	v.SetDefault("database.tables.records", "images")
	v.SetDefault("database.tables.owners", "users")
	v.SetDefault("database.key_prefix", "")

	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.use_path_style", false)
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.ensure_bucket", false)
	v.SetDefault("storage.public_read", false)
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.keys.file", "")

	v.SetDefault("auth.token_secret", DevTokenSecret)
	v.SetDefault("auth.token_ttl", 0) // keys never expire
	v.SetDefault("auth.dev_keys", false)

	v.SetDefault("cors.enabled", false)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("log.level", "info")
}

// loadDotEnv copies a .env file from the working directory into the
// process environment. Variables already set win. A missing file is fine.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error reading .env file", "err", err)
	}
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env (.env included) >
// config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	loadDotEnv()
	v.SetEnvPrefix("IMGHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := cfg.Database.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if cfg.Env == "prod" && cfg.Auth.TokenSecret == DevTokenSecret {
		return nil, errors.New("validate config: auth.token_secret must be set in prod")
	}

	return &cfg, nil
}
