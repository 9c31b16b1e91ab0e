// Package config loads and validates imghost configuration.
//
// YAML files, a .env file, environment variables and CLI flags are merged
// with viper and checked with go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s), merged left-to-right
//  3. Environment variables (IMGHOST_ prefix), including a .env file
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// Config keys map to IMGHOST_ variables with dots replaced by underscores:
//   - server.port → IMGHOST_SERVER_PORT
//   - storage.type → IMGHOST_STORAGE_TYPE
//   - auth.token_secret → IMGHOST_AUTH_TOKEN_SECRET
//
// # Sections
//
//   - Server: port, base_url, timeouts and body limits
//   - Service: call timeout, URL lifetimes, finalize policy and visibility
//   - Database: redis, sqlite or postgres metadata index
//   - Storage: s3, minio or filesystem object store
//   - Auth: API key secret and lifetime
//   - CORS, Metrics, Log
//
// In prod the default auth.token_secret is rejected.
package config
