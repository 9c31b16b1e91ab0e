package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/imghost/clientcli"
)

var (
	version = "dev"

	cfgFile    string
	profile    string
	endpoint   string
	apiKey     string
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:     "imghost-cli",
	Version: version,
	Short:   "Client for the imghost image broker",
	Long: `imghost-cli uploads images to an imghost server and manages your
gallery.

Uploads go straight to the object store through presigned URLs; the
server only sees the request and completion calls.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.imghost/config.yaml, env: IMGHOST_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "profile name (default: the default profile, env: IMGHOST_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "server URL (default: http://localhost:5708, env: IMGHOST_ENDPOINT)")
	rootCmd.PersistentFlags().StringVarP(&apiKey, "api-key", "k", "", "API key (env: IMGHOST_API_KEY)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		_ = getFormatter().FormatError(os.Stderr, err)
		os.Exit(1)
	}
}

// getConfigPath returns the config file path: flag, then env, then default.
func getConfigPath() string {
	return clientcli.ConfigPath(cfgFile)
}

func overrides() clientcli.Overrides {
	return clientcli.Overrides{Profile: profile, Endpoint: endpoint, APIKey: apiKey}
}

// buildConfig resolves the profile, env vars, and flags (flags take
// precedence). The config file may be absent unless it or a profile was
// requested explicitly.
func buildConfig() (*clientcli.Config, error) {
	o := overrides()

	file, err := clientcli.LoadConfigFile(getConfigPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || cfgFile != "" || o.ProfileName() != "" {
			return nil, err
		}
		file = nil
	}

	return clientcli.Resolve(file, o)
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// getClient creates a client. requireKey rejects a missing API key up front.
func getClient(requireKey bool) (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	if requireKey {
		if err := cfg.ValidateWithAuth(); err != nil {
			return nil, err
		}
	}

	return clientcli.New(cfg)
}

// exitError is returned when we want to exit non-zero after the result
// has already been printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return ""
}
