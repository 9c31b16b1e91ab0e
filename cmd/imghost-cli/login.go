package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/imghost/clientcli"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Get a development API key",
	Long: `Ask the server for a new owner and API key, and store the key in
the selected profile (created as "default" when none exist).

Only servers running with auth.dev_keys enabled answer this. Production
keys are issued by an operator with 'imghost issue-key'.

Examples:
  imghost-cli login
  imghost-cli login --profile local --endpoint http://localhost:5708`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, _ []string) error {
	configPath := getConfigPath()

	file, err := loadOrCreateConfig(configPath)
	if err != nil {
		return err
	}

	p := loginProfile(file)

	// The profile may not be saved yet, so resolve against it alone.
	resolved, err := clientcli.Resolve(
		&clientcli.ConfigFile{Profiles: []clientcli.Profile{p}},
		clientcli.Overrides{Profile: p.Name, Endpoint: endpoint},
	)
	if err != nil {
		return err
	}
	cfg := resolved.WithDefaults()

	client, err := clientcli.New(cfg)
	if err != nil {
		return err
	}

	result, err := client.Login(cmd.Context())
	if err != nil {
		return err
	}

	p.Endpoint = cfg.Endpoint
	p.APIKey = result.APIKey
	p.UID = result.UID

	if err := saveProfile(file, configPath, p); err != nil {
		return err
	}

	return getFormatter().FormatLogin(os.Stdout, result)
}

// loginProfile returns the selected profile, or a new one named after
// --profile (or "default").
func loginProfile(file *clientcli.ConfigFile) clientcli.Profile {
	name := overrides().ProfileName()

	if existing, err := file.Profile(name); err == nil {
		return *existing
	}
	if name == "" {
		name = "default"
	}
	return clientcli.Profile{Name: name}
}

func saveProfile(file *clientcli.ConfigFile, configPath string, p clientcli.Profile) error {
	file.Put(p)

	if err := file.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
