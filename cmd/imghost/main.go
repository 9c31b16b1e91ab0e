package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/imghost/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "imghost",
	Short:   "Image upload broker with presigned object store URLs",
	Long: `imghost hands out presigned upload URLs, records finished uploads
in a metadata index and serves per-owner galleries.

Image bytes never pass through the API: clients PUT them straight to the
object store (S3, MinIO, or the server's own filesystem store).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeatable; later files override earlier ones (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "metadata index: redis, sqlite, postgres (default: sqlite, env: IMGHOST_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "metadata index connection string (default: imghost.db, env: IMGHOST_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("storage-type", "", "object store: s3, minio, filesystem (default: filesystem, env: IMGHOST_STORAGE_TYPE)")
	rootCmd.PersistentFlags().String("storage-path", "", "filesystem store directory (default: ./data, env: IMGHOST_STORAGE_PATH)")
	rootCmd.PersistentFlags().String("bucket", "", "bucket for s3 and minio (env: IMGHOST_STORAGE_BUCKET)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn, error (default: info, env: IMGHOST_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
