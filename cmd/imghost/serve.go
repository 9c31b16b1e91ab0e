package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/imghost/config"
	imghosthttp "github.com/sagarc03/imghost/http"
	"github.com/sagarc03/imghost/identity"
	"github.com/sagarc03/imghost/metrics"
	"github.com/sagarc03/imghost/sigv4"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the imghost HTTP server.

The metadata index is migrated on start. With the filesystem store the
server also serves presigned /objects URLs itself.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port")
	serveCmd.Flags().String("base-url", "", "externally reachable server URL (default: http://localhost:<port>)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	service, err := b.service(cfg)
	if err != nil {
		return err
	}

	issuer, err := identity.NewIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("create key issuer: %w", err)
	}
	if cfg.Auth.TokenSecret == config.DevTokenSecret {
		slog.Warn("using the development token secret, set auth.token_secret")
	}

	handlerConfig := imghosthttp.HandlerConfig{
		CORS:             cfg.CORS,
		DevKeys:          cfg.Auth.DevKeys,
		DefaultListLimit: cfg.Service.GalleryLimit,
		MaxListLimit:     cfg.Service.GalleryMax,
		MaxBodyBytes:     cfg.Server.MaxBodySize,
		MaxUploadBytes:   cfg.Server.MaxUploadSize,
	}
	if cfg.Metrics.Enabled {
		handlerConfig.Metrics = metrics.New(nil)
	}
	if b.objects != nil {
		handlerConfig.Objects = b.objects
		handlerConfig.ObjectVerifier = sigv4.NewVerifier(regionOrDefault(cfg.Storage.Region), "s3", b.keys)
		handlerConfig.PublicObjectReads = cfg.Storage.PublicRead
	}

	handler := imghosthttp.NewHandler(&handlerConfig, service, issuer)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"base_url", baseURL(cfg),
		"database", cfg.Database.Type,
		"storage", cfg.Storage.Type,
		"visibility", cfg.Service.Visibility,
		"dev_keys", cfg.Auth.DevKeys,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func regionOrDefault(region string) string {
	if region == "" {
		return "us-east-1"
	}
	return region
}
