package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centavo-app/centavo/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a centavo sync backend",
	Long: `Serve the sync backend: per-user document collections over HTTP,
authenticated with HS256 bearer tokens.

Storage is in-memory; this server is meant for development, testing, and
small self-hosted setups where the process stays up.

Example:
  centavo serve --jwt-secret s3cret
  centavo serve --jwt-secret s3cret --issue-token alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("jwt-secret")
		if secret == "" {
			secret = cfg.Server.JWTSecret
		}
		if secret == "" {
			return fmt.Errorf("a JWT secret is required (--jwt-secret or server.jwt_secret)")
		}

		if user, _ := cmd.Flags().GetString("issue-token"); user != "" {
			token, err := server.IssueToken(secret, user, 90*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		}

		srv := server.New(server.JWTConfig{HS256Secret: secret}, logger)
		httpServer := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      srv.Routes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.Server.Addr).Msg("sync backend listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("jwt-secret", "", "HS256 secret for token verification")
	serveCmd.Flags().String("issue-token", "", "print a bearer token for the given user id and exit")
	rootCmd.AddCommand(serveCmd)
}
