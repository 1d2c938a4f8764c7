package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jgoulah/plantlog/internal/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the day log over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config, 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, envOptions{publish: true}, func(ctx context.Context, env *appEnv) error {
		app := api.NewApp(env.logger)
		api.RegisterRoutes(app, env.orch)

		port := env.cfg.GetPort()
		if servePort != 0 {
			port = servePort
		}
		addr := fmt.Sprintf(":%d", port)

		errCh := make(chan error, 1)
		go func() {
			env.logger.Info("listening", zap.String("addr", addr))
			errCh <- app.Listen(addr)
		}()

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-errCh:
			return fmt.Errorf("server stopped: %w", err)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			env.logger.Warn("error during shutdown", zap.Error(err))
		}
		return nil
	})
}
