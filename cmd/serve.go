package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/walletscan/internal/api"
	"github.com/khanhnv2901/walletscan/internal/application"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run walletscan as a JSON HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config.Serve

		// The API logs requests at info level even when the CLI is quiet.
		logger := appCtx.Logger
		if !verbose {
			prod, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			logger = prod
		}
		defer func() {
			_ = logger.Sync()
		}()

		services, err := application.NewContainer(appCtx.Config.Scan.settings(logger))
		if err != nil {
			return err
		}

		jobs := api.NewScanJobService(api.NewJobManager(), services.Pipeline, time.Duration(cfg.JobTimeoutSecs)*time.Second, logger)

		server := api.NewServer(api.Config{
			Scanner:     services.Pipeline,
			Health:      &healthAPIService{services: services},
			Jobs:        jobs,
			AuthToken:   cfg.AuthToken,
			Logger:      logger,
			CORSOrigins: cfg.CORSOrigins,
			RateLimit:   cfg.RateLimit,
			RateBurst:   cfg.RateBurst,
		})

		httpServer := &http.Server{
			Addr:              cfg.Addr,
			Handler:           server,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			// Synchronous scans fetch many scripts; leave room beyond one request timeout.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  120 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("%s API server listening on %s\n", colorInfo("→"), cfg.Addr)
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Printf("%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&cliConfig.Serve.Addr, "addr", cliConfig.Serve.Addr, "Address for the API server")
	f.StringVar(&cliConfig.Serve.AuthToken, "auth-token", "", "Optional shared secret for API requests (X-Auth-Token)")
	f.DurationVar(&cliConfig.Serve.ShutdownTimeout, "shutdown-timeout", cliConfig.Serve.ShutdownTimeout, "Graceful shutdown timeout")
	f.StringSliceVar(&cliConfig.Serve.CORSOrigins, "cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	f.IntVar(&cliConfig.Serve.RateLimit, "rate-limit", cliConfig.Serve.RateLimit, "Rate limit per IP (requests/second, 0 = disabled)")
	f.IntVar(&cliConfig.Serve.RateBurst, "rate-burst", cliConfig.Serve.RateBurst, "Rate limit burst size")
	f.IntVar(&cliConfig.Serve.JobTimeoutSecs, "job-timeout", cliConfig.Serve.JobTimeoutSecs, "Deadline in seconds for each asynchronous scan job")
}

type healthAPIService struct {
	services *application.Container
}

func (s *healthAPIService) Check(ctx context.Context) error {
	return nil
}

func (s *healthAPIService) Ready(ctx context.Context) error {
	if s.services == nil || s.services.Pipeline == nil {
		return errors.New("scan pipeline not initialized")
	}
	if len(s.services.Pipeline.Patterns()) == 0 {
		return errors.New("no patterns loaded")
	}
	return nil
}
