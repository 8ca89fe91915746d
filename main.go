// This is the main entry point of the signup service.
// It loads configuration, wires storage, notifier and the registration
// service, and either serves the HTTP API (`serve`, the default) or performs
// a single registration from the command line (`register`).
//
// Analogy to Nest.js: this file is similar to `main.ts`, where the
// application instance is created and bootstrapped to listen for requests.
// @title Signup API
// @version 1.0
// @description User registration service: creates PENDING accounts and triggers email verification.
// @contact.name API Support
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @BasePath /
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/user/signup-go/apperror"
	"github.com/user/signup-go/config"
	"github.com/user/signup-go/logging"
)

func main() {
	app := &cli.App{
		Name:  "signup",
		Usage: "user registration service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   ".",
				Usage:   "directory that may contain a .env file",
				EnvVars: []string{"SIGNUP_CONFIG_DIR"},
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "extra env files loaded into the process environment before configuration",
			},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP server (default)",
				Action: runServe,
			},
			{
				Name:  "register",
				Usage: "register one account and print it as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "username", Required: true},
				},
				Action: runRegister,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// bootstrap loads configuration and builds the logger and application.
func bootstrap(cCtx *cli.Context) (*application, *logging.ZapLogger, error) {
	if files := cCtx.StringSlice("env-file"); len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, nil, apperror.NewConfigError("failed to load env files", err)
		}
	}

	cfg, err := config.LoadConfig(cCtx.String("config-dir"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewProductionLogger(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app, err := newApplication(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("failed to initialise application: %w", err)
	}
	return app, logger, nil
}

func runServe(cCtx *cli.Context) error {
	app, logger, err := bootstrap(cCtx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer app.Close()

	addr := fmt.Sprintf(":%s", app.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(app),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: app.cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The server runs in its own goroutine so this one can wait for a shutdown signal.
	serverErr := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Info(context.Background(), "server shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout)
	defer cancel()

	// In-flight registrations finish before the dispatcher and pool are closed by app.Close.
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info(context.Background(), "server stopped gracefully")
	return nil
}

func runRegister(cCtx *cli.Context) error {
	app, logger, err := bootstrap(cCtx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer app.Close()

	account, err := app.service.RegisterUser(cCtx.Context, cCtx.String("email"), cCtx.String("username"))
	if err != nil {
		if appErr, ok := apperror.FromError(err); ok {
			return cli.Exit(appErr.Message, 1)
		}
		return err
	}

	enc := json.NewEncoder(cCtx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(account)
}
