// Command trackerd serves the task tracker HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meikuraledutech/tasktracker/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "trackerd",
		Short:        "Boards, task states and tasks in user-defined order",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newSchemaCmd(), newTokenCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			return serve(cmd.Context(), cfg)
		},
	}
	addServeFlags(cmd)
	return cmd
}

func serve(ctx context.Context, cfg Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if cfg.Store != "postgres" {
		// Embedded stores have no migration step of their own.
		if err := store.CreateSchema(ctx); err != nil {
			return err
		}
	}

	opts := []service.Option{service.WithLogger(logger)}
	c, client, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if c != nil {
		defer client.Close()
		opts = append(opts, service.WithCache(c))
	}

	app := newApp(service.New(store, opts...), newAuthenticator(cfg.JWTSecret, cfg.JWTIssuer), logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(log.Fields{"addr": cfg.Addr, "store": cfg.Store}).Info("listening")
		return app.Listen(cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return app.ShutdownWithContext(shutdownCtx)
	})
	return g.Wait()
}

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the database schema",
	}

	run := func(apply func(ctx context.Context, cfg Config) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return apply(cmd.Context(), cfg)
		}
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create the tables if they don't exist",
		RunE: run(func(ctx context.Context, cfg Config) error {
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.CreateSchema(ctx); err != nil {
				return err
			}
			newLogger(cfg).WithField("store", cfg.Store).Info("schema created")
			return nil
		}),
	}
	drop := &cobra.Command{
		Use:   "drop",
		Short: "Drop the tables and everything in them",
		RunE: run(func(ctx context.Context, cfg Config) error {
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.DropSchema(ctx); err != nil {
				return err
			}
			newLogger(cfg).WithField("store", cfg.Store).Info("schema dropped")
			return nil
		}),
	}
	addStoreFlags(create)
	addStoreFlags(drop)

	cmd.AddCommand(create, drop)
	return cmd
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <owner-id>",
		Short: "Print a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := newAuthenticator(cfg.JWTSecret, cfg.JWTIssuer).sign(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	addServeFlags(cmd)
	return cmd
}
