package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chepyr/go-group-tasks/internal/auth"
	"github.com/chepyr/go-group-tasks/internal/config"
	"github.com/chepyr/go-group-tasks/internal/db"
	"github.com/chepyr/go-group-tasks/internal/handlers"
	"github.com/chepyr/go-group-tasks/internal/logging"
	"github.com/chepyr/go-group-tasks/internal/metrics"
	"github.com/chepyr/go-group-tasks/internal/service"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	store *db.Store
	close func() error
}

func newApp(ctx context.Context, m *metrics.Metrics) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}

	var opts []db.Option
	if m != nil {
		opts = append(opts, db.WithObserver(m))
	}
	backend, closeFn, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, store: db.NewStore(backend, opts...), close: closeFn}, nil
}

func openBackend(ctx context.Context, cfg *config.Config, log *logrus.Logger) (db.Backend, func() error, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		conn, err := openSQL(ctx, config.DriverSQLite, cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		return db.NewSQLBackend(conn, db.DefaultDocumentName), conn.Close, nil
	case config.DriverPostgres:
		conn, err := openSQL(ctx, config.DriverPostgres, cfg.Postgres.DSN(), log)
		if err != nil {
			return nil, nil, err
		}
		return db.NewSQLBackend(conn, db.DefaultDocumentName), conn.Close, nil
	default:
		log.WithField("path", cfg.DatabaseJSONPath).Info("using JSON file storage")
		return db.NewFileBackend(afero.NewOsFs(), cfg.DatabaseJSONPath), func() error { return nil }, nil
	}
}

func openSQL(ctx context.Context, driver, dsn string, log *logrus.Logger) (*sql.DB, error) {
	conn, err := db.Connect(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", driver, err)
	}
	if err := db.Migrate(conn, driver, log); err != nil {
		conn.Close()
		return nil, err
	}
	log.WithField("driver", driver).Info("database ready")
	return conn, nil
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taskgroups",
		Short:         "Task and group management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand(), newSeedCommand(), newMigrateCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := metrics.New()
			a, err := newApp(cmd.Context(), m)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.cfg.ValidateAuth(); err != nil {
				return err
			}

			tokens, err := auth.NewJWTManager(a.cfg.JWTSecret, a.cfg.TokenTTL)
			if err != nil {
				return err
			}
			svc := service.New(a.store, auth.NewBcryptHasher(0), service.WithLogger(a.log))

			rl := handlers.NewRateLimiter(5, time.Second)
			rl.TrustProxy = a.cfg.TrustProxy
			defer rl.Stop()
			hub := handlers.NewWSHub(a.log)
			defer hub.Close()

			h := &handlers.Handler{
				Service:        svc,
				Tokens:         tokens,
				TokenTTL:       a.cfg.TokenTTL,
				RateLimiter:    rl,
				WSHub:          hub,
				Log:            a.log,
				InviteBaseURL:  a.cfg.InviteBaseURL,
				AllowedOrigins: a.cfg.AllowedOrigins,
			}
			server := &http.Server{
				Addr:              ":" + a.cfg.ServerPort,
				Handler:           h.Router(m),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return startServer(server, a.log)
		},
	}
}

func startServer(server *http.Server, log *logrus.Logger) error {
	log.Infof("Starting server on %s", server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

func newSeedCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users, groups, tasks and an invite",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.close()

			svc := service.New(a.store, auth.NewBcryptHasher(0), service.WithLogger(a.log))
			seeded, err := svc.Seed(cmd.Context(), force)
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "database already has users; use --force to overwrite")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Replace existing data")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (sqlite3 and postgres storage only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.close()
			if a.cfg.StorageDriver == config.DriverFile {
				return fmt.Errorf("STORAGE_DRIVER=%s has no schema to migrate", config.DriverFile)
			}
			// opening the backend already ran the migrations
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
