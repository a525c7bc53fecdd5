package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"famledger-server/src/api"
	"famledger-server/src/config"
	"famledger-server/src/db"
	"famledger-server/src/db/pgstore"
	"famledger-server/src/importer"
)

const sessionPurgeInterval = time.Hour

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("port", "8080", "port to listen on")
	_ = viper.BindPFlag("PORT", cmd.Flags().Lookup("port"))
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("DB connection failed: %w", err)
	}
	defer pool.Close()

	store := pgstore.New(pool)
	sessions, closeSessions, err := newSessionStore(ctx, cfg, store, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	svc := importer.NewService(importer.Stores{
		AccountTypes: store,
		Rules:        store,
		Categories:   store,
		Transactions: store,
		UnitOfWork:   store,
		Sessions:     sessions,
	}, log, importer.WithPageSize(cfg.ImportPageSize), importer.WithSessionTTL(cfg.SessionTTL))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(cfg, log, store, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("session_store", cfg.SessionStore).Msg("API server running")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// newSessionStore picks where in-flight imports live. The Postgres store is shared by
// every server process. A background loop removes expired sessions and the progress
// records of imports nobody can resume any more.
func newSessionStore(ctx context.Context, cfg config.Config, store *pgstore.Store, log zerolog.Logger) (importer.SessionStore, func(), error) {
	var (
		sessions   importer.SessionStore
		pgSessions *pgstore.SessionStore
		closeStore = func() {}
	)
	if cfg.SessionStore == config.SessionStoreMemory {
		mem, err := db.NewMemorySessionStore()
		if err != nil {
			return nil, nil, err
		}
		sessions, closeStore = mem, mem.Close
	} else {
		pgSessions = pgstore.NewSessionStore(store.Pool())
		sessions = pgSessions
	}

	keep := cfg.SessionTTL
	if keep <= 0 {
		keep = importer.DefaultSessionTTL
	}
	purgeCtx, cancel := context.WithCancel(ctx)
	go purgeImportState(purgeCtx, store, pgSessions, keep, log)
	return sessions, func() {
		cancel()
		closeStore()
	}, nil
}

// purgeImportState runs until ctx is done. sessions is nil when sessions live in memory.
func purgeImportState(ctx context.Context, store *pgstore.Store, sessions *pgstore.SessionStore, ttl time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sessions != nil {
				n, err := sessions.PurgeExpired(ctx)
				if err != nil {
					log.Error().Err(err).Msg("Failed to purge expired import sessions")
				} else if n > 0 {
					log.Info().Int64("purged", n).Msg("Purged expired import sessions")
				}
			}
			n, err := store.PurgeImportProgress(ctx, ttl)
			if err != nil {
				log.Error().Err(err).Msg("Failed to purge import progress")
			} else if n > 0 {
				log.Info().Int64("purged", n).Msg("Purged import progress records")
			}
		}
	}
}
