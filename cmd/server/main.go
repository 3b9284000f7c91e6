package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/academy-portal/credentials"
	"github.com/jrsteele09/academy-portal/credentials/memstore"
	"github.com/jrsteele09/academy-portal/credentials/pgstore"
	"github.com/jrsteele09/academy-portal/credentials/sqlitestore"
	"github.com/jrsteele09/academy-portal/internal/config"
	"github.com/jrsteele09/academy-portal/internal/logging"
	"github.com/jrsteele09/academy-portal/server"
	"github.com/rs/zerolog/log"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	backend, closeBackend, err := openBackend(context.Background(), c)
	if err != nil {
		return err
	}
	defer closeBackend()

	handler, err := server.New(c, backend)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// openBackend opens the configured credential storage and returns a func that releases it.
func openBackend(ctx context.Context, c config.Config) (credentials.Backend, func(), error) {
	switch c.GetStorageBackend() {
	case config.StorageMemory:
		log.Warn().Msg("Using in-memory credential storage; sessions are lost on restart")
		return memstore.New(), func() {}, nil
	case config.StorageSQLite:
		store, err := sqlitestore.Open(c.GetSQLitePath())
		if err != nil {
			return nil, nil, fmt.Errorf("sqlitestore.Open: %w", err)
		}
		log.Info().Str("path", c.GetSQLitePath()).Msg("Using SQLite credential storage")
		return store, func() {
			if err := store.Close(); err != nil {
				log.Err(err).Msg("Failed to close SQLite credential storage")
			}
		}, nil
	case config.StoragePostgres:
		if c.GetDatabaseURL() == "" {
			return nil, nil, errors.New("DATABASE_URL is required for postgres storage")
		}
		store, err := pgstore.Connect(ctx, c.GetDatabaseURL())
		if err != nil {
			return nil, nil, fmt.Errorf("pgstore.Connect: %w", err)
		}
		log.Info().Msg("Using Postgres credential storage")
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_BACKEND %q", c.GetStorageBackend())
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
